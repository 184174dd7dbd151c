package post

import (
	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	PoStTypeTag, _ = tag.NewKey("post_type")
	ResultTag, _   = tag.NewKey("result")

	pre = "fil_post_"

	// seconds
	vanillaTimeBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 300}
)

var PoStMeasures = struct {
	VanillaProofs        *stats.Int64Measure
	SkippedSectors       *stats.Int64Measure
	Partitions           *stats.Int64Measure
	VerificationFailures *stats.Int64Measure
	VanillaTime          promclient.Histogram
}{
	VanillaProofs:        stats.Int64(pre+"vanilla_proofs_total", "Sector vanilla proofs generated.", stats.UnitDimensionless),
	SkippedSectors:       stats.Int64(pre+"skipped_sectors_total", "Sectors skipped because their vanilla proof failed.", stats.UnitDimensionless),
	Partitions:           stats.Int64(pre+"partitions_total", "Vanilla proof partitions built and verified.", stats.UnitDimensionless),
	VerificationFailures: stats.Int64(pre+"verification_failures_total", "Partitioned vanilla proofs that failed self verification.", stats.UnitDimensionless),
	VanillaTime: promclient.NewHistogram(promclient.HistogramOpts{
		Name:    pre + "vanilla_time_seconds",
		Buckets: vanillaTimeBuckets,
		Help:    "Histogram of single sector vanilla proof times in seconds.",
	}),
}

func init() {
	err := view.Register(
		&view.View{
			Measure:     PoStMeasures.VanillaProofs,
			Aggregation: view.Sum(),
			TagKeys:     []tag.Key{PoStTypeTag, ResultTag},
		},
		&view.View{
			Measure:     PoStMeasures.SkippedSectors,
			Aggregation: view.Sum(),
			TagKeys:     []tag.Key{PoStTypeTag},
		},
		&view.View{
			Measure:     PoStMeasures.Partitions,
			Aggregation: view.Sum(),
			TagKeys:     []tag.Key{PoStTypeTag},
		},
		&view.View{
			Measure:     PoStMeasures.VerificationFailures,
			Aggregation: view.Sum(),
			TagKeys:     []tag.Key{PoStTypeTag},
		},
	)
	if err != nil {
		panic(err)
	}

	err = promclient.Register(PoStMeasures.VanillaTime)
	if err != nil {
		panic(err)
	}
}
