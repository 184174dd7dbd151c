package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/filecoin-project/go-fil-post/deps/config"
)

var configCmd = &cli.Command{
	Name:  "config",
	Usage: "Inspect the pipeline config",
	Subcommands: []*cli.Command{
		{
			Name:  "default",
			Usage: "Print the default config",
			Action: func(cctx *cli.Context) error {
				def := config.DefaultPoStPipelineConfig()
				b, err := config.ConfigComment(def, def)
				if err != nil {
					return err
				}
				fmt.Print(string(b))
				return nil
			},
		},
		{
			Name:  "current",
			Usage: "Print the loaded config, with defaults commented out",
			Action: func(cctx *cli.Context) error {
				cur, err := loadConfig(cctx)
				if err != nil {
					return err
				}
				b, err := config.ConfigComment(cur, config.DefaultPoStPipelineConfig())
				if err != nil {
					return err
				}
				fmt.Print(string(b))
				return nil
			},
		},
	},
}
