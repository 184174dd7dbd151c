package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	"github.com/filecoin-project/go-padreader"
	"github.com/filecoin-project/go-state-types/abi"
	"github.com/filecoin-project/lotus/storage/sealer/fr32"

	"github.com/filecoin-project/go-fil-post/lib/commitment"
)

var commdCmd = &cli.Command{
	Name:      "commd",
	Usage:     "Compute the data commitment (piece CID) of a file",
	ArgsUsage: "<input-file>",
	Flags: []cli.Flag{
		jsonFlag,
	},
	Action: func(cctx *cli.Context) error {
		inputFile := cctx.Args().Get(0)
		if inputFile == "" {
			return xerrors.Errorf("input file is required")
		}

		file, err := os.Open(inputFile)
		if err != nil {
			return xerrors.Errorf("opening input file: %w", err)
		}
		defer func() {
			_ = file.Close()
		}()

		fi, err := file.Stat()
		if err != nil {
			return xerrors.Errorf("stat input file: %w", err)
		}
		if fi.Size() == 0 {
			return xerrors.Errorf("input file is empty")
		}

		unpadded, usize := padreader.New(file, uint64(fi.Size()))
		cr := commitment.NewReader(&fr32PadReader{src: unpadded})

		n, err := io.Copy(io.Discard, cr)
		if err != nil {
			return xerrors.Errorf("reading input: %w", err)
		}
		if abi.PaddedPieceSize(n) != usize.Padded() {
			return xerrors.Errorf("padded %d bytes, expected %d", n, usize.Padded())
		}

		pieceCID, err := cr.PieceCID()
		if err != nil {
			return err
		}

		if cctx.Bool("json") {
			return printJSON(map[string]any{
				"PieceCID":   pieceCID.String(),
				"PaddedSize": usize.Padded(),
				"RawSize":    fi.Size(),
			})
		}

		fmt.Printf("Piece CID: %s\n", color.GreenString(pieceCID.String()))
		fmt.Printf("Padded Piece Size: %s (%d bytes)\n", humanize.IBytes(uint64(usize.Padded())), usize.Padded())
		fmt.Printf("Raw Piece Size: %s (%d bytes)\n", humanize.IBytes(uint64(fi.Size())), fi.Size())
		return nil
	},
}

const padChunks = 256

// fr32PadReader fr32 pads src, which must be a multiple of 127 bytes long.
type fr32PadReader struct {
	src    io.Reader
	in     [127 * padChunks]byte
	out    [128 * padChunks]byte
	outBuf []byte
	err    error
}

func (r *fr32PadReader) Read(p []byte) (int, error) {
	if len(r.outBuf) == 0 {
		if r.err != nil {
			return 0, r.err
		}

		n, err := io.ReadFull(r.src, r.in[:])
		switch err {
		case nil:
		case io.EOF, io.ErrUnexpectedEOF:
			r.err = io.EOF
		default:
			return 0, err
		}
		if n%127 != 0 {
			return 0, xerrors.Errorf("unpadded input not a multiple of 127 bytes (%d)", n)
		}
		if n == 0 {
			return 0, r.err
		}

		padded := n / 127 * 128
		fr32.Pad(r.in[:n], r.out[:padded])
		r.outBuf = r.out[:padded]
	}

	n := copy(p, r.outBuf)
	r.outBuf = r.outBuf[n:]
	return n, nil
}
