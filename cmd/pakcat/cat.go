package main

import (
	"bytes"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
)

func newCatCmd() *cli.Command {
	var outPath string
	var quiet bool
	return &cli.Command{
		Name:      "cat",
		Usage:     "extract one entry and write it to stdout or a file",
		ArgsUsage: "<archive-path> <entry-path>",
		Flags: append(commonFlags(),
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "write to this file instead of stdout",
				Destination: &outPath,
			},
			&cli.BoolFlag{
				Name:        "quiet",
				Aliases:     []string{"q"},
				Usage:       "suppress the progress bar",
				Destination: &quiet,
			},
		),
		Action: func(c *cli.Context) error {
			a, err := openFromContext(c)
			if err != nil {
				return err
			}
			defer a.Close()

			entryPath := c.Args().Get(1)
			if entryPath == "" {
				return cli.Exit("entry path is required", 1)
			}

			data, err := a.Get(entryPath)
			if err != nil {
				return err
			}

			out := io.Writer(os.Stdout)
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			// A progress bar writes ANSI control sequences to stdout, which
			// would corrupt piped binary output; skip it unless stdout is a
			// real terminal or the data is going to a file instead.
			if !quiet && (outPath != "" || isTerminal(os.Stdout)) {
				bar := progressbar.DefaultBytes(int64(len(data)), "extracting "+entryPath)
				out = io.MultiWriter(out, bar)
			}

			_, err = io.Copy(out, bytes.NewReader(data))
			return err
		},
	}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
