package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
)

func newListCmd() *cli.Command {
	return &cli.Command{
		Name:      "list",
		Aliases:   []string{"ls"},
		Usage:     "list entries in an archive",
		ArgsUsage: "<archive-path> [glob]",
		Flags:     commonFlags(),
		Action: func(c *cli.Context) error {
			a, err := openFromContext(c)
			if err != nil {
				return err
			}
			defer a.Close()

			pattern := c.Args().Get(1)
			entries, err := a.List(pattern)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(c.App.Writer, 0, 2, 2, ' ', 0)
			fmt.Fprintln(tw, "SIZE\tCOMPRESSED\tENCRYPTED\tPATH")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%v\t%v\t%s\n", humanize.Bytes(uint64(e.UncompressedSize)), e.Compressed, e.Encrypted, e.Path)
			}
			return tw.Flush()
		},
	}
}
