package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"
)

func newInfoCmd() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "print details about one archive entry, or the archive itself when no path is given",
		ArgsUsage: "<archive-path> [entry-path]",
		Flags:     commonFlags(),
		Action: func(c *cli.Context) error {
			a, err := openFromContext(c)
			if err != nil {
				return err
			}
			defer a.Close()

			entryPath := c.Args().Get(1)
			if entryPath == "" {
				fmt.Fprintf(c.App.Writer, "name: %s\n", a.Name())
				fmt.Fprintf(c.App.Writer, "version: %d\n", a.Version())
				fmt.Fprintf(c.App.Writer, "mount point: %s\n", a.MountPoint())
				fmt.Fprintf(c.App.Writer, "entries: %d\n", a.FileCount())
				fmt.Fprintf(c.App.Writer, "encrypted: %v\n", a.IsEncrypted())
				return nil
			}

			e, ok, err := a.Info(entryPath)
			if err != nil {
				return err
			}
			if !ok {
				return cli.Exit(fmt.Sprintf("no such entry: %s", entryPath), 1)
			}
			fmt.Fprintf(c.App.Writer, "path: %s\n", e.Path)
			fmt.Fprintf(c.App.Writer, "uncompressed size: %s\n", humanize.Bytes(uint64(e.UncompressedSize)))
			fmt.Fprintf(c.App.Writer, "compressed size: %s\n", humanize.Bytes(uint64(e.CompressedSize)))
			fmt.Fprintf(c.App.Writer, "compressed: %v\n", e.Compressed)
			if e.Compressed {
				fmt.Fprintf(c.App.Writer, "compression method: %s\n", e.CompressionMethod)
			}
			fmt.Fprintf(c.App.Writer, "encrypted: %v\n", e.Encrypted)
			return nil
		},
	}
}
