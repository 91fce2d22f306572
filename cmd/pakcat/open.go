package main

import (
	"github.com/urfave/cli/v2"

	"github.com/pakio/pakio/archive"
	"github.com/pakio/pakio/binreader"
	"github.com/pakio/pakio/keystore"
)

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "guid",
			Usage: "container encryption GUID (canonical hex), required together with --key for encrypted containers",
		},
		&cli.StringFlag{
			Name:  "key",
			Usage: "32-byte AES-256 key, hex-encoded, for the container named by --guid",
		},
		&cli.BoolFlag{
			Name:  "no-dir-index",
			Usage: "skip decoding the IoStore directory index; list entries by synthesized chunk name instead",
		},
		&cli.BoolFlag{
			Name:  "parallel",
			Usage: "decode a file's covering blocks concurrently instead of one at a time",
		},
	}
}

func openFromContext(c *cli.Context) (archive.Archive, error) {
	path := c.Args().First()
	if path == "" {
		return nil, cli.Exit("archive path is required", 1)
	}

	options := []archive.Option{}
	if c.Bool("no-dir-index") {
		options = append(options, archive.WithoutDirectoryIndex())
	}
	if c.Bool("parallel") {
		options = append(options, archive.WithParallelExtraction())
	}
	if guidHex := c.String("guid"); guidHex != "" {
		keyHex := c.String("key")
		if keyHex == "" {
			return nil, cli.Exit("--key is required when --guid is set", 1)
		}
		guid, err := binreader.ParseGUID(guidHex)
		if err != nil {
			return nil, cli.Exit("invalid --guid: "+err.Error(), 1)
		}
		ks := keystore.New()
		if err := ks.PutHex(guid, keyHex); err != nil {
			return nil, cli.Exit(err.Error(), 1)
		}
		options = append(options, archive.WithKeyStore(ks))
	}

	return archive.Open(path, options...)
}
