package main

import (
	"flag"
	"fmt"

	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"
)

// newKlogFlags wires klog's verbosity and destination flags into the cli
// app, the same way the rest of this codebase's CLIs expose them.
func newKlogFlags() []cli.Flag {
	fs := flag.NewFlagSet("klog", flag.PanicOnError)
	klog.InitFlags(fs)

	fs.Set("v", "0")
	fs.Set("logtostderr", "true")

	return []cli.Flag{
		&cli.IntFlag{
			Name:    "v",
			Usage:   "number for the log level verbosity",
			EnvVars: []string{"PAKIO_V"},
			Action: func(cctx *cli.Context, v int) error {
				return fs.Set("v", fmt.Sprint(v))
			},
		},
		&cli.BoolFlag{
			Name:    "logtostderr",
			Usage:   "log to standard error instead of files",
			Value:   true,
			EnvVars: []string{"PAKIO_LOGTOSTDERR"},
			Action: func(cctx *cli.Context, v bool) error {
				return fs.Set("logtostderr", fmt.Sprint(v))
			},
		},
		&cli.StringFlag{
			Name:    "vmodule",
			Usage:   "comma-separated list of pattern=N settings for file-filtered logging",
			EnvVars: []string{"PAKIO_VMODULE"},
			Action: func(cctx *cli.Context, v string) error {
				if v != "" {
					return fs.Set("vmodule", v)
				}
				return nil
			},
		},
	}
}
