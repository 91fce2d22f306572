// Command pakcat is a thin driver over the archive package: list, inspect,
// and extract entries from a .pak or IoStore (.utoc/.ucas) container
// without needing to embed it in a larger program.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, syscall.SIGTERM, syscall.SIGINT)
		select {
		case <-interrupt:
			klog.Info("received interrupt signal")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(interrupt)
	}()

	app := &cli.App{
		Name:        "pakcat",
		Usage:       "list, inspect, and extract entries from .pak and IoStore containers",
		Description: "A command-line tool to open Unreal Engine .pak and IoStore (.utoc/.ucas) archives and read their contents without unpacking the whole thing.",
		Flags:       newKlogFlags(),
		Commands: []*cli.Command{
			newListCmd(),
			newInfoCmd(),
			newCatCmd(),
		},
	}

	sort.Sort(cli.FlagsByName(app.Flags))
	sort.Sort(cli.CommandsByName(app.Commands))

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
