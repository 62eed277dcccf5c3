// Package main provides the xbtracer launcher binary.
//
// xbtracer runs a target application with the capture library preloaded so
// every intercepted runtime call is recorded into a per-session trace
// directory. The binary only prepares the environment and execs the target;
// all recording happens inside the preloaded library.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rajiv448/XRT/internal/launcher"
	"github.com/rajiv448/XRT/internal/logging"
	"github.com/rajiv448/XRT/pkg/version"
)

func main() {
	var (
		verbose   bool
		instDebug bool
		libName   string
	)

	rootCmd := &cobra.Command{
		Use:   "xbtracer [flags] -- <application> [args...]",
		Short: "Run an application with runtime call tracing",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Instrumentation debugging implies launcher debugging.
			if instDebug {
				verbose = true
			}
			level := "info"
			if verbose {
				level = "debug"
			}
			log := logging.New(logging.Config{Level: level, Pretty: true})

			return launcher.Run(launcher.Options{
				Command:   args,
				InstDebug: instDebug,
				LibName:   libName,
				Logger:    log,
			})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false,
		"enable launcher debug logging")
	rootCmd.Flags().BoolVarP(&instDebug, "inst-debug", "V", false,
		"enable debug logging inside the capture library")
	rootCmd.Flags().StringVar(&libName, "capture-lib", "",
		"capture library file name to preload")

	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("xbtracer version %s\n", version.Version)
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
			cmd.Printf("Go version: %s\n", version.GoVersion)
		},
	}
}
