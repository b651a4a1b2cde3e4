// Package main is the pong command-line entry point: a cobra command
// tree wrapping the interp/reader packages. With no subcommand it
// opens a REPL; "pong run file.scm" batch-evaluates a file.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	flagConfigFile   string
	flagGCInterval   time.Duration
	flagMaxStackSize int
	flagNoColor      bool
)

var rootCmd = &cobra.Command{
	Use:     "pong",
	Short:   "Pongascript: a small Scheme-like interpreter",
	Long:    "pong evaluates Pongascript source — an S-expression language with closures,\nlexical scope, vectors, objects, and a numeric tower over int/rational/float.",
	Version: "0.1.0",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagNoColor {
			color.NoColor = true
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runREPL(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "path to a pong.toml configuration file")
	rootCmd.PersistentFlags().DurationVar(&flagGCInterval, "gc-interval", 0, "opportunistic GC interval (default 5s)")
	rootCmd.PersistentFlags().IntVar(&flagMaxStackSize, "max-stack", 0, "evaluator stack depth limit (default 100000)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(runCmd)
}

// loadEffectiveConfig layers defaults, then an optional TOML file,
// then explicit flags (file overrides defaults, flags override the
// file).
func loadEffectiveConfig() (pongConfig, error) {
	cfg := defaultConfig()
	if flagConfigFile != "" {
		if err := loadConfigFile(flagConfigFile, &cfg); err != nil {
			return cfg, fmt.Errorf("loading %s: %w", flagConfigFile, err)
		}
	}
	if flagGCInterval > 0 {
		cfg.GCInterval = flagGCInterval
	}
	if flagMaxStackSize > 0 {
		cfg.MaxStackSize = flagMaxStackSize
	}
	return cfg, nil
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
