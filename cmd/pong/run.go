package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pongascript/pong/interp"
	"github.com/pongascript/pong/reader"
)

var runCmd = &cobra.Command{
	Use:   "run <file.scm>",
	Short: "Batch-evaluate a Pongascript source file and exit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFile(args[0])
	},
}

// runFile evaluates every top-level form in path in order and exits
// with a status derived from the *interp.Error's Kind on failure,
// turning a domain error into both a stderr message and a process exit
// code.
func runFile(path string) error {
	cfg, err := loadEffectiveConfig()
	if err != nil {
		return err
	}
	it := newInterpreter(cfg, os.Stdout)

	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	forms, err := reader.ParseAll(string(src))
	if err != nil {
		perr := &interp.Error{Kind: interp.KindParse, Message: path, Cause: err}
		errColor.Fprintln(os.Stderr, perr)
		os.Exit(exitCodeFor(perr))
	}

	var result interp.Value
	for _, form := range forms {
		result, err = it.Eval(form)
		if err != nil {
			errColor.Fprintln(os.Stderr, err)
			os.Exit(exitCodeFor(err))
		}
	}
	if !result.IsNull() {
		_ = it.Env.Define("last", result)
	}
	return nil
}

// exitCodeFor assigns a small, stable process exit code per error Kind
// so shell scripts driving "pong run" can branch on failure class
// without scraping stderr text.
func exitCodeFor(err error) int {
	ie, ok := err.(*interp.Error)
	if !ok {
		return 1
	}
	switch ie.Kind {
	case interp.KindParse:
		return 2
	case interp.KindReference:
		return 3
	case interp.KindType:
		return 4
	case interp.KindArithmetic:
		return 5
	case interp.KindArity:
		return 6
	case interp.KindStackOverflow:
		return 7
	case interp.KindIO:
		return 8
	default:
		return 1
	}
}
