package main

import (
	"bufio"
	"context"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/spf13/cobra"

	"github.com/pongascript/pong/interp"
	"github.com/pongascript/pong/reader"
)

var errColor = color.New(color.FgRed)

// newInterpreter builds an Interpreter configured from the effective
// pongConfig and registers the cmd/pong-only builtins on top of the
// core standard library (interp.New already installs that).
func newInterpreter(cfg pongConfig, out *os.File) *interp.Interpreter {
	it := interp.New(interp.Options{
		GCInterval:   cfg.GCInterval,
		MaxStackSize: cfg.MaxStackSize,
		Stdout:       colorable.NewColorable(out),
	})
	installLoadBuiltin(it)
	return it
}

// runREPL implements the default (no subcommand) action: a
// read-eval-print loop over stdin, wired through Interpreter.REPL
// (interp/interp.go), with ctrl-C cancellation via
// signal.NotifyContext.
func runREPL(cmd *cobra.Command) error {
	cfg, err := loadEffectiveConfig()
	if err != nil {
		return err
	}
	it := newInterpreter(cfg, os.Stdout)
	out := colorable.NewColorable(os.Stdout)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	scanner := bufio.NewScanner(os.Stdin)
	read := func() (string, bool, error) {
		if !scanner.Scan() {
			return "", false, scanner.Err()
		}
		return scanner.Text(), true, nil
	}
	parse := func(src string) (interp.Value, error) {
		return reader.ParseOne(src)
	}

	err = it.REPL(ctx, interp.REPLOptions{
		Prompt: "pong> ",
		Read:   read,
		Parse:  parse,
		Out:    out,
	})
	if err != nil && err != context.Canceled {
		errColor.Fprintln(out, err)
	}
	return nil
}
