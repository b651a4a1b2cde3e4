package main

import (
	"bufio"
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/naoina/toml"

	"github.com/pongascript/pong/interp"
)

// pongConfig holds the interpreter's two runtime knobs, overridable
// from a pong.toml file and then again from command-line flags, in
// that precedence order.
type pongConfig struct {
	GCInterval   time.Duration
	MaxStackSize int
}

func defaultConfig() pongConfig {
	return pongConfig{
		GCInterval:   5 * time.Second,
		MaxStackSize: interp.DefaultMaxStackSize,
	}
}

// tomlSettings maps config keys to struct fields verbatim; an unknown
// key in the file is reported as an error rather than silently
// ignored.
var tomlSettings = toml.Config{
	NormFieldName: func(typ reflect.Type, key string) string { return key },
	FieldToKey:    func(typ reflect.Type, field string) string { return field },
}

// loadConfigFile decodes a TOML file into cfg, wrapping line errors
// with the filename.
func loadConfigFile(path string, cfg *pongConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	if _, ok := err.(*toml.LineError); ok {
		err = fmt.Errorf("%s, %w", path, err)
	}
	return err
}
