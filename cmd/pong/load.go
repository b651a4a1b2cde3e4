package main

import (
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru"

	"github.com/pongascript/pong/interp"
	"github.com/pongascript/pong/reader"
)

// loadCacheSize bounds the number of distinct source files whose
// parsed forms are kept around: a small fixed-size LRU in front of an
// expensive re-parse.
const loadCacheSize = 32

// loadCache is a package-level LRU of absolute-path -> []interp.Value,
// shared by every (load "path") call an Interpreter makes over its
// lifetime, so a library file sourced from several "(load ...)" call
// sites is lexed and parsed only once.
var loadCache, _ = lru.New(loadCacheSize)

// installLoadBuiltin registers "load" on it, the one builtin the core
// interp package cannot define itself (RegisterBuiltin in
// interp/eval.go documents why).
func installLoadBuiltin(it *interp.Interpreter) {
	it.RegisterBuiltin("load", func(it *interp.Interpreter, args []interp.Value) (interp.Value, error) {
		if len(args) != 1 {
			return interp.Value{}, &interp.Error{Kind: interp.KindArity, Message: "load: expected a single string path argument"}
		}
		path, err := it.Deref(args[0])
		if err != nil {
			return interp.Value{}, err
		}
		if path.Kind != interp.KString {
			return interp.Value{}, &interp.Error{Kind: interp.KindType, Message: "load: expected a string path"}
		}
		forms, err := parseFileCached(path.Str)
		if err != nil {
			return interp.Value{}, &interp.Error{Kind: interp.KindIO, Message: fmt.Sprintf("load %q", path.Str), Cause: err}
		}

		// Every top-level form in the loaded file runs in the global
		// frame. load restores the caller's active frame when done so
		// nested (load ...) calls from within a let body don't leak
		// scope.
		caller := it.Env.Current()
		it.Env.SetCurrent(it.Env.Root())
		defer it.Env.SetCurrent(caller)

		result := interp.Null
		for _, form := range forms {
			result, err = it.Eval(form)
			if err != nil {
				return interp.Value{}, err
			}
		}
		return result, nil
	})
}

func parseFileCached(path string) ([]interp.Value, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if cached, ok := loadCache.Get(abs); ok {
		return cached.([]interp.Value), nil
	}

	src, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	forms, err := reader.ParseAll(string(src))
	if err != nil {
		return nil, err
	}
	loadCache.Add(abs, forms)
	return forms, nil
}
