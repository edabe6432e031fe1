/*
Gbnfc compiles a grammar source file into a serialized bitcode artifact.

Usage:

	gbnfc compile <grammar-source> <artifact-out> [flags]

The flags are:

	-c, --config FILE
		Load compile options (lookahead depth, etc.) from the given TOML file
		instead of the built-in defaults.

Exit code 0 on success; non-zero with a one-line diagnostic on failure
(undefined symbol, ambiguous grammar, left recursion, and similar grammar
errors all surface this way).
*/
package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/pflag"

	"github.com/dekarrin/gbnfc/internal/gbnf/compiler"
)

const (
	// ExitSuccess indicates a successful compile.
	ExitSuccess = iota

	// ExitUsageError indicates bad command-line arguments.
	ExitUsageError

	// ExitCompileError indicates the grammar itself failed to compile.
	ExitCompileError

	// ExitIOError indicates a failure reading the source or writing the
	// artifact.
	ExitIOError
)

var (
	returnCode int = ExitSuccess
	configFile     = pflag.StringP("config", "c", "", "TOML file of compile options")
)

// compileConfig is the on-disk shape of the TOML options file.
type compileConfig struct {
	MaxLookaheadDepth int `toml:"max_lookahead_depth"`
}

func main() {
	defer func() {
		if panicErr := recover(); panicErr != nil {
			panic(fmt.Sprintf("unrecoverable panic occurred: %v", panicErr))
		} else {
			os.Exit(returnCode)
		}
	}()

	pflag.Parse()
	args := pflag.Args()

	if len(args) < 1 || args[0] != "compile" {
		fmt.Fprintln(os.Stderr, "usage: gbnfc compile <grammar-source> <artifact-out>")
		returnCode = ExitUsageError
		return
	}
	if len(args) != 3 {
		fmt.Fprintln(os.Stderr, "ERROR: compile requires exactly 2 arguments: <grammar-source> <artifact-out>")
		returnCode = ExitUsageError
		return
	}
	srcPath, outPath := args[1], args[2]

	opts := compiler.DefaultOptions()
	if *configFile != "" {
		var cfg compileConfig
		if _, err := toml.DecodeFile(*configFile, &cfg); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: reading config: %s\n", err.Error())
			returnCode = ExitIOError
			return
		}
		if cfg.MaxLookaheadDepth > 0 {
			opts.MaxLookaheadDepth = cfg.MaxLookaheadDepth
		}
	}

	srcBytes, err := os.ReadFile(srcPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: reading %s: %s\n", srcPath, err.Error())
		returnCode = ExitIOError
		return
	}

	artifact, err := compiler.Compile(string(srcBytes), srcPath, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", err.Error())
		returnCode = ExitCompileError
		return
	}

	if err := os.WriteFile(outPath, artifact, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: writing %s: %s\n", outPath, err.Error())
		returnCode = ExitIOError
		return
	}
}
