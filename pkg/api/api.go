// Package api provides the public API for using the bundle unpacker as a library.
//
// This package allows users to unpack bundled JavaScript programmatically
// using the same passes available in the command-line interface.
//
// Basic usage example:
//
//	up, err := api.NewUnpacker(api.Options{ConfigPath: "unbundle.yaml"})
//	if err != nil {
//	    log.Fatalf("Failed to create unpacker: %v", err)
//	}
//
//	result, err := up.UnpackFile("bundle.js")
//	if err != nil {
//	    log.Fatalf("Failed to unpack: %v", err)
//	}
//
//	fmt.Println(result.MainName) // bundle_modified.js
package api

import (
	"fmt"
	"path/filepath"

	"github.com/imaxct/unbundle/internal/config"
	"github.com/imaxct/unbundle/internal/extractor"
	"github.com/imaxct/unbundle/internal/unpacker"
)

// PrintInfo prints formatted information to stdout, respecting the Testing flag.
// This function forwards to the internal config.PrintInfo function.
func PrintInfo(format string, args ...interface{}) {
	config.PrintInfo(format, args...)
}

// Result mirrors the outcome of one unpack run.
type Result struct {
	// MainName is the file name of the rewritten bundle.
	MainName string
	// MainContent is the rewritten bundle text, load statements included.
	MainContent string
	// Artifacts holds one entry per extracted module, in discovery order.
	Artifacts []extractor.Artifact

	FoldedConditions   int
	ReorderedLoops     int
	RefoldedConditions int
	SkippedCalls       int
}

// Unpacker is the engine behind both CLI and library use.
type Unpacker struct {
	// Config holds the settings for all passes.
	Config *config.Config
}

// Options represents configuration options for creating a new Unpacker instance.
type Options struct {
	// ConfigPath is the path to a YAML configuration file.
	// If empty, default configuration will be used.
	ConfigPath string

	// Silent suppresses informational messages during processing.
	Silent bool
}

// NewUnpacker creates a new Unpacker using the provided options.
func NewUnpacker(options Options) (*Unpacker, error) {
	cfg, err := config.LoadConfig(options.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if options.Silent {
		cfg.Silent = true
	}
	return &Unpacker{Config: cfg}, nil
}

// UnpackCode processes a bundle held in memory. Nothing is written to
// disk; the caller decides what to do with the artifacts.
func (u *Unpacker) UnpackCode(code string) (*Result, error) {
	res, err := unpacker.Process(code, "bundle.js", &unpacker.Context{Config: u.Config})
	if err != nil {
		return nil, fmt.Errorf("failed to unpack code: %w", err)
	}
	return wrap(res), nil
}

// UnpackFile processes a bundle file and writes the artifacts plus the
// rewritten main file beside it, or into the configured output directory.
func (u *Unpacker) UnpackFile(inputPath string) (*Result, error) {
	res, err := unpacker.ProcessFile(inputPath, &unpacker.Context{Config: u.Config})
	if err != nil {
		return nil, fmt.Errorf("failed to unpack file %s: %w", inputPath, err)
	}

	dir := u.Config.OutputDir
	if dir == "" {
		dir = filepath.Dir(inputPath)
	}
	if err := unpacker.WriteOutputs(res, dir); err != nil {
		return nil, err
	}
	return wrap(res), nil
}

func wrap(res *unpacker.Result) *Result {
	return &Result{
		MainName:           res.MainName,
		MainContent:        res.MainContent,
		Artifacts:          res.Artifacts,
		FoldedConditions:   res.FoldedConditions,
		ReorderedLoops:     res.ReorderedLoops,
		RefoldedConditions: res.RefoldedConditions,
		SkippedCalls:       res.SkippedCalls,
	}
}
