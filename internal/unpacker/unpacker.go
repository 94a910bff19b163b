// Package unpacker drives the analysis passes over one packed bundle and
// assembles the final outputs: the extracted module artifacts and the
// rewritten main file that loads them.
package unpacker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/imaxct/unbundle/internal/config"
	"github.com/imaxct/unbundle/internal/constfold"
	"github.com/imaxct/unbundle/internal/extractor"
	"github.com/imaxct/unbundle/internal/jsparse"
	"github.com/imaxct/unbundle/internal/reorder"
	"github.com/imaxct/unbundle/internal/rewrite"
)

// Context carries the shared state for one run.
type Context struct {
	Config *config.Config
}

// Result is the outcome of processing one bundle. Nothing in it has been
// written to disk yet; WriteOutputs does that.
type Result struct {
	InputPath   string
	MainName    string
	MainContent string
	Artifacts   []extractor.Artifact

	FoldedConditions    int
	ReorderedLoops      int
	RefoldedConditions  int
	SkippedCalls        int
	DroppedReplacements int
}

func (ctx *Context) report(format string, args ...interface{}) {
	if ctx.Config == nil || !ctx.Config.Silent {
		config.PrintInfo(format, args...)
	}
}

// Process runs the enabled passes over source. All passes analyze the same
// parse snapshot; their replacements are reconciled afterwards, with
// extraction taking precedence over reordering and reordering over
// condition folding. Conditions that lose to a reorder are given a second
// chance by re-parsing the intermediate text.
func Process(source, name string, ctx *Context) (*Result, error) {
	cfg := ctx.Config
	snap, err := jsparse.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}

	res := &Result{InputPath: name}

	var extReps, loopReps, condReps []rewrite.Replacement

	if cfg.Passes.Extract.Enabled {
		out := extractor.Extract(snap, extractor.Options{
			Object:       cfg.Registration.Object,
			Property:     cfg.Registration.Property,
			SymbolPrefix: cfg.Registration.SymbolPrefix,
			Extension:    cfg.Registration.Extension,
			Report:       ctx.report,
		})
		res.Artifacts = out.Artifacts
		res.SkippedCalls = out.Skipped
		extReps = out.Replacements
	}
	if cfg.Passes.ReorderSwitches.Enabled {
		loopReps = reorder.Reorder(snap, ctx.report)
	}
	if cfg.Passes.FoldConditions.Enabled {
		condReps = constfold.Fold(snap, ctx.report)
	}

	// Extracted spans swallow whatever the other passes found inside them;
	// the artifact body must stay verbatim. Likewise a reordered loop
	// swallows folds inside its cases.
	loopReps, droppedLoops := rewrite.Exclude(loopReps, extReps)
	condReps, droppedByExt := rewrite.Exclude(condReps, extReps)
	condReps, droppedByLoop := rewrite.Exclude(condReps, loopReps)
	res.ReorderedLoops = len(loopReps)
	res.FoldedConditions = len(condReps)
	res.DroppedReplacements = len(droppedLoops) + len(droppedByExt) + len(droppedByLoop)
	if res.DroppedReplacements > 0 {
		ctx.report("Info: %d nested replacements dropped in favor of enclosing ones\n", res.DroppedReplacements)
	}

	merged, err := rewrite.Merge(extReps, loopReps, condReps)
	if err != nil {
		return nil, fmt.Errorf("reconciling replacements for %s: %w", name, err)
	}
	text, err := rewrite.Apply(snap.Text, merged)
	if err != nil {
		return nil, fmt.Errorf("rewriting %s: %w", name, err)
	}

	// Reordering changes which conditions exist in the text, so folding
	// runs once more over the intermediate result. A parse failure here is
	// survivable; the first-round output stands.
	if cfg.Passes.FoldConditions.Enabled && res.ReorderedLoops > 0 {
		resnap, err := jsparse.Parse(text)
		if err != nil {
			ctx.report("Warning: intermediate result no longer parses, skipping the second fold: %v\n", err)
		} else {
			refold := constfold.Fold(resnap, ctx.report)
			if len(refold) > 0 {
				text, err = rewrite.Apply(resnap.Text, refold)
				if err != nil {
					return nil, fmt.Errorf("re-folding %s: %w", name, err)
				}
				res.RefoldedConditions = len(refold)
			}
		}
	}

	res.MainName = mainFileName(name)
	res.MainContent = loadStatements(res.Artifacts) + text
	return res, nil
}

// ProcessFile reads path and processes its contents.
func ProcessFile(path string, ctx *Context) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	res, err := Process(string(data), filepath.Base(path), ctx)
	if err != nil {
		return nil, err
	}
	res.InputPath = path
	return res, nil
}

// WriteOutputs persists the artifacts and the rewritten main file into dir,
// overwriting existing files.
func WriteOutputs(res *Result, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory %s: %w", dir, err)
	}
	for _, a := range res.Artifacts {
		path := filepath.Join(dir, a.FileName)
		if err := os.WriteFile(path, []byte(a.Content), 0644); err != nil {
			return fmt.Errorf("writing artifact %s: %w", path, err)
		}
	}
	mainPath := filepath.Join(dir, res.MainName)
	if err := os.WriteFile(mainPath, []byte(res.MainContent), 0644); err != nil {
		return fmt.Errorf("writing main file %s: %w", mainPath, err)
	}
	return nil
}

// loadStatements renders one require line per artifact, in extraction
// order, followed by a separating blank line.
func loadStatements(artifacts []extractor.Artifact) string {
	if len(artifacts) == 0 {
		return ""
	}
	var b strings.Builder
	for _, a := range artifacts {
		fmt.Fprintf(&b, "const { %s } = require(\"./%s\");\n", a.Symbol, a.FileName)
	}
	b.WriteString("\n")
	return b.String()
}

// mainFileName derives the rewritten-bundle name from the input name:
// "bundle.js" becomes "bundle_modified.js".
func mainFileName(name string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + "_modified" + ext
}
