// Package surveyhcl loads survey definitions written in HCL.
//
// A definition is a sequence of blocks, processed in file order:
//
//	question "likes_pizza" {
//	  text    = "Do you like pizza?"
//	  options = ["yes", "no"]
//	}
//
//	rule "likes_pizza" {
//	  when = "{{ likes_pizza.answer }} == 'no'"
//	  next = "why_not"            # question name, index or "EndOfSurvey"
//	}
//
//	skip "why_not" { when = "..." }   # before-rule
//	stop "why_not" { when = "..." }   # jump to EndOfSurvey
//
//	memory "age" { priors = ["likes_pizza"] }
//
//	memory_mode {
//	  mode = "lagged"   # or "full"
//	  lags = 2
//	}
//
// Questions from every file are registered first; rules and memories are
// then applied in the order they were written, which decides rule priority.
// Rule expressions that still use bare question names are migrated to
// template form with a warning.
package surveyhcl

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/surveynav/internal/ctxlog"
	"github.com/vk/surveynav/internal/expr"
	"github.com/vk/surveynav/internal/question"
	"github.com/vk/surveynav/internal/survey"
)

// Block type names.
const (
	blockQuestion   = "question"
	blockRule       = "rule"
	blockSkip       = "skip"
	blockStop       = "stop"
	blockMemory     = "memory"
	blockMemoryMode = "memory_mode"
)

// Loader is the HCL implementation of the survey loader.
type Loader struct {
	parser *hclparse.Parser
}

// NewLoader creates a new HCL survey loader.
func NewLoader() *Loader {
	return &Loader{parser: hclparse.NewParser()}
}

// Load reads every survey file under paths and builds one survey.
func (l *Loader) Load(ctx context.Context, paths ...string) (*survey.Survey, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL survey loader started.", "path_count", len(paths))

	files, err := findSurveyFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered survey files.", "count", len(files))

	var blocks []*hclsyntax.Block
	for _, file := range files {
		hclFile, diags := l.parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		fileBlocks, err := topLevelBlocks(file, hclFile)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, fileBlocks...)
	}
	return build(ctx, blocks)
}

// Parse builds a survey from a single in-memory definition.
func (l *Loader) Parse(ctx context.Context, filename string, src []byte) (*survey.Survey, error) {
	hclFile, diags := l.parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}
	blocks, err := topLevelBlocks(filename, hclFile)
	if err != nil {
		return nil, err
	}
	return build(ctx, blocks)
}

// topLevelBlocks returns the file's blocks in source order. Top-level
// attributes are not part of the format.
func topLevelBlocks(filename string, f *hcl.File) ([]*hclsyntax.Block, error) {
	body, ok := f.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("failed to decode HCL file %s: not native HCL syntax", filename)
	}
	for name, attr := range body.Attributes {
		return nil, fmt.Errorf("%s: unexpected top-level attribute %q", attr.SrcRange, name)
	}
	return body.Blocks, nil
}

type questionSpec struct {
	Text    string   `hcl:"text"`
	Options []string `hcl:"options,optional"`
}

type ruleSpec struct {
	When string `hcl:"when"`
	Next string `hcl:"next"`
}

type conditionSpec struct {
	When string `hcl:"when"`
}

type memorySpec struct {
	Priors []string `hcl:"priors"`
}

type memoryModeSpec struct {
	Mode string `hcl:"mode"`
	Lags int    `hcl:"lags,optional"`
}

// build registers all questions first, then applies every other block in
// order.
func build(ctx context.Context, blocks []*hclsyntax.Block) (*survey.Survey, error) {
	logger := ctxlog.FromContext(ctx)

	s, err := survey.New(nil, survey.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	for _, block := range blocks {
		if block.Type != blockQuestion {
			continue
		}
		name, err := singleLabel(block)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", block.DefRange(), err)
		}
		var spec questionSpec
		if diags := gohcl.DecodeBody(block.Body, nil, &spec); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode question %q: %w", name, diags)
		}
		if err := s.AddQuestion(&question.Question{Name: name, Text: spec.Text, Options: spec.Options}); err != nil {
			return nil, fmt.Errorf("%s: %w", block.DefRange(), err)
		}
	}

	for _, block := range blocks {
		if err := applyBlock(logger, s, block); err != nil {
			return nil, fmt.Errorf("%s: %w", block.DefRange(), err)
		}
	}

	logger.Debug("HCL survey loading complete.", "questions", s.Len(), "rules", s.Rules().Len())
	return s, nil
}

func applyBlock(logger *slog.Logger, s *survey.Survey, block *hclsyntax.Block) error {
	switch block.Type {
	case blockQuestion:
		return nil

	case blockRule:
		name, err := singleLabel(block)
		if err != nil {
			return err
		}
		var spec ruleSpec
		if diags := gohcl.DecodeBody(block.Body, nil, &spec); diags.HasErrors() {
			return diags
		}
		_, err = s.AddRule(name, migrate(logger, s, name, spec.When), spec.Next)
		return err

	case blockSkip, blockStop:
		name, err := singleLabel(block)
		if err != nil {
			return err
		}
		var spec conditionSpec
		if diags := gohcl.DecodeBody(block.Body, nil, &spec); diags.HasErrors() {
			return diags
		}
		when := migrate(logger, s, name, spec.When)
		if block.Type == blockSkip {
			_, err = s.AddSkipRule(name, when)
		} else {
			_, err = s.AddStopRule(name, when)
		}
		return err

	case blockMemory:
		name, err := singleLabel(block)
		if err != nil {
			return err
		}
		var spec memorySpec
		if diags := gohcl.DecodeBody(block.Body, nil, &spec); diags.HasErrors() {
			return diags
		}
		return s.AddMemoryCollection(name, spec.Priors)

	case blockMemoryMode:
		if len(block.Labels) != 0 {
			return fmt.Errorf("%s block takes no labels", blockMemoryMode)
		}
		var spec memoryModeSpec
		if diags := gohcl.DecodeBody(block.Body, nil, &spec); diags.HasErrors() {
			return diags
		}
		switch spec.Mode {
		case "full":
			s.SetFullMemoryMode()
			return nil
		case "lagged":
			return s.SetLaggedMemory(spec.Lags)
		default:
			return fmt.Errorf("unknown memory mode %q: must be \"full\" or \"lagged\"", spec.Mode)
		}

	default:
		return fmt.Errorf("unsupported block type %q", block.Type)
	}
}

// migrate rewrites a legacy bare-name expression into template form.
func migrate(logger *slog.Logger, s *survey.Survey, questionName, when string) string {
	compiled, err := expr.Compile(when)
	if err != nil || !compiled.Legacy() {
		return when
	}
	migrated, changed := expr.MigrateLegacy(when, s.Names())
	if changed {
		logger.Warn("Migrated legacy rule expression to template form.",
			"question", questionName,
			"from", when,
			"to", migrated,
		)
	}
	return migrated
}

func singleLabel(block *hclsyntax.Block) (string, error) {
	if len(block.Labels) != 1 {
		return "", fmt.Errorf("%s block requires exactly one label (the question name), got %d", block.Type, len(block.Labels))
	}
	return block.Labels[0], nil
}
