package scheduler

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/discovery"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/model"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/plugin"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/protocol"
)

// DefaultExt is the extension of rendered worksheets.
const DefaultExt = ".tex"

// WorkItem is one scheduled invocation of a generator. It is consumed exactly
// once by the scheduler.
type WorkItem struct {
	ID               string            `json:"id"`
	Index            int               `json:"index"`
	Group            string            `json:"group"`
	Unit             string            `json:"unit"`
	Label            string            `json:"label"`
	Generator        string            `json:"generator"`
	Signature        plugin.Signature  `json:"signature"`
	Difficulty       plugin.Difficulty `json:"difficulty,omitempty"`
	ProblemCount     int               `json:"problem_count"`
	OutputPath       string            `json:"output_path"`
	Title            string            `json:"title"`
	IncludeAnswerKey bool              `json:"include_answer_key"`
}

// Request converts the item into the message sent to a worker.
func (w WorkItem) Request() protocol.WorkRequest {
	return protocol.WorkRequest{
		ItemID:           w.ID,
		Generator:        w.Generator,
		Signature:        string(w.Signature),
		Difficulty:       string(w.Difficulty),
		ProblemCount:     w.ProblemCount,
		OutputPath:       w.OutputPath,
		Title:            w.Title,
		IncludeAnswerKey: w.IncludeAnswerKey,
	}
}

// Group is one target of a batch, e.g. a grade, with the generators
// discovered for it.
type Group struct {
	Key        string
	Title      string
	Difficulty plugin.Difficulty
	Generators []discovery.DiscoveredGenerator
}

// PlanOptions controls how work items are derived.
type PlanOptions struct {
	OutputDir        string
	ProblemCount     int
	IncludeAnswerKey bool
	// Difficulty overrides every group's default for leveled generators.
	Difficulty plugin.Difficulty
	Ext        string
	Logger     *slog.Logger
}

// Plan builds the ordered work items for groups. Output paths follow
// <OutputDir>/<group>/<unit>_<name>[_<difficulty>]<ext>; a path already
// claimed earlier in the batch gets a numeric suffix.
func Plan(groups []Group, opts PlanOptions) []WorkItem {
	ext := opts.Ext
	if ext == "" {
		ext = DefaultExt
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var items []WorkItem
	claimed := make(map[string]bool)
	for _, g := range groups {
		title := g.Title
		if title == "" {
			title = g.Key
		}
		for _, gen := range g.Generators {
			sig := gen.Descriptor.Signature()
			var diff plugin.Difficulty
			if sig == plugin.SignatureLeveled {
				diff = chooseDifficulty(opts.Difficulty, g.Difficulty, gen.Difficulties)
			}

			stem := Sanitize(gen.GroupLabel + "_" + gen.DisplayName)
			itemTitle := title + " - " + gen.DisplayName
			if diff != "" {
				stem += "_" + string(diff)
				itemTitle += " - " + diff.Title()
			}

			dir := filepath.Join(opts.OutputDir, Sanitize(g.Key))
			path := filepath.Join(dir, stem+ext)
			for n := 2; claimed[strings.ToLower(path)]; n++ {
				path = filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, n, ext))
			}
			if base := filepath.Join(dir, stem+ext); path != base {
				logger.Warn("output path collision", "generator", gen.Descriptor.Name, "path", base, "renamed", path)
			}
			claimed[strings.ToLower(path)] = true

			items = append(items, WorkItem{
				ID:               model.NewID(),
				Index:            len(items),
				Group:            g.Key,
				Unit:             gen.GroupLabel,
				Label:            gen.DisplayName,
				Generator:        gen.Descriptor.Name,
				Signature:        sig,
				Difficulty:       diff,
				ProblemCount:     opts.ProblemCount,
				OutputPath:       path,
				Title:            itemTitle,
				IncludeAnswerKey: opts.IncludeAnswerKey,
			})
		}
	}
	return items
}

// chooseDifficulty picks the override, then the group default, then the
// generator's first declared level, then easy.
func chooseDifficulty(override, group plugin.Difficulty, declared []plugin.Difficulty) plugin.Difficulty {
	switch {
	case override != "":
		return override
	case group != "":
		return group
	case len(declared) > 0:
		return declared[0]
	}
	return plugin.Easy
}
