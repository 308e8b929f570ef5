package scheduler_test

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/discovery"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/plugin"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/registry"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/scheduler"
)

type levelStub struct{}

func (levelStub) GenerateWorksheet(_ plugin.Difficulty, n int) ([]plugin.Problem, error) {
	return problems(n), nil
}

func discovered(unit, display, name string, sig plugin.Signature, diffs ...plugin.Difficulty) discovery.DiscoveredGenerator {
	d := registry.Descriptor{Name: name}
	if sig == plugin.SignatureLeveled {
		d.Constructor = plugin.LeveledConstructor(func() plugin.Leveled { return levelStub{} })
	} else {
		d.Constructor = plugin.CountedConstructor(func() plugin.Counted { return counted(nil) })
	}
	return discovery.DiscoveredGenerator{
		GroupLabel:   unit,
		DisplayName:  display,
		Descriptor:   d,
		Difficulties: diffs,
	}
}

func TestPlanPathsAndTitles(t *testing.T) {
	groups := []scheduler.Group{
		{
			Key:   "grade1",
			Title: "Grade 1",
			Generators: []discovery.DiscoveredGenerator{
				discovered("Unit01", "Add/Subtract?", "add_sub", plugin.SignatureCounted),
				discovered("Unit02", "Two Digit Addition", "two_digit", plugin.SignatureLeveled, plugin.Medium, plugin.Hard),
			},
		},
		{
			Key:        "grade3",
			Title:      "Grade 3",
			Difficulty: plugin.Easy,
			Generators: []discovery.DiscoveredGenerator{
				discovered("Unit05", "Fractions", "fractions", plugin.SignatureLeveled),
			},
		},
	}

	items := scheduler.Plan(groups, scheduler.PlanOptions{
		OutputDir:        "out",
		ProblemCount:     8,
		IncludeAnswerKey: true,
		Logger:           quietLogger(),
	})
	require.Len(t, items, 3)

	type view struct {
		Index      int
		Group      string
		Path       string
		Title      string
		Difficulty plugin.Difficulty
	}
	var got []view
	for _, it := range items {
		got = append(got, view{it.Index, it.Group, filepath.ToSlash(it.OutputPath), it.Title, it.Difficulty})
		assert.NotEmpty(t, it.ID)
		assert.Equal(t, 8, it.ProblemCount)
		assert.True(t, it.IncludeAnswerKey)
	}
	want := []view{
		{0, "grade1", "out/grade1/Unit01_Add_Subtract.tex", "Grade 1 - Add/Subtract?", ""},
		{1, "grade1", "out/grade1/Unit02_Two_Digit_Addition_medium.tex", "Grade 1 - Two Digit Addition - Medium", plugin.Medium},
		{2, "grade3", "out/grade3/Unit05_Fractions_easy.tex", "Grade 3 - Fractions - Easy", plugin.Easy},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("planned items mismatch (-want +got):\n%s", diff)
	}
}

func TestPlanDifficultyOverride(t *testing.T) {
	groups := []scheduler.Group{{
		Key:        "grade2",
		Difficulty: plugin.Easy,
		Generators: []discovery.DiscoveredGenerator{
			discovered("Unit01", "Shapes", "shapes", plugin.SignatureLeveled),
			discovered("Unit01", "Counting", "counting", plugin.SignatureCounted),
		},
	}}

	items := scheduler.Plan(groups, scheduler.PlanOptions{OutputDir: "out", Difficulty: plugin.Challenge, Logger: quietLogger()})
	require.Len(t, items, 2)
	assert.Equal(t, plugin.Challenge, items[0].Difficulty)
	assert.Equal(t, "grade2 - Shapes - Challenge", items[0].Title)
	assert.Equal(t, plugin.Difficulty(""), items[1].Difficulty, "counted generators ignore difficulty")
	assert.Equal(t, "out/grade2/Unit01_Counting.tex", filepath.ToSlash(items[1].OutputPath))
}

func TestPlanDisambiguatesCollisions(t *testing.T) {
	groups := []scheduler.Group{{
		Key: "demo",
		Generators: []discovery.DiscoveredGenerator{
			discovered("Unit01", "Add/Subtract", "a", plugin.SignatureCounted),
			discovered("Unit01", "Add Subtract", "b", plugin.SignatureCounted),
			discovered("Unit01", "Add:Subtract", "c", plugin.SignatureCounted),
			discovered("Unit01", "Add_Subtract", "d", plugin.SignatureCounted),
		},
	}}

	items := scheduler.Plan(groups, scheduler.PlanOptions{OutputDir: "out", Logger: quietLogger()})
	require.Len(t, items, 4)

	paths := make(map[string]bool)
	for _, it := range items {
		assert.False(t, paths[it.OutputPath], "duplicate output path %s", it.OutputPath)
		paths[it.OutputPath] = true
	}
	assert.Equal(t, "out/demo/Unit01_Add_Subtract.tex", filepath.ToSlash(items[0].OutputPath))
	assert.Equal(t, "out/demo/Unit01_Add_Subtract_2.tex", filepath.ToSlash(items[1].OutputPath))
	assert.Equal(t, "out/demo/Unit01_AddSubtract.tex", filepath.ToSlash(items[2].OutputPath))
	assert.Equal(t, "out/demo/Unit01_Add_Subtract_3.tex", filepath.ToSlash(items[3].OutputPath))
}

func TestWorkItemRequest(t *testing.T) {
	it := scheduler.WorkItem{
		ID:           "01J",
		Generator:    "shapes",
		Signature:    plugin.SignatureLeveled,
		Difficulty:   plugin.Hard,
		ProblemCount: 5,
		OutputPath:   "out/x.tex",
		Title:        "X",
	}
	req := it.Request()
	assert.Equal(t, "01J", req.ItemID)
	assert.Equal(t, "leveled", req.Signature)
	assert.Equal(t, "hard", req.Difficulty)
	assert.Equal(t, 5, req.ProblemCount)
}
