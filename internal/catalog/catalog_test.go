package catalog_test

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/catalog"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/plugin"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/registry"
)

func TestRegisterAll(t *testing.T) {
	reg := registry.New()
	require.NoError(t, catalog.RegisterAll(reg))
	assert.Equal(t, len(catalog.Descriptors()), reg.Len())

	assert.Equal(t,
		[]string{catalog.CategoryArithmetic, catalog.CategoryNumberSense, catalog.CategoryPlaceValue},
		reg.ListCategories())

	d, ok := reg.LookupClass("AdditionWithin20Generator")
	require.True(t, ok)
	assert.Equal(t, plugin.SignatureLeveled, d.Signature())

	// A second pass must fail loudly rather than overwrite.
	err := catalog.RegisterAll(reg)
	assert.True(t, errors.Is(err, registry.ErrAlreadyRegistered), "second RegisterAll error = %v", err)
}

func TestEveryGeneratorProducesProblems(t *testing.T) {
	for _, d := range catalog.Descriptors() {
		t.Run(d.Name, func(t *testing.T) {
			inst, err := d.Constructor.New()
			require.NoError(t, err)

			difficulties := []plugin.Difficulty{""}
			if inst.Signature() == plugin.SignatureLeveled {
				difficulties = plugin.Difficulties
			}
			for _, diff := range difficulties {
				problems, err := inst.Generate(diff, 25)
				require.NoError(t, err, "difficulty %q", diff)
				require.Len(t, problems, 25)
				for _, p := range problems {
					assert.NotEmpty(t, p.LaTeX)
					assert.NotEmpty(t, p.Solution)
				}
			}
		})
	}
}

func TestAdditionWithin10Bounds(t *testing.T) {
	var d registry.Descriptor
	for _, desc := range catalog.Descriptors() {
		if desc.Name == "addition_within_10" {
			d = desc
		}
	}
	inst, err := d.Constructor.New()
	require.NoError(t, err)

	problems, err := inst.Generate("", 200)
	require.NoError(t, err)
	for _, p := range problems {
		sum, err := strconv.Atoi(p.Solution)
		require.NoError(t, err)
		assert.LessOrEqual(t, sum, 10, "problem %q", p.LaTeX)
		assert.True(t, strings.HasSuffix(p.LaTeX, "= "))
	}
}
