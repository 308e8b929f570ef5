// Package catalog contains the built-in generators shipped with the binary
// and registers them explicitly into a registry at startup.
package catalog

import (
	"fmt"
	"math/rand/v2"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/plugin"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/registry"
)

// Categories used by the built-in catalog.
const (
	CategoryNumberSense = "number_sense"
	CategoryArithmetic  = "arithmetic"
	CategoryPlaceValue  = "place_value"
)

// Descriptors returns the built-in generator descriptors in registration
// order.
func Descriptors() []registry.Descriptor {
	return []registry.Descriptor{
		{
			Name:        "counting_objects",
			Category:    CategoryNumberSense,
			Description: "Count a row of objects up to 10",
			Constructor: plugin.CountedConstructor(func() plugin.Counted { return &countingObjects{rng: newRand()} }),
		},
		{
			Name:        "comparing_numbers",
			Category:    CategoryNumberSense,
			Description: "Compare two numbers up to 20 with <, > or =",
			Constructor: plugin.CountedConstructor(func() plugin.Counted { return &comparingNumbers{rng: newRand()} }),
		},
		{
			Name:        "addition_within_10",
			Category:    CategoryArithmetic,
			Description: "Add two numbers with a sum up to 10",
			Constructor: plugin.CountedConstructor(func() plugin.Counted { return &additionWithin10{rng: newRand()} }),
		},
		{
			Name:        "addition_within_20",
			Category:    CategoryArithmetic,
			Description: "Addition strategies with sums up to 20",
			Constructor: plugin.LeveledConstructor(func() plugin.Leveled { return &additionWithin20{rng: newRand()} }),
		},
		{
			Name:        "subtraction_within_20",
			Category:    CategoryArithmetic,
			Description: "Subtraction with numbers up to 20",
			Constructor: plugin.LeveledConstructor(func() plugin.Leveled { return &subtractionWithin20{rng: newRand()} }),
		},
		{
			Name:        "place_value_tens_ones",
			Category:    CategoryPlaceValue,
			Description: "Decompose two-digit numbers into tens and ones",
			Constructor: plugin.CountedConstructor(func() plugin.Counted { return &placeValue{rng: newRand()} }),
		},
		{
			Name:        "two_digit_addition",
			Category:    CategoryArithmetic,
			Description: "Add two-digit numbers with and without regrouping",
			Constructor: plugin.LeveledConstructor(func() plugin.Leveled { return &twoDigitAddition{rng: newRand()} }),
		},
	}
}

// RegisterAll registers every built-in generator into reg.
func RegisterAll(reg *registry.Registry) error {
	for _, d := range Descriptors() {
		if err := reg.Register(d); err != nil {
			return fmt.Errorf("register built-in generators: %w", err)
		}
	}
	return nil
}

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}

// between returns a uniform integer in [lo, hi].
func between(rng *rand.Rand, lo, hi int) int {
	return lo + rng.IntN(hi-lo+1)
}
