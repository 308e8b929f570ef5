package catalog

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/plugin"
)

type countingObjects struct{ rng *rand.Rand }

func (g *countingObjects) GenerateWorksheet(count int) ([]plugin.Problem, error) {
	out := make([]plugin.Problem, 0, count)
	for range count {
		n := between(g.rng, 1, 10)
		stars := strings.TrimSpace(strings.Repeat(`\star\ `, n))
		out = append(out, plugin.Problem{
			LaTeX:    fmt.Sprintf(`%s \quad \text{How many?}`, stars),
			Solution: fmt.Sprint(n),
		})
	}
	return out, nil
}

type comparingNumbers struct{ rng *rand.Rand }

func (g *comparingNumbers) GenerateWorksheet(count int) ([]plugin.Problem, error) {
	out := make([]plugin.Problem, 0, count)
	for range count {
		a, b := between(g.rng, 0, 20), between(g.rng, 0, 20)
		sign := "="
		switch {
		case a < b:
			sign = "<"
		case a > b:
			sign = ">"
		}
		out = append(out, plugin.Problem{
			LaTeX:    fmt.Sprintf(`%d \;\square\; %d`, a, b),
			Solution: fmt.Sprintf("%d %s %d", a, sign, b),
		})
	}
	return out, nil
}

type additionWithin10 struct{ rng *rand.Rand }

func (g *additionWithin10) GenerateWorksheet(count int) ([]plugin.Problem, error) {
	out := make([]plugin.Problem, 0, count)
	for range count {
		a := between(g.rng, 0, 10)
		b := between(g.rng, 0, 10-a)
		out = append(out, plugin.Problem{
			LaTeX:    fmt.Sprintf("%d + %d = ", a, b),
			Solution: fmt.Sprint(a + b),
		})
	}
	return out, nil
}

type additionWithin20 struct{ rng *rand.Rand }

func (g *additionWithin20) GenerateWorksheet(d plugin.Difficulty, count int) ([]plugin.Problem, error) {
	out := make([]plugin.Problem, 0, count)
	for range count {
		var a, b int
		switch d {
		case plugin.Easy:
			a, b = between(g.rng, 1, 10), between(g.rng, 1, 10)
		case plugin.Medium:
			a = between(g.rng, 5, 15)
			b = between(g.rng, 1, 20-a)
		case plugin.Hard:
			a = between(g.rng, 8, 18)
			b = between(g.rng, 1, 20-a)
		default:
			// Missing addend.
			total := between(g.rng, 10, 20)
			a = between(g.rng, 5, total-5)
			out = append(out, plugin.Problem{
				LaTeX:      fmt.Sprintf(`%d + \underline{\quad} = %d`, a, total),
				Solution:   fmt.Sprint(total - a),
				Steps:      []string{fmt.Sprintf("%d - %d = %d", total, a, total-a)},
				Difficulty: d,
			})
			continue
		}
		out = append(out, plugin.Problem{
			LaTeX:      fmt.Sprintf("%d + %d = ", a, b),
			Solution:   fmt.Sprint(a + b),
			Difficulty: d,
		})
	}
	return out, nil
}

type subtractionWithin20 struct{ rng *rand.Rand }

func (g *subtractionWithin20) GenerateWorksheet(d plugin.Difficulty, count int) ([]plugin.Problem, error) {
	hi := map[plugin.Difficulty]int{plugin.Easy: 10, plugin.Medium: 15, plugin.Hard: 20, plugin.Challenge: 20}[d]
	if hi == 0 {
		return nil, fmt.Errorf("unsupported difficulty %q", d)
	}
	out := make([]plugin.Problem, 0, count)
	for range count {
		a := between(g.rng, 1, hi)
		b := between(g.rng, 0, a)
		p := plugin.Problem{
			LaTeX:      fmt.Sprintf("%d - %d = ", a, b),
			Solution:   fmt.Sprint(a - b),
			Difficulty: d,
		}
		if d == plugin.Challenge {
			p.LaTeX = fmt.Sprintf(`%d - \underline{\quad} = %d`, a, a-b)
			p.Solution = fmt.Sprint(b)
		}
		out = append(out, p)
	}
	return out, nil
}

type placeValue struct{ rng *rand.Rand }

func (g *placeValue) GenerateWorksheet(count int) ([]plugin.Problem, error) {
	out := make([]plugin.Problem, 0, count)
	for range count {
		n := between(g.rng, 10, 99)
		out = append(out, plugin.Problem{
			LaTeX:    fmt.Sprintf(`%d = \underline{\quad}\text{ tens } + \underline{\quad}\text{ ones}`, n),
			Solution: fmt.Sprintf("%d tens + %d ones", n/10, n%10),
		})
	}
	return out, nil
}

type twoDigitAddition struct{ rng *rand.Rand }

func (g *twoDigitAddition) GenerateWorksheet(d plugin.Difficulty, count int) ([]plugin.Problem, error) {
	out := make([]plugin.Problem, 0, count)
	for range count {
		var a, b int
		switch d {
		case plugin.Easy:
			// No regrouping.
			a = between(g.rng, 10, 89)
			b = between(g.rng, 10, 99-a)
			for a%10+b%10 >= 10 {
				b = between(g.rng, 10, 99-a)
			}
		case plugin.Medium:
			a, b = between(g.rng, 10, 49), between(g.rng, 10, 49)
		default:
			a, b = between(g.rng, 25, 99), between(g.rng, 25, 99)
		}
		p := plugin.Problem{
			LaTeX:      fmt.Sprintf("%d + %d = ", a, b),
			Solution:   fmt.Sprint(a + b),
			Difficulty: d,
		}
		if d == plugin.Hard || d == plugin.Challenge {
			p.Steps = []string{
				fmt.Sprintf("%d + %d = %d", a/10*10, b/10*10, a/10*10+b/10*10),
				fmt.Sprintf("%d + %d = %d", a%10, b%10, a%10+b%10),
			}
		}
		out = append(out, p)
	}
	return out, nil
}
