package plugin

import (
	"fmt"
	"strings"
)

// APIVersion is the version of the generator contract. Manifests may pin a
// semver constraint against it.
const APIVersion = "1.2.0"

// Difficulty selects the problem level for leveled generators.
type Difficulty string

// Supported difficulties.
const (
	Easy      Difficulty = "easy"
	Medium    Difficulty = "medium"
	Hard      Difficulty = "hard"
	Challenge Difficulty = "challenge"
)

// Difficulties lists every supported difficulty in ascending order.
var Difficulties = []Difficulty{Easy, Medium, Hard, Challenge}

// ParseDifficulty converts s into a Difficulty. The empty string parses to
// the empty Difficulty, meaning "not applicable".
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if d == "" {
		return "", nil
	}
	for _, known := range Difficulties {
		if d == known {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown difficulty %q", s)
}

// Title returns the difficulty with its first letter upper-cased ("Easy").
func (d Difficulty) Title() string {
	if d == "" {
		return ""
	}
	return strings.ToUpper(string(d[:1])) + string(d[1:])
}

// Problem is one generated exercise. The scheduler never inspects it; only
// the renderer does.
type Problem struct {
	LaTeX      string     `json:"latex"`
	Solution   string     `json:"solution"`
	Steps      []string   `json:"steps,omitempty"`
	Difficulty Difficulty `json:"difficulty,omitempty"`
}

// Leveled is implemented by generators that accept a difficulty.
type Leveled interface {
	GenerateWorksheet(difficulty Difficulty, count int) ([]Problem, error)
}

// Counted is implemented by generators with no difficulty axis.
type Counted interface {
	GenerateWorksheet(count int) ([]Problem, error)
}

// Signature records which capability shape a generator implements.
type Signature string

// Known signatures.
const (
	SignatureLeveled Signature = "leveled"
	SignatureCounted Signature = "counted"
)

// ParseSignature validates s as a known Signature.
func ParseSignature(s string) (Signature, error) {
	switch Signature(s) {
	case SignatureLeveled, SignatureCounted:
		return Signature(s), nil
	}
	return "", fmt.Errorf("unknown capability signature %q", s)
}
