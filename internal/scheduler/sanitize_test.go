package scheduler_test

import (
	"testing"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/scheduler"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Add/Subtract?", "Add_Subtract"},
		{"Counting to 10", "Counting_to_10"},
		{`Ratio: a\b`, "Ratio_a_b"},
		{`<Mixed> "Quotes" | Pipes*`, "Mixed_Quotes_Pipes"},
		{"  spaced   out  ", "spaced_out"},
		{"already_safe", "already_safe"},
		{"???", ""},
	}
	for _, tt := range tests {
		got := scheduler.Sanitize(tt.in)
		if got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if again := scheduler.Sanitize(got); again != got {
			t.Errorf("Sanitize not idempotent for %q: %q then %q", tt.in, got, again)
		}
	}
}
