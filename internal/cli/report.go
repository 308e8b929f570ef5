package cli

import (
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/scheduler"
)

// progress prints one line per finished item. Hooks may fire concurrently
// in pool mode.
type progress struct {
	mu    sync.Mutex
	w     io.Writer
	total int
	done  int
}

func newProgress(w io.Writer, total int) *progress {
	return &progress{w: w, total: total}
}

func (p *progress) Hooks() scheduler.Hooks {
	return scheduler.Hooks{OnItemDone: p.itemDone}
}

func (p *progress) itemDone(res scheduler.ItemResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++

	status := "ok"
	switch {
	case res.Skipped:
		status = "skipped"
	case !res.Outcome.OK():
		status = "FAILED: " + res.Outcome.Reason()
	}
	fmt.Fprintf(p.w, "[%d/%d] %s / %s %s ... %s (%s)\n",
		p.done, p.total, res.Item.Group, res.Item.Unit, res.Item.Label, status, formatElapsed(res.Duration))
}

// printReport writes the human-readable summary: a table per group plus the
// overall line, then the itemized failures.
func printReport(w io.Writer, r *scheduler.BatchReport, titles map[string]string) error {
	fmt.Fprintf(w, "\nBatch %s\n", r.ID)

	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tSUCCEEDED\tATTEMPTED\tSKIPPED\tRATE\tELAPSED")
	for _, g := range r.Groups {
		name := titles[g.Group]
		if name == "" {
			name = g.Group
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\t%s\n",
			name, g.Succeeded, g.Attempted, g.Skipped, formatRate(g.SuccessRate()), formatElapsed(g.Elapsed))
	}
	fmt.Fprintf(tw, "TOTAL\t%d\t%d\t%d\t%s\t%s\n",
		r.Succeeded, r.Attempted, r.Skipped, formatRate(r.SuccessRate()), formatElapsed(r.Elapsed))
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.Failures) == 0 {
		return nil
	}
	fmt.Fprintf(w, "\nFailures (%d):\n", len(r.Failures))
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, f := range r.Failures {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", f.Group, f.Label, f.Outcome.Status, f.Reason())
	}
	return tw.Flush()
}

func formatRate(r float64) string {
	return fmt.Sprintf("%.1f%%", r*100)
}

func formatElapsed(d time.Duration) string {
	return d.Round(10 * time.Millisecond).String()
}
