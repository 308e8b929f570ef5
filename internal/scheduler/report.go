package scheduler

import (
	"time"
)

// MaxReasonLen bounds failure reasons in reports, in runes.
const MaxReasonLen = 50

// ItemResult is the terminal record of one work item.
type ItemResult struct {
	Item      WorkItem      `json:"item"`
	Outcome   Outcome       `json:"outcome"`
	Skipped   bool          `json:"skipped,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Failure is one non-successful item in a report.
type Failure struct {
	Label   string  `json:"label"`
	Group   string  `json:"group"`
	Outcome Outcome `json:"outcome"`
}

// Reason returns the failure's truncated reason.
func (f Failure) Reason() string {
	return f.Outcome.Reason()
}

// GroupReport aggregates the items of one group. Elapsed is wall time from
// the first item start to the last item finish.
type GroupReport struct {
	Group     string        `json:"group"`
	Attempted int           `json:"attempted"`
	Succeeded int           `json:"succeeded"`
	Skipped   int           `json:"skipped"`
	Failures  []Failure     `json:"failures"`
	Elapsed   time.Duration `json:"elapsed"`
}

// SuccessRate returns the fraction of attempted items that succeeded.
func (g GroupReport) SuccessRate() float64 {
	return rate(g.Succeeded, g.Attempted)
}

// BatchReport is the aggregated result of one scheduling pass. It is built
// only after every item is terminal and is not modified afterwards.
type BatchReport struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	Attempted int           `json:"attempted"`
	Succeeded int           `json:"succeeded"`
	Skipped   int           `json:"skipped"`
	Failures  []Failure     `json:"failures"`
	Elapsed   time.Duration `json:"elapsed"`
	Groups    []GroupReport `json:"groups"`
	Items     []ItemResult  `json:"items"`
}

// SuccessRate returns the fraction of attempted items that succeeded.
func (r *BatchReport) SuccessRate() float64 {
	return rate(r.Succeeded, r.Attempted)
}

// HasFailures reports whether any item did not succeed.
func (r *BatchReport) HasFailures() bool {
	return len(r.Failures) > 0
}

func rate(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// buildReport aggregates results, which must already be in plan order.
// Groups appear in order of first occurrence.
func buildReport(id string, started time.Time, elapsed time.Duration, results []ItemResult) *BatchReport {
	r := &BatchReport{
		ID:        id,
		StartedAt: started,
		Elapsed:   elapsed,
		Failures:  []Failure{},
		Groups:    []GroupReport{},
		Items:     results,
	}
	index := make(map[string]int)
	var spans []span
	for _, res := range results {
		gi, ok := index[res.Item.Group]
		if !ok {
			gi = len(r.Groups)
			index[res.Item.Group] = gi
			r.Groups = append(r.Groups, GroupReport{Group: res.Item.Group, Failures: []Failure{}})
			spans = append(spans, span{start: res.StartedAt, end: res.StartedAt})
		}
		g := &r.Groups[gi]
		spans[gi].add(res.StartedAt, res.StartedAt.Add(res.Duration))

		r.Attempted++
		g.Attempted++
		if res.Skipped {
			r.Skipped++
			g.Skipped++
		}
		if res.Outcome.OK() {
			r.Succeeded++
			g.Succeeded++
			continue
		}

		f := Failure{Label: res.Item.Label, Group: res.Item.Group, Outcome: res.Outcome}
		f.Outcome.Message = truncate(f.Outcome.Message, MaxReasonLen)
		r.Failures = append(r.Failures, f)
		g.Failures = append(g.Failures, f)
	}
	for i := range r.Groups {
		r.Groups[i].Elapsed = spans[i].end.Sub(spans[i].start)
	}
	return r
}

type span struct {
	start, end time.Time
}

func (s *span) add(start, end time.Time) {
	if start.Before(s.start) {
		s.start = start
	}
	if end.After(s.end) {
		s.end = end
	}
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
