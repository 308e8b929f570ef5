// Package scheduler executes batches of worksheet work items, each in its
// own child process under a fixed per-item time budget, and aggregates the
// per-item outcomes into a BatchReport.
//
// Items run strictly one at a time by default. With Workers > 1 a bounded
// pool keeps up to that many children in flight; the report is then ordered
// by plan index, never by completion order.
package scheduler
