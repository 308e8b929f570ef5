package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/model"
	"github.com/kazu-source/kazu-source.github.io-sub002/internal/scheduler"
)

// Recorder persists batch progress reported through scheduler hooks.
// Write failures are logged and never interrupt the batch.
type Recorder struct {
	store  Store
	target string
	logger *slog.Logger

	mu      sync.Mutex
	batchID string
}

// NewRecorder creates a Recorder that labels batches with target.
func NewRecorder(s Store, target string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: s, target: target, logger: logger}
}

// Hooks returns scheduler hooks that write to the store.
func (r *Recorder) Hooks() scheduler.Hooks {
	return scheduler.Hooks{
		OnBatchStart: r.batchStarted,
		OnItemDone:   r.itemDone,
		OnBatchDone:  r.batchDone,
	}
}

// BatchID returns the ID of the batch being recorded.
func (r *Recorder) BatchID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batchID
}

func (r *Recorder) batchStarted(batchID string, _ []scheduler.WorkItem) {
	r.mu.Lock()
	r.batchID = batchID
	r.mu.Unlock()

	b := &model.Batch{ID: batchID, Target: r.target, StartedAt: time.Now().UTC()}
	if err := r.store.CreateBatch(context.Background(), b); err != nil {
		r.logger.Error("record batch start", "batch_id", batchID, "error", err)
	}
}

func (r *Recorder) itemDone(res scheduler.ItemResult) {
	rec := ItemRecordFrom(r.BatchID(), res)
	if err := r.store.InsertItem(context.Background(), &rec); err != nil {
		r.logger.Error("record item", "batch_id", rec.BatchID, "item_id", rec.ID, "error", err)
	}
}

func (r *Recorder) batchDone(report *scheduler.BatchReport) {
	elapsed := int(report.Elapsed.Milliseconds())
	finished := time.Now().UTC()
	b := &model.Batch{
		ID:         report.ID,
		Target:     r.target,
		Attempted:  report.Attempted,
		Succeeded:  report.Succeeded,
		ElapsedMS:  &elapsed,
		StartedAt:  report.StartedAt,
		FinishedAt: &finished,
	}
	if err := r.store.FinishBatch(context.Background(), b); err != nil {
		r.logger.Error("record batch finish", "batch_id", report.ID, "error", err)
	}
}

// ItemRecordFrom converts a scheduler result into its persisted form.
func ItemRecordFrom(batchID string, res scheduler.ItemResult) model.ItemRecord {
	return model.ItemRecord{
		ID:         res.Item.ID,
		BatchID:    batchID,
		Seq:        res.Item.Index,
		Group:      res.Item.Group,
		Label:      res.Item.Label,
		Generator:  res.Item.Generator,
		OutputPath: res.Item.OutputPath,
		Status:     res.Outcome.Status,
		Message:    res.Outcome.Message,
		ExitCode:   res.Outcome.ExitCode,
		Skipped:    res.Skipped,
		DurationMS: int(res.Duration.Milliseconds()),
		FinishedAt: res.StartedAt.Add(res.Duration).UTC(),
	}
}
