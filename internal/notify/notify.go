// Package notify publishes batch progress events to NATS.
package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/scheduler"
)

// SubjectPrefix is the root of every progress subject.
const SubjectPrefix = "mathsheets.batch"

// Event kinds.
const (
	KindItem = "item"
	KindDone = "done"
)

// Publisher is the subset of *nats.Conn used to emit events.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// ItemEvent reports the terminal outcome of one item.
type ItemEvent struct {
	BatchID    string `json:"batch_id"`
	ItemID     string `json:"item_id"`
	Index      int    `json:"index"`
	Group      string `json:"group"`
	Label      string `json:"label"`
	Status     string `json:"status"`
	Reason     string `json:"reason,omitempty"`
	Skipped    bool   `json:"skipped,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// DoneEvent summarizes a finished batch.
type DoneEvent struct {
	BatchID   string    `json:"batch_id"`
	Attempted int       `json:"attempted"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	ElapsedMS int64     `json:"elapsed_ms"`
	Finished  time.Time `json:"finished"`
}

// ItemSubject returns the subject item events of a batch are published on.
func ItemSubject(batchID string) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, batchID, KindItem)
}

// DoneSubject returns the subject the batch summary is published on.
func DoneSubject(batchID string) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, batchID, KindDone)
}

// ParseSubject extracts the batch ID and event kind from
// "mathsheets.batch.<id>.<kind>".
func ParseSubject(subject string) (batchID, kind string, err error) {
	rest, ok := strings.CutPrefix(subject, SubjectPrefix+".")
	if !ok {
		return "", "", fmt.Errorf("subject %q outside %s", subject, SubjectPrefix)
	}
	parts := strings.Split(rest, ".")
	if len(parts) != 2 || parts[0] == "" {
		return "", "", fmt.Errorf("expected <batch>.<kind>, got %q", rest)
	}
	switch parts[1] {
	case KindItem, KindDone:
		return parts[0], parts[1], nil
	}
	return "", "", fmt.Errorf("unknown event kind %q", parts[1])
}

// Notifier turns scheduler hooks into published events. Publish failures are
// logged and never interrupt the batch.
type Notifier struct {
	pub    Publisher
	conn   *nats.Conn
	logger *slog.Logger

	mu      sync.Mutex
	batchID string
}

// New creates a Notifier over an existing publisher.
func New(pub Publisher, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{pub: pub, logger: logger}
}

// Connect dials the NATS server at url and returns a Notifier that owns the
// connection.
func Connect(url string, logger *slog.Logger) (*Notifier, error) {
	nc, err := nats.Connect(url, nats.Name("mathsheets"), nats.Timeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	n := New(nc, logger)
	n.conn = nc
	return n, nil
}

// Close drains the owned connection, if any.
func (n *Notifier) Close() {
	if n.conn == nil {
		return
	}
	if err := n.conn.Drain(); err != nil {
		n.logger.Warn("nats drain", "error", err)
	}
}

// Hooks returns scheduler hooks that publish progress.
func (n *Notifier) Hooks() scheduler.Hooks {
	return scheduler.Hooks{
		OnBatchStart: func(batchID string, _ []scheduler.WorkItem) {
			n.mu.Lock()
			n.batchID = batchID
			n.mu.Unlock()
		},
		OnItemDone:  n.itemDone,
		OnBatchDone: n.batchDone,
	}
}

func (n *Notifier) currentBatch() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.batchID
}

func (n *Notifier) itemDone(res scheduler.ItemResult) {
	batchID := n.currentBatch()
	ev := ItemEvent{
		BatchID:    batchID,
		ItemID:     res.Item.ID,
		Index:      res.Item.Index,
		Group:      res.Item.Group,
		Label:      res.Item.Label,
		Status:     res.Outcome.Status,
		Skipped:    res.Skipped,
		DurationMS: res.Duration.Milliseconds(),
	}
	if !res.Outcome.OK() {
		ev.Reason = res.Outcome.Reason()
	}
	n.publish(ItemSubject(batchID), ev)
}

func (n *Notifier) batchDone(report *scheduler.BatchReport) {
	n.publish(DoneSubject(report.ID), DoneEvent{
		BatchID:   report.ID,
		Attempted: report.Attempted,
		Succeeded: report.Succeeded,
		Failed:    len(report.Failures),
		ElapsedMS: report.Elapsed.Milliseconds(),
		Finished:  time.Now().UTC(),
	})
}

func (n *Notifier) publish(subject string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		n.logger.Error("marshal event", "subject", subject, "error", err)
		return
	}
	if err := n.pub.Publish(subject, data); err != nil {
		n.logger.Warn("publish event", "subject", subject, "error", err)
	}
}
