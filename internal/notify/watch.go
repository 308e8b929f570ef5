package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
)

// Event is a decoded progress message.
type Event struct {
	Kind    string
	BatchID string
	Item    *ItemEvent
	Done    *DoneEvent
}

// WatchSubject returns the wildcard subject for one batch, or for every
// batch when batchID is empty.
func WatchSubject(batchID string) string {
	if batchID == "" {
		batchID = "*"
	}
	return fmt.Sprintf("%s.%s.*", SubjectPrefix, batchID)
}

// Decode parses a raw message published by a Notifier.
func Decode(subject string, data []byte) (Event, error) {
	batchID, kind, err := ParseSubject(subject)
	if err != nil {
		return Event{}, err
	}
	ev := Event{Kind: kind, BatchID: batchID}
	switch kind {
	case KindItem:
		ev.Item = &ItemEvent{}
		err = json.Unmarshal(data, ev.Item)
	case KindDone:
		ev.Done = &DoneEvent{}
		err = json.Unmarshal(data, ev.Done)
	}
	if err != nil {
		return Event{}, fmt.Errorf("decode %s event: %w", kind, err)
	}
	return ev, nil
}

// Watch delivers progress events to fn until ctx ends. When batchID is set,
// Watch also returns after that batch's summary arrives.
func Watch(ctx context.Context, nc *nats.Conn, batchID string, fn func(Event)) error {
	msgs := make(chan *nats.Msg, 64)
	sub, err := nc.ChanSubscribe(WatchSubject(batchID), msgs)
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-msgs:
			ev, err := Decode(msg.Subject, msg.Data)
			if err != nil {
				continue
			}
			fn(ev)
			if batchID != "" && ev.Kind == KindDone {
				return nil
			}
		}
	}
}
