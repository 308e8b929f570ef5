// Package protocol defines the framed messages exchanged between the batch
// scheduler and a worker child process.
//
// Every frame is a 4-byte big-endian length prefix followed by a JSON payload.
// The parent writes exactly one WorkRequest to the child's stdin. The child
// writes zero or more log frames followed by at most one result frame to its
// result pipe.
package protocol

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxMessageSize is the maximum allowed frame payload (16 MiB).
const MaxMessageSize = 16 << 20

// Result status values reported by a worker.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Child→parent message types.
const (
	MsgTypeLog    = "log"
	MsgTypeResult = "result"
)

// ErrNoResult is returned by ReadResult when the stream ends before a result
// frame arrives.
var ErrNoResult = errors.New("no result frame")

// WorkRequest is the payload sent from the scheduler to a worker.
type WorkRequest struct {
	ItemID           string `json:"item_id"`
	Generator        string `json:"generator"`
	Signature        string `json:"signature"`
	Difficulty       string `json:"difficulty,omitempty"`
	ProblemCount     int    `json:"problem_count"`
	OutputPath       string `json:"output_path"`
	Title            string `json:"title"`
	IncludeAnswerKey bool   `json:"include_answer_key"`
}

// WorkResult is the single result a worker reports for its request.
type WorkResult struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Message is the envelope for all child→parent frames.
type Message struct {
	Type   string      `json:"type"`
	Line   string      `json:"line,omitempty"`
	Result *WorkResult `json:"result,omitempty"`
}

// WriteMessage writes a length-prefixed JSON message to w.
func WriteMessage(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if len(data) > MaxMessageSize {
		return fmt.Errorf("message size %d exceeds maximum %d", len(data), MaxMessageSize)
	}

	length := uint32(len(data))
	if err := binary.Write(w, binary.BigEndian, length); err != nil {
		return fmt.Errorf("write length prefix: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write payload: %w", err)
	}

	return nil
}

// ReadMessage reads a length-prefixed JSON message from r and decodes it into v.
func ReadMessage(r io.Reader, v any) error {
	var length uint32
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		return fmt.Errorf("read length prefix: %w", err)
	}

	if length > MaxMessageSize {
		return fmt.Errorf("message size %d exceeds maximum %d", length, MaxMessageSize)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return fmt.Errorf("read payload: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal message: %w", err)
	}

	return nil
}

// WriteLog sends a single log line frame.
func WriteLog(w io.Writer, line string) error {
	return WriteMessage(w, &Message{Type: MsgTypeLog, Line: line})
}

// WriteResult sends the terminal result frame.
func WriteResult(w io.Writer, res WorkResult) error {
	return WriteMessage(w, &Message{Type: MsgTypeResult, Result: &res})
}

// ReadResult reads frames from r until a result frame arrives. Log lines are
// passed to logf when it is non-nil. A clean end of stream before any result
// returns ErrNoResult.
func ReadResult(r io.Reader, logf func(string)) (WorkResult, error) {
	for {
		var msg Message
		if err := ReadMessage(r, &msg); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return WorkResult{}, ErrNoResult
			}
			return WorkResult{}, fmt.Errorf("read worker message: %w", err)
		}

		switch msg.Type {
		case MsgTypeLog:
			if logf != nil {
				logf(msg.Line)
			}
		case MsgTypeResult:
			if msg.Result == nil {
				return WorkResult{}, fmt.Errorf("received result message with nil result")
			}
			return *msg.Result, nil
		default:
			return WorkResult{}, fmt.Errorf("unknown message type: %q", msg.Type)
		}
	}
}
