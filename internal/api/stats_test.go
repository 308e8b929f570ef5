package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kazu-source/kazu-source.github.io-sub002/internal/model"
)

func seedBatch(t *testing.T, srv *Server, statuses ...string) *model.Batch {
	t.Helper()
	ctx := context.Background()
	b := &model.Batch{ID: model.NewID(), Target: "grade1", StartedAt: time.Now().UTC().Truncate(time.Second)}
	if err := srv.store.CreateBatch(ctx, b); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	succeeded := 0
	for i, status := range statuses {
		rec := &model.ItemRecord{
			ID:         model.NewID(),
			BatchID:    b.ID,
			Seq:        i,
			Group:      "grade1",
			Label:      "Unit",
			Generator:  "addition_within_20",
			OutputPath: "out.tex",
			Status:     status,
			DurationMS: 100,
			FinishedAt: time.Now().UTC(),
		}
		if err := srv.store.InsertItem(ctx, rec); err != nil {
			t.Fatalf("InsertItem: %v", err)
		}
		if status == model.StatusSucceeded {
			succeeded++
		}
	}
	elapsed := 100 * len(statuses)
	finished := time.Now().UTC().Truncate(time.Second)
	b.Attempted, b.Succeeded, b.ElapsedMS, b.FinishedAt = len(statuses), succeeded, &elapsed, &finished
	if err := srv.store.FinishBatch(ctx, b); err != nil {
		t.Fatalf("FinishBatch: %v", err)
	}
	return b
}

func TestGetStats(t *testing.T) {
	srv := newTestServer(t)
	seedBatch(t, srv, model.StatusSucceeded, model.StatusSucceeded, model.StatusTimeout)
	seedBatch(t, srv, model.StatusSucceeded)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/stats")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var stats statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if stats.Batches != 2 {
		t.Errorf("batches = %d, want 2", stats.Batches)
	}
	if stats.Items != 4 {
		t.Errorf("items = %d, want 4", stats.Items)
	}
	if stats.ByStatus[model.StatusSucceeded] != 3 {
		t.Errorf("by_status[succeeded] = %d, want 3", stats.ByStatus[model.StatusSucceeded])
	}
	if stats.ByStatus[model.StatusTimeout] != 1 {
		t.Errorf("by_status[timeout] = %d, want 1", stats.ByStatus[model.StatusTimeout])
	}
	if stats.AvgDurationMS != 100 {
		t.Errorf("avg_duration_ms = %f, want 100", stats.AvgDurationMS)
	}
	if stats.SuccessRate != 0.75 {
		t.Errorf("success_rate = %f, want 0.75", stats.SuccessRate)
	}
}

func TestGetStatsEmpty(t *testing.T) {
	srv := newTestServer(t)

	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/stats")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var stats statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Items != 0 || stats.SuccessRate != 0 {
		t.Errorf("stats = %+v, want zero", stats)
	}
}
