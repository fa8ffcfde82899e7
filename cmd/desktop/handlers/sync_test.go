// Package handlers tests for sync REST endpoints.
// These tests verify HTTP request handling, status codes, and responses.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/arbitroy/stockflow/backend/internal/db"
	apperrors "github.com/arbitroy/stockflow/backend/internal/errors"
	syncpkg "github.com/arbitroy/stockflow/backend/internal/sync"
	"github.com/arbitroy/stockflow/backend/internal/sync/queue"
	"github.com/arbitroy/stockflow/backend/internal/sync/scheduler"
)

type stubScheduler struct {
	status scheduler.SchedulerStatus
	result *syncpkg.SyncResult
	err    error
}

func (s *stubScheduler) Status() scheduler.SchedulerStatus { return s.status }

func (s *stubScheduler) TriggerSync(ctx context.Context) (*syncpkg.SyncResult, error) {
	return s.result, s.err
}

type stubSwitch struct{ enabled bool }

func (s *stubSwitch) SetOfflineMode(enabled bool) { s.enabled = enabled }
func (s *stubSwitch) OfflineMode() bool           { return s.enabled }

func newTestQueue(t *testing.T) *queue.Queue {
	q := queue.New(db.NewMemoryStore(), queue.Options{})
	if _, err := q.Enqueue(queue.DeleteStock{ID: "item-1"}); err != nil {
		t.Fatalf("Failed to enqueue: %v", err)
	}
	return q
}

func TestSyncHandler_GetStatus(t *testing.T) {
	last := time.Now().Add(-3 * time.Minute)
	sched := &stubScheduler{status: scheduler.SchedulerStatus{IsOnline: true, PendingItems: 1, LastSyncTime: &last}}
	handler := NewSyncHandler(sched, newTestQueue(t), &stubSwitch{})

	req := httptest.NewRequest(http.MethodGet, "/sync/status", nil)
	w := httptest.NewRecorder()
	handler.GetStatus(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response["online"] != true {
		t.Errorf("Expected online true, got %v", response["online"])
	}
	if response["pending_changes"] != float64(1) {
		t.Errorf("Expected 1 pending change, got %v", response["pending_changes"])
	}
	if response["last_sync_human"] != "3 minutes ago" {
		t.Errorf("Expected '3 minutes ago', got %v", response["last_sync_human"])
	}
	if response["last_sync"] != float64(last.Unix()) {
		t.Errorf("Expected last_sync %d, got %v", last.Unix(), response["last_sync"])
	}
}

func TestSyncHandler_GetStatus_NeverSynced(t *testing.T) {
	handler := NewSyncHandler(&stubScheduler{}, nil, &stubSwitch{})

	req := httptest.NewRequest(http.MethodGet, "/sync/status", nil)
	w := httptest.NewRecorder()
	handler.GetStatus(w, req)

	var response map[string]interface{}
	json.NewDecoder(w.Body).Decode(&response)
	if response["last_sync_human"] != "never" {
		t.Errorf("Expected 'never', got %v", response["last_sync_human"])
	}
	if _, ok := response["last_sync"]; ok {
		t.Error("last_sync should be absent before the first sync")
	}
}

func TestSyncHandler_TriggerSync(t *testing.T) {
	tests := []struct {
		name       string
		result     *syncpkg.SyncResult
		err        error
		wantCode   int
		wantStatus string
	}{
		{
			name:       "clean pass",
			result:     &syncpkg.SyncResult{Succeeded: 2, Duration: 40 * time.Millisecond},
			wantCode:   http.StatusOK,
			wantStatus: "success",
		},
		{
			name:       "partial pass",
			result:     &syncpkg.SyncResult{Succeeded: 1, Failed: 1},
			wantCode:   http.StatusOK,
			wantStatus: "partial",
		},
		{
			name:       "nothing to do",
			err:        syncpkg.ErrQueueEmpty,
			wantCode:   http.StatusOK,
			wantStatus: "skipped",
		},
		{
			name:     "already running",
			err:      syncpkg.ErrSyncInProgress,
			wantCode: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewSyncHandler(&stubScheduler{result: tt.result, err: tt.err}, nil, &stubSwitch{})

			req := httptest.NewRequest(http.MethodPost, "/sync/now", nil)
			w := httptest.NewRecorder()
			handler.TriggerSync(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("Expected status %d, got %d. Body: %s", tt.wantCode, w.Code, w.Body.String())
			}
			if tt.wantStatus == "" {
				return
			}
			var response map[string]interface{}
			json.NewDecoder(w.Body).Decode(&response)
			if response["status"] != tt.wantStatus {
				t.Errorf("Expected status %q, got %v", tt.wantStatus, response["status"])
			}
		})
	}
}

func TestSyncHandler_ListQueue(t *testing.T) {
	handler := NewSyncHandler(&stubScheduler{}, newTestQueue(t), &stubSwitch{})

	req := httptest.NewRequest(http.MethodGet, "/sync/queue", nil)
	w := httptest.NewRecorder()
	handler.ListQueue(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var response struct {
		Pending int `json:"pending"`
		Actions []struct {
			Summary string `json:"summary"`
			Action  struct {
				Type   string `json:"type"`
				Entity string `json:"entity"`
			} `json:"action"`
		} `json:"actions"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if response.Pending != 1 || len(response.Actions) != 1 {
		t.Fatalf("Expected 1 action, got %d", len(response.Actions))
	}
	if response.Actions[0].Summary != "DELETE STOCK" {
		t.Errorf("Expected summary 'DELETE STOCK', got %q", response.Actions[0].Summary)
	}
	if response.Actions[0].Action.Type != "DELETE" {
		t.Errorf("Expected type DELETE, got %q", response.Actions[0].Action.Type)
	}
}

func TestSyncHandler_SetOfflineMode(t *testing.T) {
	sw := &stubSwitch{}
	handler := NewSyncHandler(&stubScheduler{}, nil, sw)

	req := httptest.NewRequest(http.MethodPut, "/sync/offline-mode", bytes.NewReader([]byte(`{"enabled":true}`)))
	w := httptest.NewRecorder()
	handler.SetOfflineMode(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !sw.enabled {
		t.Error("Expected offline mode to be enabled")
	}

	req = httptest.NewRequest(http.MethodPut, "/sync/offline-mode", bytes.NewReader([]byte(`{}`)))
	w = httptest.NewRecorder()
	handler.SetOfflineMode(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := map[apperrors.ErrorCode]int{
		apperrors.ErrInvalid:           http.StatusBadRequest,
		apperrors.ErrValidation:        http.StatusBadRequest,
		apperrors.ErrNotFound:          http.StatusNotFound,
		apperrors.ErrInsufficientStock: http.StatusConflict,
		apperrors.ErrQueueFull:         http.StatusServiceUnavailable,
		apperrors.ErrConnectivity:      http.StatusServiceUnavailable,
		apperrors.ErrRemote:            http.StatusBadGateway,
		apperrors.ErrInternal:          http.StatusInternalServerError,
	}
	for code, want := range tests {
		if got := statusFor(code); got != want {
			t.Errorf("statusFor(%s) = %d, want %d", code, got, want)
		}
	}
}
