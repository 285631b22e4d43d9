package httpt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"cartographer-notify/internal/entity"
	"cartographer-notify/internal/service"
	"cartographer-notify/pkg/postgres"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type memPrefStore struct {
	mu      sync.Mutex
	network map[string]*entity.Preferences
	global  map[string]*entity.Preferences
}

func newMemPrefStore() *memPrefStore {
	return &memPrefStore{
		network: make(map[string]*entity.Preferences),
		global:  make(map[string]*entity.Preferences),
	}
}

func (m *memPrefStore) GetNetwork(_ context.Context, _ postgres.QueryExecuter, userID, networkID string) (*entity.Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.network[userID+"|"+networkID]
	if !ok {
		return nil, entity.ErrDataNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPrefStore) GetGlobal(_ context.Context, _ postgres.QueryExecuter, userID string) (*entity.Preferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.global[userID]
	if !ok {
		return nil, entity.ErrDataNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPrefStore) Upsert(_ context.Context, _ postgres.QueryExecuter, p *entity.Preferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	if p.NetworkID == "" {
		m.global[p.UserID] = &cp
	} else {
		m.network[p.UserID+"|"+p.NetworkID] = &cp
	}
	return nil
}

func (m *memPrefStore) DeleteNetwork(_ context.Context, _ postgres.QueryExecuter, userID, networkID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := userID + "|" + networkID
	if _, ok := m.network[key]; !ok {
		return entity.ErrDataNotFound
	}
	delete(m.network, key)
	return nil
}

type missCache struct{}

func (missCache) GetPreferences(context.Context, string, string) (*entity.Preferences, error) {
	return nil, entity.ErrDataNotFound
}
func (missCache) SetPreferences(context.Context, *entity.Preferences) error   { return nil }
func (missCache) InvalidatePreferences(context.Context, string, string) error { return nil }

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	prefs := service.NewPreferenceService(newMemPrefStore(), missCache{}, zap.NewNop())
	return NewHandler(prefs, nil, nil, nil, zap.NewNop())
}

func doRequest(h *Handler, method, path, userID, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.Engine().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t)
	if rec := doRequest(h, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Errorf("health = %d, want 200", rec.Code)
	}
}

func TestPreferencesRequireIdentity(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(h, http.MethodGet, "/api/notifications/preferences/global", "", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing header = %d, want 400", rec.Code)
	}
}

func TestPreferencesRoundTrip(t *testing.T) {
	h := newTestHandler(t)

	// Defaults come back before any write.
	rec := doRequest(h, http.MethodGet, "/api/notifications/preferences/net-1", "u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get defaults = %d: %s", rec.Code, rec.Body.String())
	}
	var p entity.Preferences
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !p.Enabled || p.MaxNotificationsPerHour != entity.DefaultMaxPerHour {
		t.Errorf("defaults = %+v", p)
	}

	// Partial update changes only what was sent.
	rec = doRequest(h, http.MethodPut, "/api/notifications/preferences/net-1", "u1",
		`{"email_enabled": true, "email_address": "u1@example.com", "minimum_priority": "high"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("put = %d: %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !p.Email.Enabled || p.Email.Address != "u1@example.com" {
		t.Errorf("email = %+v", p.Email)
	}
	if p.MinimumPriority != entity.PriorityHigh {
		t.Errorf("minimum priority = %q, want high", p.MinimumPriority)
	}
	if p.QuietHours.Start != entity.DefaultQuietStart {
		t.Errorf("quiet start changed to %q", p.QuietHours.Start)
	}

	// Removing the record falls back to defaults on the next read.
	if rec = doRequest(h, http.MethodDelete, "/api/notifications/preferences/net-1", "u1", ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", rec.Code)
	}
	rec = doRequest(h, http.MethodGet, "/api/notifications/preferences/net-1", "u1", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Email.Enabled {
		t.Error("deleted record still has email enabled")
	}
}

func TestPreferencesValidation(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{"bad priority", `{"minimum_priority": "urgent"}`},
		{"bad discord mode", `{"discord_mode": "carrier_pigeon"}`},
		{"bad timezone", `{"timezone": "Mars/Olympus"}`},
		{"bad quiet clock", `{"quiet_start": "25:00"}`},
		{"negative rate limit", `{"max_notifications_per_hour": -1}`},
		{"malformed json", `{"enabled":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(h, http.MethodPut, "/api/notifications/preferences/global", "u1", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestDeleteMissingNetworkPreferences(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(h, http.MethodDelete, "/api/notifications/preferences/net-404", "u1", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestServiceErrorMapping(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantTag  string
	}{
		{"broadcast not found", entity.ErrBroadcastNotFound, http.StatusNotFound, "not_found"},
		{"not pending", entity.ErrBroadcastNotPending, http.StatusConflict, "not_pending"},
		{"schedule too soon", entity.ErrScheduleTooSoon, http.StatusBadRequest, "schedule_too_soon"},
		{"no channel", entity.ErrNoChannelConfigured, http.StatusBadRequest, "no_channel"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(rec)
			h.handleServiceError(c, "test", tt.err)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Code != tt.wantTag {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantTag)
			}
		})
	}

	// The lead-time floor is configurable, so the message must not pin a
	// fixed duration.
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	h.handleServiceError(c, "test", entity.ErrScheduleTooSoon)
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if strings.Contains(resp.Error, "minute") {
		t.Errorf("message = %q, must not name a fixed duration", resp.Error)
	}
}

func TestBroadcastIDMustBeUUID(t *testing.T) {
	h := newTestHandler(t)
	rec := doRequest(h, http.MethodGet, "/api/notifications/broadcasts/not-a-uuid", "u1", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
