package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/avennor/go-collab-backend/internal/config"
	"github.com/avennor/go-collab-backend/internal/domain"
	"github.com/avennor/go-collab-backend/internal/jobs"
	"github.com/avennor/go-collab-backend/internal/realtime"
	"github.com/avennor/go-collab-backend/internal/repo"
)

func testConfig() config.Config {
	return config.Config{
		GinMode:         gin.TestMode,
		MaxContentRunes: 4000,
		SweepInterval:   time.Minute,
		APIBasePath:     "/api/v1",
		RateRPS:         1000,
		RateBurst:       1000,
		WS: config.WSConfig{
			ReadBufferBytes:  1024,
			WriteBufferBytes: 1024,
			WriteTimeout:     time.Second,
			MaxFrameBytes:    64 << 10,
		},
		OTEL: config.OTELConfig{ServiceName: "test"},
	}
}

func newTestApp(t *testing.T) (*gin.Engine, Deps) {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	reg := realtime.NewRegistry(zerolog.Nop())
	bc := realtime.NewBroadcaster(reg, zerolog.Nop())
	reg.BindAnnouncer(bc)

	cfg := testConfig()
	deps := BuildServices(db, reg, bc, jobs.NewStore(), cfg)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, deps, cfg)
	return r, deps
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := newTestApp(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("missing correlation id header")
	}
}

func TestUnknownRouteReturnsStructured404(t *testing.T) {
	r, _ := newTestApp(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp["code"] != "not_found" {
		t.Fatalf("body = %v", resp)
	}
}

func TestWrongMethodReturns405(t *testing.T) {
	r, _ := newTestApp(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/health", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", w.Code)
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	r, _ := newTestApp(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Fatal("metrics body missing standard collectors")
	}
}

func TestCreateMessageEndToEnd(t *testing.T) {
	r, deps := newTestApp(t)
	ctx := context.Background()

	users := []domain.User{
		{ID: 1, DisplayName: "Ana"},
		{ID: 2, DisplayName: "Bo"},
	}
	for i := range users {
		if err := repo.CreateUser(ctx, deps.DB, &users[i]); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}

	body := `{"receiver_id":2,"content":"hello"}`
	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-User-ID", "1")
		req.Header.Set("Idempotency-Key", "e2e-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	first := post()
	if first.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", first.Code, first.Body.String())
	}
	var created domain.Message
	if err := json.Unmarshal(first.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if created.ID == 0 || created.SenderID != 1 || created.ReceiverID != 2 {
		t.Fatalf("created = %+v", created)
	}

	// Receiver is offline, so the notification landed in the pending store.
	pending, err := deps.Notifier.ListPending(ctx, 2)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 1 || pending[0].Title != "New message from Ana" {
		t.Fatalf("pending = %+v", pending)
	}

	// Same idempotency key returns the original row without a second insert.
	second := post()
	if second.Code != http.StatusCreated {
		t.Fatalf("retry status = %d, want 201", second.Code)
	}
	var retried domain.Message
	if err := json.Unmarshal(second.Body.Bytes(), &retried); err != nil {
		t.Fatalf("decode retry body: %v", err)
	}
	if retried.ID != created.ID {
		t.Fatalf("retry created a new row: %d vs %d", retried.ID, created.ID)
	}
	if pending, _ = deps.Notifier.ListPending(ctx, 2); len(pending) != 1 {
		t.Fatalf("retry re-notified: %d pending rows", len(pending))
	}
}

func TestScheduledNotificationEndToEnd(t *testing.T) {
	r, deps := newTestApp(t)
	ctx := context.Background()

	// Schedule an already-due notification to self.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/schedule",
		strings.NewReader(`{"title":"Standup","message":"Daily sync","run_at":"2024-01-01T00:00:00Z"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "2")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("schedule status = %d, want 201; body %s", w.Code, w.Body.String())
	}
	var scheduled struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &scheduled); err != nil {
		t.Fatalf("decode body: %v", err)
	}

	// It shows up in the caller's scheduled list.
	list := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/scheduled", nil)
	list.Header.Set("X-User-ID", "2")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, list)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), scheduled.JobID) {
		t.Fatalf("list status = %d, body %s", w.Code, w.Body.String())
	}

	// A sweep dispatches it; the user is offline, so it lands in the pending
	// notification store.
	sched := jobs.NewScheduler(deps.Scheduler.Store, time.Minute, zerolog.Nop())
	sched.Register(jobs.TypeSendNotification, jobs.NewNotificationHandler(
		func() jobs.Notifier { return deps.Notifier }, zerolog.Nop()))
	if n := sched.Sweep(ctx, time.Now()); n != 1 {
		t.Fatalf("Sweep dispatched %d jobs, want 1", n)
	}

	pending, err := deps.Notifier.ListPending(ctx, 2)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 1 || pending[0].Title != "Standup" {
		t.Fatalf("pending = %+v", pending)
	}
	if got := deps.Scheduler.ScheduledNotifications(2); len(got) != 0 {
		t.Fatalf("job still queued after sweep: %+v", got)
	}
}

func TestCancelScheduledNotificationScopedToOwner(t *testing.T) {
	r, deps := newTestApp(t)

	id, err := deps.Scheduler.ScheduleNotification(2, "t", "b", "", "", time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("ScheduleNotification: %v", err)
	}

	del := func(userID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/notifications/scheduled/"+id, nil)
		req.Header.Set("X-User-ID", userID)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	if w := del("3"); w.Code != http.StatusNotFound {
		t.Fatalf("foreign cancel status = %d, want 404", w.Code)
	}
	if w := del("2"); w.Code != http.StatusNoContent {
		t.Fatalf("owner cancel status = %d, want 204", w.Code)
	}
	if got := deps.Scheduler.ScheduledNotifications(2); len(got) != 0 {
		t.Fatalf("job still queued after cancel: %+v", got)
	}
}

func TestCreateMessageUnknownReceiver(t *testing.T) {
	r, deps := newTestApp(t)
	if err := repo.CreateUser(context.Background(), deps.DB, &domain.User{ID: 1, DisplayName: "Ana"}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(`{"receiver_id":42,"content":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404; body %s", w.Code, w.Body.String())
	}
}
