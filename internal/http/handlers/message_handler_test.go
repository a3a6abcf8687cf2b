package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/avennor/go-collab-backend/internal/domain"
	"github.com/avennor/go-collab-backend/internal/services"
)

type fakeCreator struct {
	msg  *domain.Message
	err  error
	got  createCall
	hits int
}

type createCall struct {
	senderID   int64
	receiverID int64
	content    string
	msgType    string
	department string
	key        string
}

func (f *fakeCreator) CreateChatMessage(_ context.Context, senderID, receiverID int64, content, msgType, department, explicitKey string) (*domain.Message, error) {
	f.hits++
	f.got = createCall{senderID, receiverID, content, msgType, department, explicitKey}
	return f.msg, f.err
}

type fakeReader struct {
	items   []domain.Notification
	listErr error
	readErr error
	readID  uint
	readUID int64
}

func (f *fakeReader) ListPending(_ context.Context, _ int64) ([]domain.Notification, error) {
	return f.items, f.listErr
}

func (f *fakeReader) MarkRead(_ context.Context, id uint, userID int64) error {
	f.readID, f.readUID = id, userID
	return f.readErr
}

func newTestRouter(creator *fakeCreator, reader *fakeReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	api := NewAPI(creator, reader, &fakeScheduler{})
	r := gin.New()
	r.POST("/messages", api.CreateMessage)
	r.GET("/notifications", api.ListNotifications)
	r.PUT("/notifications/:id/read", api.ReadNotification)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateMessageRequiresIdentity(t *testing.T) {
	creator := &fakeCreator{}
	r := newTestRouter(creator, &fakeReader{})

	for name, headers := range map[string]map[string]string{
		"missing header": nil,
		"garbage header": {"X-User-ID": "nope"},
		"zero id":        {"X-User-ID": "0"},
	} {
		w := doJSON(t, r, http.MethodPost, "/messages", `{"receiver_id":2,"content":"hi"}`, headers)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", name, w.Code)
		}
	}
	if creator.hits != 0 {
		t.Fatal("unidentified requests must not reach the service")
	}
}

func TestCreateMessageSuccess(t *testing.T) {
	creator := &fakeCreator{msg: &domain.Message{ID: 5, SenderID: 1, ReceiverID: 2, Content: "hi"}}
	r := newTestRouter(creator, &fakeReader{})

	w := doJSON(t, r, http.MethodPost, "/messages",
		`{"receiver_id":2,"content":"hi","type":"chat","department":"eng"}`,
		map[string]string{"X-User-ID": "1", HeaderIdempotencyKey: "req-9"})

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", w.Code, w.Body.String())
	}
	if creator.got.senderID != 1 || creator.got.receiverID != 2 || creator.got.content != "hi" {
		t.Fatalf("unexpected call: %+v", creator.got)
	}
	if creator.got.key != "req-9" || creator.got.department != "eng" {
		t.Fatalf("headers not forwarded: %+v", creator.got)
	}

	var resp domain.Message
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.ID != 5 {
		t.Fatalf("returned id = %d, want 5", resp.ID)
	}
}

func TestCreateMessageErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"receiver missing", services.ErrReceiverNotFound, http.StatusNotFound, ErrCodeNotFound},
		{"empty content", services.ErrEmptyContent, http.StatusBadRequest, ErrCodeBadRequest},
		{"content too long", services.ErrContentTooLong, http.StatusBadRequest, ErrCodeBadRequest},
		{"invalid sender", services.ErrInvalidSender, http.StatusBadRequest, ErrCodeBadRequest},
		{"storage down", errors.New("disk gone"), http.StatusInternalServerError, ErrCodeCreateFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(&fakeCreator{err: tc.err}, &fakeReader{})
			w := doJSON(t, r, http.MethodPost, "/messages", `{"receiver_id":2,"content":"hi"}`,
				map[string]string{"X-User-ID": "1"})
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d", w.Code, tc.status)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if resp.Code != tc.code {
				t.Fatalf("code = %q, want %q", resp.Code, tc.code)
			}
		})
	}
}

func TestCreateMessageRejectsBadBodyAndLongKey(t *testing.T) {
	creator := &fakeCreator{}
	r := newTestRouter(creator, &fakeReader{})
	auth := map[string]string{"X-User-ID": "1"}

	if w := doJSON(t, r, http.MethodPost, "/messages", `{"receiver_id":2}`, auth); w.Code != http.StatusBadRequest {
		t.Fatalf("missing content: status = %d, want 400", w.Code)
	}
	if w := doJSON(t, r, http.MethodPost, "/messages", `not json`, auth); w.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: status = %d, want 400", w.Code)
	}

	long := map[string]string{"X-User-ID": "1", HeaderIdempotencyKey: strings.Repeat("k", 201)}
	if w := doJSON(t, r, http.MethodPost, "/messages", `{"receiver_id":2,"content":"hi"}`, long); w.Code != http.StatusBadRequest {
		t.Fatalf("oversized key: status = %d, want 400", w.Code)
	}
	if creator.hits != 0 {
		t.Fatal("rejected requests must not reach the service")
	}
}

func TestListNotifications(t *testing.T) {
	reader := &fakeReader{items: []domain.Notification{{ID: 1, UserID: 7, Title: "t"}}}
	r := newTestRouter(&fakeCreator{}, reader)

	w := doJSON(t, r, http.MethodGet, "/notifications", "", map[string]string{"X-User-ID": "7"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Items []domain.Notification `json:"items"`
		Total int                   `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Total != 1 || len(resp.Items) != 1 {
		t.Fatalf("resp = %+v, want 1 item", resp)
	}
}

func TestListNotificationsEmptyIsArrayNotNull(t *testing.T) {
	r := newTestRouter(&fakeCreator{}, &fakeReader{})
	w := doJSON(t, r, http.MethodGet, "/notifications", "", map[string]string{"X-User-ID": "7"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"items":[]`) {
		t.Fatalf("empty list must serialize as [], got %s", w.Body.String())
	}
}

func TestReadNotification(t *testing.T) {
	reader := &fakeReader{}
	r := newTestRouter(&fakeCreator{}, reader)
	auth := map[string]string{"X-User-ID": "7"}

	if w := doJSON(t, r, http.MethodPut, "/notifications/3/read", "", auth); w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if reader.readID != 3 || reader.readUID != 7 {
		t.Fatalf("MarkRead called with (%d, %d), want (3, 7)", reader.readID, reader.readUID)
	}

	if w := doJSON(t, r, http.MethodPut, "/notifications/abc/read", "", auth); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id: status = %d, want 400", w.Code)
	}

	reader.readErr = errors.New("nope")
	if w := doJSON(t, r, http.MethodPut, "/notifications/3/read", "", auth); w.Code != http.StatusNotFound {
		t.Fatalf("unknown row: status = %d, want 404", w.Code)
	}
}
