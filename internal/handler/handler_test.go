package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fincra-wisdom/internal/middleware"
	"fincra-wisdom/internal/model"
	"fincra-wisdom/internal/service"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = &model.User{ID: 1, Email: "alice@fincra.com", Role: model.RoleUser}
	admin = &model.User{ID: 2, Email: "admin@fincra.com", Role: model.RoleAdmin}
)

func newTestRouter(user *model.User) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUser, user)
		c.Next()
	})
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

type stubSuggestions struct {
	submitted *service.SuggestionInput
	fileBody  string
	notes     string
	rejected  bool
}

func (s *stubSuggestions) Submit(ctx context.Context, in service.SuggestionInput, submitter *model.User) (*service.SuggestionOutcome, error) {
	if in.File == nil {
		return nil, service.InvalidInput("no file")
	}
	data, _ := io.ReadAll(in.File.Reader)
	s.fileBody = string(data)
	s.submitted = &in
	return &service.SuggestionOutcome{
		Suggestion: &model.SuggestedDocument{ID: 7, Title: in.Title, SubmitterEmail: submitter.Email, Status: model.SuggestionPending},
		Warnings:   []string{"email not sent"},
	}, nil
}

func (s *stubSuggestions) List(ctx context.Context, status string) ([]model.SuggestedDocument, error) {
	return []model.SuggestedDocument{}, nil
}

func (s *stubSuggestions) Get(ctx context.Context, id uint) (*model.SuggestedDocument, error) {
	return nil, service.NotFound("suggestion")
}

func (s *stubSuggestions) Approve(ctx context.Context, id uint, a *model.User) (*service.ApprovalOutcome, error) {
	if !a.IsAdmin() {
		return nil, service.Forbidden("admin access required")
	}
	return &service.ApprovalOutcome{Document: &model.Document{ID: 11, Title: "Approved"}}, nil
}

func (s *stubSuggestions) Reject(ctx context.Context, id uint, notes string, a *model.User) (*service.SuggestionOutcome, error) {
	s.rejected = true
	s.notes = notes
	return &service.SuggestionOutcome{Suggestion: &model.SuggestedDocument{ID: id, Status: model.SuggestionRejected, AdminNotes: notes}}, nil
}

func multipartRequest(t *testing.T, fields map[string]string, fileName, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/documents/suggest", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestSuggestionHandler_Suggest(t *testing.T) {
	stub := &stubSuggestions{}
	r := newTestRouter(alice)
	r.POST("/documents/suggest", NewSuggestionHandler(stub, 1<<20).Suggest)

	req := multipartRequest(t, map[string]string{
		"title":        "Travel Policy",
		"circleId":     "2",
		"departmentId": "5",
		"category":     "Policy",
		"description":  "updated for 2024",
	}, "travel.pdf", "%PDF-1.4")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]interface{})
	assert.EqualValues(t, 7, data["id"])
	assert.Equal(t, "pending", data["status"])
	assert.NotContains(t, w.Body.String(), "email not sent")

	require.NotNil(t, stub.submitted)
	assert.Equal(t, "Travel Policy", stub.submitted.Title)
	assert.EqualValues(t, 2, stub.submitted.CircleID)
	assert.EqualValues(t, 5, stub.submitted.DepartmentID)
	assert.Equal(t, "travel.pdf", stub.submitted.File.Name)
	assert.Equal(t, "%PDF-1.4", stub.fileBody)
}

func TestSuggestionHandler_SuggestWithoutFile(t *testing.T) {
	r := newTestRouter(alice)
	r.POST("/documents/suggest", NewSuggestionHandler(&stubSuggestions{}, 1<<20).Suggest)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t, map[string]string{"title": "x"}, "", ""))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "no file", body["message"])
}

func TestSuggestionHandler_SuggestTooLarge(t *testing.T) {
	r := newTestRouter(alice)
	r.POST("/documents/suggest", NewSuggestionHandler(&stubSuggestions{}, 4).Suggest)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t, map[string]string{"title": "x"}, "a.txt", "more than four bytes"))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "file too large", decode(t, w)["message"])
}

func TestSuggestionHandler_Reject(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantNotes string
	}{
		{name: "no body", body: "", wantCode: http.StatusOK},
		{name: "with notes", body: `{"adminNotes":"duplicate of Q3 report"}`, wantCode: http.StatusOK, wantNotes: "duplicate of Q3 report"},
		{name: "malformed body", body: `{"adminNotes":`, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubSuggestions{}
			r := newTestRouter(admin)
			r.PUT("/documents/suggestions/:id/reject", NewSuggestionHandler(stub, 0).Reject)

			req := httptest.NewRequest(http.MethodPut, "/documents/suggestions/3/reject", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantCode == http.StatusOK {
				assert.True(t, stub.rejected)
				assert.Equal(t, tt.wantNotes, stub.notes)
			} else {
				assert.False(t, stub.rejected)
			}
		})
	}
}

func TestSuggestionHandler_Approve(t *testing.T) {
	r := newTestRouter(alice)
	r.PUT("/documents/suggestions/:id/approve", NewSuggestionHandler(&stubSuggestions{}, 0).Approve)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/documents/suggestions/abc/approve", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/documents/suggestions/3/approve", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])
}

type stubNotifications struct {
	byID map[uint]*model.Notification
}

func (s *stubNotifications) Notify(ctx context.Context, email, title, message, link string) (*model.Notification, error) {
	return nil, errors.New("not used")
}

func (s *stubNotifications) ListForRecipient(ctx context.Context, email string) ([]model.Notification, error) {
	out := []model.Notification{}
	for _, n := range s.byID {
		if n.RecipientEmail == email {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (s *stubNotifications) UnreadCount(ctx context.Context, email string) (int64, error) {
	var count int64
	for _, n := range s.byID {
		if n.RecipientEmail == email && !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *stubNotifications) MarkAsRead(ctx context.Context, id uint, email string) (*model.Notification, error) {
	n, ok := s.byID[id]
	if !ok || n.RecipientEmail != email {
		return nil, service.NotFound("notification")
	}
	n.Read = true
	return n, nil
}

func (s *stubNotifications) MarkAllAsRead(ctx context.Context, email string) (int64, error) {
	var updated int64
	for _, n := range s.byID {
		if n.RecipientEmail == email && !n.Read {
			n.Read = true
			updated++
		}
	}
	return updated, nil
}

func newNotificationRouter(stub *stubNotifications) *gin.Engine {
	h := NewNotificationHandler(stub)
	r := newTestRouter(alice)
	r.GET("/notifications", h.List)
	r.GET("/notifications/unread-count", h.UnreadCount)
	r.PUT("/notifications/read-all", h.MarkAllRead)
	r.PUT("/notifications/:id/read", h.MarkRead)
	return r
}

func TestNotificationHandler(t *testing.T) {
	stub := &stubNotifications{byID: map[uint]*model.Notification{
		1: {ID: 1, RecipientEmail: alice.Email, Title: "approved"},
		2: {ID: 2, RecipientEmail: alice.Email, Title: "rejected"},
		3: {ID: 3, RecipientEmail: "bob@fincra.com", Title: "new suggestion"},
	}}
	r := newNotificationRouter(stub)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notifications/unread-count", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["data"].(map[string]interface{})["count"])

	t.Run("another user's notification is not found", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/notifications/3/read", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
		body := decode(t, w)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "notification not found", body["message"])
		assert.False(t, stub.byID[3].Read)
	})

	t.Run("own notification is marked read", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/notifications/1/read", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decode(t, w)["data"].(map[string]interface{})["read"])
	})

	t.Run("read-all only touches own inbox", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/notifications/read-all", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 1, decode(t, w)["data"].(map[string]interface{})["updated"])
		assert.False(t, stub.byID[3].Read)
	})

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notifications", nil))
	assert.Len(t, decode(t, w)["data"], 2)
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		err      error
		wantCode int
		wantMsg  string
	}{
		{service.InvalidInput("missing required fields"), http.StatusBadRequest, "missing required fields"},
		{service.Unauthorized("invalid credentials"), http.StatusUnauthorized, "invalid credentials"},
		{service.Forbidden("admin access required"), http.StatusForbidden, "admin access required"},
		{service.NotFound("suggestion"), http.StatusNotFound, "suggestion not found"},
		{service.Conflict("email already registered"), http.StatusConflict, "email already registered"},
		{service.Internal("failed to save suggestion", errors.New("db down")), http.StatusInternalServerError, "failed to save suggestion"},
		{errors.New("raw"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.wantMsg, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, tt.err)

			assert.Equal(t, tt.wantCode, w.Code)
			body := decode(t, w)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.wantMsg, body["message"])
			assert.NotContains(t, body, "error")
		})
	}
}
