package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hitoshi/newsletter/internal/middleware"
	"github.com/hitoshi/newsletter/internal/model"
)

// --- モック定義 ---

// mockSubscriptionService はSubscriptionServiceInterfaceのモック実装。
type mockSubscriptionService struct {
	registerFn func(ctx context.Context, rawName, rawEmail string) error
	confirmFn  func(ctx context.Context, token string) error
}

func (m *mockSubscriptionService) Register(ctx context.Context, rawName, rawEmail string) error {
	if m.registerFn != nil {
		return m.registerFn(ctx, rawName, rawEmail)
	}
	return nil
}

func (m *mockSubscriptionService) Confirm(ctx context.Context, token string) error {
	if m.confirmFn != nil {
		return m.confirmFn(ctx, token)
	}
	return nil
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func newFormRequest(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/subscriptions", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body
}

// --- POST /subscriptions テスト ---

func TestSubscriptionHandler_Subscribe_Success(t *testing.T) {
	var gotName, gotEmail string
	svc := &mockSubscriptionService{
		registerFn: func(ctx context.Context, rawName, rawEmail string) error {
			gotName, gotEmail = rawName, rawEmail
			return nil
		},
	}
	var buf bytes.Buffer
	h := NewSubscriptionHandler(svc, newTestLogger(&buf))

	w := httptest.NewRecorder()
	h.Subscribe(w, newFormRequest(url.Values{"name": {"le guin"}, "email": {"ursula_le_guin@gmail.com"}}))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Body.Len() != 0 {
		t.Errorf("body should be empty, got %q", w.Body.String())
	}
	if gotName != "le guin" {
		t.Errorf("name = %q, want %q", gotName, "le guin")
	}
	if gotEmail != "ursula_le_guin@gmail.com" {
		t.Errorf("email = %q, want %q", gotEmail, "ursula_le_guin@gmail.com")
	}
}

// 欠けているフィールドは空文字としてサービスに渡る。
func TestSubscriptionHandler_Subscribe_MissingFieldsPassedAsEmpty(t *testing.T) {
	called := false
	svc := &mockSubscriptionService{
		registerFn: func(ctx context.Context, rawName, rawEmail string) error {
			called = true
			if rawName != "" || rawEmail != "" {
				t.Errorf("got name=%q email=%q, want both empty", rawName, rawEmail)
			}
			return model.NewInvalidSubscriberError("subscriber name is empty or whitespace")
		},
	}
	var buf bytes.Buffer
	h := NewSubscriptionHandler(svc, newTestLogger(&buf))

	w := httptest.NewRecorder()
	h.Subscribe(w, newFormRequest(url.Values{}))

	if !called {
		t.Fatal("service should be called")
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if body := decodeErrorBody(t, w); body.Code != model.ErrCodeInvalidSubscriber {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeInvalidSubscriber)
	}
}

func TestSubscriptionHandler_Subscribe_BodyTooLarge(t *testing.T) {
	svc := &mockSubscriptionService{
		registerFn: func(ctx context.Context, rawName, rawEmail string) error {
			t.Error("service should not be called for an oversized body")
			return nil
		},
	}
	var buf bytes.Buffer
	h := NewSubscriptionHandler(svc, newTestLogger(&buf))

	form := url.Values{"name": {strings.Repeat("a", maxFormBytes)}, "email": {"a@example.com"}}
	w := httptest.NewRecorder()
	h.Subscribe(w, newFormRequest(form))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestSubscriptionHandler_Subscribe_ServerErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantLogged bool
	}{
		// サービス層がログ済みのため、ハンドラーでは重ねて記録しない
		{"保存失敗", fmt.Errorf("%w: %w", model.ErrPersistenceFailed, errors.New("connection refused")), model.ErrCodePersistenceFailed, false},
		{"メール送信失敗", fmt.Errorf("%w: %w", model.ErrNotificationFailed, errors.New("gateway returned 500")), model.ErrCodeNotificationFailed, false},
		{"想定外のエラー", errors.New("boom"), model.ErrCodeInternal, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockSubscriptionService{
				registerFn: func(ctx context.Context, rawName, rawEmail string) error {
					return tt.err
				},
			}
			var buf bytes.Buffer
			h := NewSubscriptionHandler(svc, newTestLogger(&buf))

			w := httptest.NewRecorder()
			h.Subscribe(w, newFormRequest(url.Values{"name": {"le guin"}, "email": {"ursula_le_guin@gmail.com"}}))

			if w.Code != http.StatusInternalServerError {
				t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
			}
			body := decodeErrorBody(t, w)
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
			if strings.Contains(w.Body.String(), tt.err.Error()) {
				t.Errorf("internal error detail leaked to response: %s", w.Body.String())
			}
			logged := strings.Contains(buf.String(), tt.err.Error())
			if logged != tt.wantLogged {
				t.Errorf("logged = %v, want %v: %s", logged, tt.wantLogged, buf.String())
			}
		})
	}
}

// --- GET /subscriptions/confirm テスト ---

func TestSubscriptionHandler_Confirm(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		err        error
		wantToken  string
		wantStatus int
	}{
		{"成功", "?token=abc-123", nil, "abc-123", http.StatusOK},
		{"トークンなし", "", model.NewInvalidTokenError(), "", http.StatusBadRequest},
		{"存在しないトークン", "?token=unknown", model.NewTokenNotFoundError(), "unknown", http.StatusNotFound},
		{"保存失敗", "?token=abc", fmt.Errorf("%w: %w", model.ErrPersistenceFailed, errors.New("timeout")), "abc", http.StatusInternalServerError},
		{"エスケープされたトークン", "?token=a+b%26c", nil, "a b&c", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotToken string
			svc := &mockSubscriptionService{
				confirmFn: func(ctx context.Context, token string) error {
					gotToken = token
					return tt.err
				},
			}
			var buf bytes.Buffer
			h := NewSubscriptionHandler(svc, newTestLogger(&buf))

			req := httptest.NewRequest(http.MethodGet, "/subscriptions/confirm"+tt.query, nil)
			w := httptest.NewRecorder()
			h.Confirm(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if gotToken != tt.wantToken {
				t.Errorf("token = %q, want %q", gotToken, tt.wantToken)
			}
			if tt.wantStatus == http.StatusOK && w.Body.Len() != 0 {
				t.Errorf("body should be empty, got %q", w.Body.String())
			}
		})
	}
}
