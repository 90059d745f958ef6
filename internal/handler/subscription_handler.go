package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/newsletter/internal/model"
)

// maxFormBytes は購読フォームのリクエストボディの上限。
const maxFormBytes = 64 << 10

// SubscriptionServiceInterface は購読ハンドラーが必要とするサービスインターフェース。
type SubscriptionServiceInterface interface {
	// Register は購読者を登録して確認メールを送信する。
	Register(ctx context.Context, rawName, rawEmail string) error
	// Confirm は確認トークンに紐づく購読者をconfirmedにする。
	Confirm(ctx context.Context, token string) error
}

// SubscriptionHandler は購読登録・確認のHTTPハンドラー。
type SubscriptionHandler struct {
	service SubscriptionServiceInterface
	logger  *slog.Logger
}

// NewSubscriptionHandler はSubscriptionHandlerを生成する。
func NewSubscriptionHandler(service SubscriptionServiceInterface, logger *slog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		service: service,
		logger:  logger,
	}
}

// Subscribe はフォームで送信された購読申込を受け付ける。
// POST /subscriptions (application/x-www-form-urlencoded: name, email)
// 成功時は空ボディの200を返す。
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidSubscriberError("フォームを解析できません"))
		return
	}

	if err := h.service.Register(r.Context(), r.PostForm.Get("name"), r.PostForm.Get("email")); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// Confirm は確認メールのリンクから購読を確定する。
// GET /subscriptions/confirm?token=...
// 成功時は空ボディの200を返す。
func (h *SubscriptionHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Confirm(r.Context(), r.URL.Query().Get("token")); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
