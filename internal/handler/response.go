package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/newsletter/internal/middleware"
	"github.com/hitoshi/newsletter/internal/model"
)

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
// 想定外のエラーの詳細はログにのみ記録する。
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// 保存・通知の失敗はサービス層で記録済み
	switch {
	case errors.Is(err, model.ErrNotificationFailed):
		writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewNotificationFailedError())
	case errors.Is(err, model.ErrPersistenceFailed):
		writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewPersistenceFailedError())
	default:
		logger.Error("internal server error", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
	}
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidSubscriber, model.ErrCodeInvalidToken:
		return http.StatusBadRequest
	case model.ErrCodeTokenNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
