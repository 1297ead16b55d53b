package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/calendar-slots/internal/application"
	"github.com/example/calendar-slots/internal/logging"
)

var (
	errBadRequestBody = errors.New("無効なリクエスト形式です。")
	errInvalidEventID = errors.New("無効なイベント ID です。")
	errInvalidSlotID  = errors.New("無効なスロット ID です。")
)

// responder writes JSON bodies and maps service errors for one handler.
type responder struct {
	handler string
	logger  *slog.Logger
}

func newResponder(handler string, logger *slog.Logger) responder {
	return responder{handler: handler, logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}
	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.log(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.log(ctx).WarnContext(ctx, "request failed", "status", status, "error", err)
	}
	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// writeFieldErrors reports request fields that could not be parsed.
func (r responder) writeFieldErrors(ctx context.Context, w http.ResponseWriter, fields map[string]string) {
	r.log(ctx).WarnContext(ctx, "request failed", "status", http.StatusBadRequest, "fields", fields)
	r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
		Message: localizedStatusMessage(http.StatusBadRequest),
		Errors:  fields,
	})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	status := statusFor(err)
	body := errorResponse{ErrorCode: application.ErrorKind(err), Message: localizedStatusMessage(status)}
	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		body.Errors = vErr.FieldErrors
	}
	if status == http.StatusInternalServerError {
		r.log(ctx).ErrorContext(ctx, "unexpected service error", "error", err, "error_kind", body.ErrorCode)
	}
	r.writeJSON(ctx, w, status, body)
}

func statusFor(err error) int {
	var vErr *application.ValidationError
	switch {
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, application.ErrConflict):
		return http.StatusConflict
	case errors.As(err, &vErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (r responder) log(ctx context.Context, attrs ...any) *slog.Logger {
	return logging.Scoped(ctx, r.logger, "handler", r.handler, attrs...)
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusUnauthorized:
		return "認証が必要です。"
	case http.StatusNotFound:
		return "指定されたリソースが見つかりません。"
	case http.StatusConflict:
		return "要求はリソースの現在の状態と競合しています。"
	case http.StatusUnprocessableEntity:
		return "入力内容に誤りがあります。"
	case http.StatusServiceUnavailable:
		return "サービスを利用できません。"
	default:
		return "サーバー内部でエラーが発生しました。"
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
