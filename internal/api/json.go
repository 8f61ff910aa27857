package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/skythread/internal/apperr"
	"github.com/starford/skythread/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error      string             `json:"error"`
	Kind       string             `json:"kind,omitempty"`
	Violations []apperr.Violation `json:"violations,omitempty"`
	Created    []models.StrongRef `json:"created,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// statusByKind maps error kinds to HTTP status codes. Failures reported by
// the network are gateway errors.
var statusByKind = map[string]int{
	apperr.KindConfiguration:  http.StatusPreconditionFailed,
	apperr.KindValidation:     http.StatusUnprocessableEntity,
	apperr.KindAuthentication: http.StatusBadGateway,
	apperr.KindMediaUpload:    http.StatusBadGateway,
	apperr.KindPublish:        http.StatusBadGateway,
	apperr.KindBusy:           http.StatusConflict,
	apperr.KindNotFound:       http.StatusNotFound,
	apperr.KindInternal:       http.StatusInternalServerError,
}

// writeError reports err with its kind. Internal errors are logged and
// their message hidden.
func writeError(w http.ResponseWriter, op string, err error) {
	var (
		vErrs validation.Errors
		vErr  validation.Error
	)
	switch {
	case errors.As(err, &vErrs), errors.As(err, &vErr):
		writeJSON(w, http.StatusBadRequest, errResponse{Error: err.Error(), Kind: apperr.KindValidation})
		return
	case errors.Is(err, apperr.ErrAlreadyExists), errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errResponse{Error: err.Error(), Kind: "conflict"})
		return
	}

	kind := apperr.Kind(err)
	body := errResponse{Error: err.Error(), Kind: kind}

	var valErr *apperr.ValidationError
	if errors.As(err, &valErr) {
		body.Violations = valErr.Violations
	}
	var (
		pubErr   *apperr.PublishError
		mediaErr *apperr.MediaUploadError
	)
	switch {
	case errors.As(err, &pubErr):
		body.Created = pubErr.Created
	case errors.As(err, &mediaErr):
		body.Created = mediaErr.Created
	}
	if kind == apperr.KindNotFound {
		body.Error = "not found"
	}
	if kind == apperr.KindInternal {
		slog.Error(op+" failed", slog.String("error", err.Error()))
		body.Error = "internal error"
	}
	writeJSON(w, statusByKind[kind], body)
}
