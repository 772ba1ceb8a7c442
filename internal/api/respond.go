package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/example/ec-checkout/internal/api/middleware"
	"github.com/example/ec-checkout/internal/domain"
)

// Envelope keys. Order listing endpoints answer with "msg", the rest with
// "message".
const (
	keyMessage = "message"
	keyMsg     = "msg"
)

var errInvalidBody = domain.InvalidArgument("Invalid request body")

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondOK(w http.ResponseWriter, status int, key, message string, data any) {
	respondJSON(w, status, map[string]any{
		"success": true,
		key:       message,
		"data":    data,
	})
}

// respondSoft reports an expected negative outcome. It is still a 200.
func respondSoft(w http.ResponseWriter, message string, extra map[string]any) {
	body := map[string]any{"success": false, keyMessage: message}
	for k, v := range extra {
		body[k] = v
	}
	respondJSON(w, http.StatusOK, body)
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, map[string]any{"success": false, keyMessage: message})
}

// statusFor maps a domain error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondErr writes err with its mapped status. Errors without a domain kind
// are logged and hidden behind a generic message.
func (h *Handlers) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	h.respondErrStatus(w, r, err, statusFor(err))
}

func (h *Handlers) respondErrStatus(w http.ResponseWriter, r *http.Request, err error, status int) {
	if status == http.StatusInternalServerError {
		h.log.WithFields(logrus.Fields{
			"req_id": middleware.ContextRequestID(r.Context()),
			"method": r.Method,
			"path":   r.URL.Path,
		}).WithError(err).Error("request failed")
		respondJSONError(w, http.StatusText(http.StatusInternalServerError), status)
		return
	}
	respondJSONError(w, err.Error(), status)
}

// decodeBody reads a JSON request body into v. An empty body leaves v zero.
func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return errInvalidBody
}
