package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"rdapi/internal/domain"
	"rdapi/internal/dto"
	"rdapi/internal/observability/logging"
)

// maxBodyBytes bounds JSON request bodies; record chunks are streamed separately.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeOK wraps data in the console envelope.
func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, dto.Envelope{OK: true, Data: data})
}

func writeFail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, dto.Envelope{OK: false, Error: msg})
}

// writeError maps service errors onto statuses. Unexpected errors are logged
// and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		writeFail(w, status, "internal error")
		return
	}
	writeFail(w, status, err.Error())
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrUserExists),
		errors.Is(err, domain.ErrGroupExists),
		errors.Is(err, domain.ErrPersonalExists),
		errors.Is(err, domain.ErrTagExists),
		errors.Is(err, domain.ErrDefaultPersonal),
		errors.Is(err, domain.ErrPrivatePersonal),
		errors.Is(err, errBadBody):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUnauthenticated),
		errors.Is(err, domain.ErrUserDisabled):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrGroupNotFound),
		errors.Is(err, domain.ErrPeerNotFound),
		errors.Is(err, domain.ErrPersonalNotFound),
		errors.Is(err, domain.ErrTagNotFound),
		errors.Is(err, domain.ErrConnNotFound),
		errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPeerIdentityConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

var errBadBody = errors.New("malformed request body")

// decodeJSON reads a JSON body. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	slog.Debug("bad request body", "path", r.URL.Path, "error", err)
	return errBadBody
}

// pageParams reads current/pageSize from the query string.
func pageParams(r *http.Request) (page, size int) {
	page, size = 1, 10
	q := r.URL.Query()
	if v, err := strconv.Atoi(q.Get("current")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(q.Get("pageSize")); err == nil && v > 0 {
		size = v
	}
	return page, size
}
