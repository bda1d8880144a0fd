package uconnect

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/Bilz97/UConnectChat/contract"
	"github.com/Bilz97/UConnectChat/log"
)

const maxJSONBodyBytes = 64 << 10

// statusFor maps a core error onto the HTTP status reported to clients.
func statusFor(err error) int {
	switch {
	case errors.Is(err, contract.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, contract.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, contract.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, contract.ErrNotParticipant):
		return http.StatusForbidden
	case errors.Is(err, contract.ErrRoomResolution), errors.Is(err, contract.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError logs err and reports it. Internal errors are not echoed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	logger := log.LoggerFromContext(r.Context())
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", slog.String(log.ErrorMsgLogField, msg))
		msg = http.StatusText(status)
	} else {
		logger.Warn("request rejected", slog.String(log.ErrorMsgLogField, msg))
	}
	writeJSON(w, status, contract.ErrorResponse{Error: msg})
}

func decode(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxJSONBodyBytes))
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Join(contract.ErrValidation, err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
