package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"pulse/cmd/identity"
	"pulse/cmd/internal/feed"
)

type errorResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Message: msg})
}

// writeInvalidID reproduces the boundary's id-validation message verbatim.
func writeInvalidID(w http.ResponseWriter, name, id string) {
	writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s id: '%s'", name, id))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer func() { _ = r.Body.Close() }()

	body := http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after JSON object")
	}
	return nil
}

// writeDomainError maps service errors onto HTTP statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case identity.IsInvalidInput(err) || feed.IsInvalidInput(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case identity.IsConflict(err):
		writeError(w, http.StatusConflict, "username or email already exists")
	case identity.IsNotFound(err) || feed.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not found")
	case feed.IsForbidden(err):
		writeError(w, http.StatusForbidden, "forbidden")
	default:
		h.log.Error(op, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
