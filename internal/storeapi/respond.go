package storeapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rpggio/fieldwork/internal/fault"
	"github.com/rpggio/fieldwork/internal/store"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, store.ErrorBody{Error: store.ErrorDetail{Code: code, Message: message}})
}

// writeError maps the error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, fault.ErrNotFound):
		writeProblem(w, http.StatusNotFound, store.CodeNotFound, err.Error())
	case errors.Is(err, fault.ErrForbidden):
		writeProblem(w, http.StatusForbidden, store.CodeForbidden, err.Error())
	case errors.Is(err, fault.ErrIllegalTransition):
		writeProblem(w, http.StatusConflict, store.CodeIllegalTransition, err.Error())
	case errors.Is(err, fault.ErrValidation), errors.Is(err, fault.ErrRejected), errors.Is(err, fault.ErrInvalidRecord):
		writeProblem(w, http.StatusUnprocessableEntity, store.CodeInvalid, err.Error())
	default:
		logger.Error("request failed", "error", err)
		writeProblem(w, http.StatusInternalServerError, store.CodeInternal, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding request body: %v", fault.ErrInvalidRecord, err)
	}
	return nil
}

func forbidden(kind, id string) error {
	return fmt.Errorf("%w: %s %q belongs to another ranger", fault.ErrForbidden, kind, id)
}
