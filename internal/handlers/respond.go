package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/equipment-checklist/internal/checklist"
	"github.com/ukydev/equipment-checklist/internal/db"
	"github.com/ukydev/equipment-checklist/internal/inspection"
	"github.com/ukydev/equipment-checklist/internal/middleware"
	"github.com/ukydev/equipment-checklist/internal/storage"
)

func jsonStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}

func jsonOK(w http.ResponseWriter, data any) {
	jsonStatus(w, http.StatusOK, data)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	jsonStatus(w, code, map[string]any{"error": msg})
}

// decodeJSON reads a JSON body of at most 1 MiB into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(v)
}

// writeDomainError maps the error types of the inspection flow onto HTTP
// statuses and a JSON body.
func writeDomainError(w http.ResponseWriter, r *http.Request, logger log.FieldLogger, err error) {
	var (
		verr *checklist.ValidationError
		ierr *checklist.IndexError
		uerr *storage.UploadError
		perr *inspection.PersistenceError
		pend *inspection.PendingError
		dbe  *db.PersistenceError
	)
	switch {
	case errors.As(err, &verr):
		jsonStatus(w, http.StatusBadRequest, map[string]any{
			"error":  verr.Error(),
			"fields": verr.Fields,
		})
	case errors.As(err, &ierr):
		jsonError(w, ierr.Error(), http.StatusNotFound)
	case errors.As(err, &uerr):
		code := http.StatusBadRequest
		if errors.Is(err, storage.ErrTooLarge) {
			code = http.StatusRequestEntityTooLarge
		}
		jsonError(w, uerr.Error(), code)
	case errors.Is(err, inspection.ErrSubmitInProgress):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, inspection.ErrNothingToRetry), errors.Is(err, inspection.ErrInspectionReset):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.As(err, &pend):
		jsonStatus(w, http.StatusConflict, map[string]any{
			"error":        pend.Error(),
			"checklist_id": pend.ChecklistID,
		})
	case errors.As(err, &perr):
		middleware.LoggerFromContext(r.Context(), logger).WithError(err).WithField("stage", perr.Stage).Error("Checklist persistence failed")
		body := map[string]any{
			"error": perr.Error(),
			"stage": perr.Stage,
		}
		if perr.ChecklistID != "" {
			body["checklist_id"] = perr.ChecklistID
		}
		jsonStatus(w, http.StatusBadGateway, body)
	case errors.Is(err, checklist.ErrUnknownChecklistType), errors.Is(err, db.ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, checklist.ErrInvalidStatus), errors.Is(err, checklist.ErrInvalidControl):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &dbe):
		middleware.LoggerFromContext(r.Context(), logger).WithError(err).Error("Database error")
		jsonError(w, "database unavailable", http.StatusBadGateway)
	default:
		middleware.LoggerFromContext(r.Context(), logger).WithError(err).Error("Unhandled error")
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func parseInt(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func parseBool(s string, def bool) bool {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "":
		return def
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return def
}
