package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/equipment-checklist/internal/checklist"
	"github.com/ukydev/equipment-checklist/internal/db"
	"github.com/ukydev/equipment-checklist/internal/inspection"
	"github.com/ukydev/equipment-checklist/internal/middleware"
	"github.com/ukydev/equipment-checklist/internal/models"
	"github.com/ukydev/equipment-checklist/internal/storage"
)

// ChecklistHandler serves the inspection form and submitted checklists.
type ChecklistHandler struct {
	sessions   *inspection.Manager
	checklists db.ChecklistCollection
	users      db.UserCollection
	images     *storage.ImageService
	logger     log.FieldLogger
}

// NewChecklistHandler creates the handler. users is optional and only used to
// prefill the operator fields of new inspections; images may be nil when
// photo storage is disabled.
func NewChecklistHandler(sessions *inspection.Manager, checklists db.ChecklistCollection, users db.UserCollection, images *storage.ImageService, logger log.FieldLogger) *ChecklistHandler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &ChecklistHandler{
		sessions:   sessions,
		checklists: checklists,
		users:      users,
		images:     images,
		logger:     logger,
	}
}

type definitionResponse struct {
	Type       models.ChecklistType `json:"checklist_type"`
	TotalItems int                  `json:"total_items"`
	Categories []definitionCategory `json:"categories"`
}

type definitionCategory struct {
	Title string           `json:"title"`
	Items []definitionItem `json:"items"`
}

type definitionItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Icon string `json:"icon"`
}

// GetDefinition returns the catalog for a checklist type.
func (h *ChecklistHandler) GetDefinition(w http.ResponseWriter, r *http.Request) {
	typ, err := checklist.ParseChecklistType(chi.URLParam(r, "type"))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	def, err := checklist.GetDefinition(typ)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}

	resp := definitionResponse{Type: typ, TotalItems: def.TotalItems()}
	for _, c := range def {
		dc := definitionCategory{Title: c.Title}
		for _, it := range c.Items {
			dc.Items = append(dc.Items, definitionItem{ID: it.ID, Text: it.Text, Icon: checklist.DefaultIcon(c.Title, it.Text)})
		}
		resp.Categories = append(resp.Categories, dc)
	}
	jsonOK(w, resp)
}

// session resolves the caller's inspection for the {type} URL parameter,
// starting one if needed.
func (h *ChecklistHandler) session(w http.ResponseWriter, r *http.Request) (*inspection.Session, *models.Claims, bool) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		jsonError(w, "User context not found", http.StatusUnauthorized)
		return nil, nil, false
	}
	typ, err := checklist.ParseChecklistType(chi.URLParam(r, "type"))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return nil, nil, false
	}
	s, created, err := h.sessions.Get(claims.UserID, typ)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return nil, nil, false
	}
	if created {
		h.prefill(r.Context(), claims, s)
	}
	return s, claims, true
}

// prefill copies the operator's name and license from their profile into
// empty header fields.
func (h *ChecklistHandler) prefill(ctx context.Context, claims *models.Claims, s *inspection.Session) {
	if h.users == nil {
		return
	}
	user, err := h.users.FindUserByID(ctx, claims.UserID)
	if err != nil {
		middleware.LoggerFromContext(ctx, h.logger).WithError(err).Debug("No profile to prefill inspection header")
		return
	}
	s.Prefill(models.InspectionHeader{
		OperatorName:  user.FullName(),
		LicenseNumber: user.LicenseNumber,
	})
}

func itemIndices(r *http.Request) (int, int, error) {
	c, err := strconv.Atoi(chi.URLParam(r, "c"))
	if err != nil {
		return 0, 0, errors.New("category index must be an integer")
	}
	i, err := strconv.Atoi(chi.URLParam(r, "i"))
	if err != nil {
		return 0, 0, errors.New("item index must be an integer")
	}
	return c, i, nil
}

// GetInspection returns the current form with its live score.
func (h *ChecklistHandler) GetInspection(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	jsonOK(w, s.View())
}

// UpdateHeader replaces the header fields.
func (h *ChecklistHandler) UpdateHeader(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	var header models.InspectionHeader
	if err := decodeJSON(w, r, &header); err != nil {
		jsonError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	s.SetHeader(header)
	jsonOK(w, s.View())
}

// PressItem applies the pass or fail toggle to one item.
func (h *ChecklistHandler) PressItem(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	c, i, err := itemIndices(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req struct {
		Control string `json:"control"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	ctl, err := checklist.ParseControl(req.Control)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	if _, err := s.Press(c, i, ctl); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	jsonOK(w, s.View())
}

// SetItemStatus sets one item's status directly.
func (h *ChecklistHandler) SetItemStatus(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	c, i, err := itemIndices(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req struct {
		Status models.CheckStatus `json:"status"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if err := s.SetStatus(c, i, req.Status); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	jsonOK(w, s.View())
}

// UploadItemImage stores the multipart "file" field as the item's photo.
func (h *ChecklistHandler) UploadItemImage(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	c, i, err := itemIndices(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	maxBytes := int64(storage.DefaultMaxImageBytes)
	if h.images != nil {
		maxBytes = h.images.MaxBytes()
	}
	// Leave room for multipart framing so the size check below reports the
	// file itself.
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeDomainError(w, r, h.logger, &storage.UploadError{Reason: "request too large", Err: storage.ErrTooLarge})
			return
		}
		jsonError(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}
	file, fh, err := r.FormFile("file")
	if err != nil {
		jsonError(w, `Missing "file" field`, http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		jsonError(w, "Failed to read upload", http.StatusBadRequest)
		return
	}

	url, err := s.AttachImage(r.Context(), c, i, inspection.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	jsonOK(w, map[string]string{"image_url": url})
}

// DeleteItemImage clears one item's photo.
func (h *ChecklistHandler) DeleteItemImage(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	c, i, err := itemIndices(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.SetImage(c, i, ""); err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	jsonOK(w, s.View())
}

// Submit validates and persists the inspection.
func (h *ChecklistHandler) Submit(w http.ResponseWriter, r *http.Request) {
	s, claims, ok := h.session(w, r)
	if !ok {
		return
	}
	stored, err := s.Submit(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	h.prefill(r.Context(), claims, s)
	jsonStatus(w, http.StatusCreated, map[string]any{
		"message":   "Checklist submitted successfully!",
		"checklist": stored,
	})
}

// RetryItems finishes a submission whose items failed to save.
func (h *ChecklistHandler) RetryItems(w http.ResponseWriter, r *http.Request) {
	s, claims, ok := h.session(w, r)
	if !ok {
		return
	}
	stored, err := s.RetryItems(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	h.prefill(r.Context(), claims, s)
	jsonOK(w, map[string]any{
		"message":   "Checklist submitted successfully!",
		"checklist": stored,
	})
}

// DiscardPending drops the item batch of a partially saved submission so the
// form can be submitted again.
func (h *ChecklistHandler) DiscardPending(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	id, err := s.DiscardPending()
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	jsonOK(w, map[string]string{
		"message":      "Pending checklist items discarded",
		"checklist_id": id,
	})
}

// ResetInspection discards the caller's progress for one type.
func (h *ChecklistHandler) ResetInspection(w http.ResponseWriter, r *http.Request) {
	s, claims, ok := h.session(w, r)
	if !ok {
		return
	}
	s.Reset()
	h.prefill(r.Context(), claims, s)
	jsonOK(w, s.View())
}

// ListChecklists returns recent submissions, newest first. mine=false lists
// every operator's submissions and needs the view-all permission.
func (h *ChecklistHandler) ListChecklists(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		jsonError(w, "User context not found", http.StatusUnauthorized)
		return
	}

	q := r.URL.Query()
	opts := db.ListOptions{Limit: parseInt(q.Get("limit"), db.DefaultListLimit)}
	if parseBool(q.Get("mine"), true) {
		opts.UserID = claims.UserID
	} else if !(&models.User{Role: claims.Role}).HasPermission(models.PermViewAllChecklists) {
		jsonError(w, "Insufficient permissions", http.StatusForbidden)
		return
	}

	list, err := h.checklists.ListChecklists(r.Context(), opts)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	if list == nil {
		list = []models.Checklist{}
	}
	jsonOK(w, map[string]any{
		"checklists": list,
		"count":      len(list),
	})
}

// GetChecklist returns one submission with its items regrouped by category.
// Other operators' submissions read as not found without the view-all
// permission.
func (h *ChecklistHandler) GetChecklist(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		jsonError(w, "User context not found", http.StatusUnauthorized)
		return
	}

	record, err := h.checklists.FindChecklistByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	if record.UserID != claims.UserID && !(&models.User{Role: claims.Role}).HasPermission(models.PermViewAllChecklists) {
		jsonError(w, "checklist not found", http.StatusNotFound)
		return
	}

	items, err := h.checklists.FindChecklistItems(r.Context(), record.ID)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	jsonOK(w, map[string]any{
		"checklist":  record,
		"categories": checklist.Regroup(items),
	})
}

// ServeImage streams a stored photo.
func (h *ChecklistHandler) ServeImage(w http.ResponseWriter, r *http.Request) {
	if h.images == nil {
		jsonError(w, "image storage is not configured", http.StatusNotFound)
		return
	}
	rc, info, err := h.images.Open(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			jsonError(w, "image not found", http.StatusNotFound)
			return
		}
		middleware.LoggerFromContext(r.Context(), h.logger).WithError(err).Error("Failed to open image")
		jsonError(w, "failed to read image", http.StatusBadGateway)
		return
	}
	defer rc.Close()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if _, err := io.Copy(w, rc); err != nil {
		middleware.LoggerFromContext(r.Context(), h.logger).WithError(err).Warn("Image stream interrupted")
	}
}
