package activities

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atheneum-lms/atheneum/internal/platform/httpx"
	"github.com/atheneum-lms/atheneum/internal/shared"
)

// Handler wires HTTP endpoints for activities.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers activity routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/chapter/{chapterID}", h.ListForChapter)
	r.Get("/id/{activityID}", h.GetByID)
	r.Get("/{activityUUID}", h.Get)
	r.Patch("/{activityUUID}", h.Update)
	r.Delete("/{activityUUID}", h.Delete)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateActivityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p := shared.PrincipalFromContext(r.Context())
	activity, err := h.service.Create(r.Context(), p, req)
	if err != nil {
		h.logger.Error("create activity", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, activity)
}

func (h *Handler) ListForChapter(w http.ResponseWriter, r *http.Request) {
	chapterID, err := strconv.ParseInt(chi.URLParam(r, "chapterID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid chapter id")
		return
	}
	withUnpublished, _ := strconv.ParseBool(r.URL.Query().Get("with_unpublished"))
	p := shared.PrincipalFromContext(r.Context())
	items, err := h.service.ListForChapter(r.Context(), p, chapterID, withUnpublished)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"activities": items})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p := shared.PrincipalFromContext(r.Context())
	activity, err := h.service.Get(r.Context(), p, chi.URLParam(r, "activityUUID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, activity)
}

func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "activityID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid activity id")
		return
	}
	p := shared.PrincipalFromContext(r.Context())
	activity, err := h.service.GetByID(r.Context(), p, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, activity)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateActivityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p := shared.PrincipalFromContext(r.Context())
	activity, err := h.service.Update(r.Context(), p, chi.URLParam(r, "activityUUID"), req)
	if err != nil {
		h.logger.Error("update activity", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, activity)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	p := shared.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), p, chi.URLParam(r, "activityUUID")); err != nil {
		h.logger.Error("delete activity", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"detail": "activity deleted"})
}
