package chapters

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atheneum-lms/atheneum/internal/platform/httpx"
	"github.com/atheneum-lms/atheneum/internal/shared"
)

// Handler wires HTTP endpoints for chapters.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers chapter routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/course/{courseUUID}", h.ListForCourse)
	r.Put("/course/{courseUUID}/order", h.Reorder)
	r.Get("/{chapterUUID}", h.Get)
	r.Patch("/{chapterUUID}", h.Update)
	r.Delete("/{chapterUUID}", h.Delete)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateChapterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p := shared.PrincipalFromContext(r.Context())
	chapter, err := h.service.Create(r.Context(), p, req)
	if err != nil {
		h.logger.Error("create chapter", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, chapter)
}

func (h *Handler) ListForCourse(w http.ResponseWriter, r *http.Request) {
	withUnpublished, _ := strconv.ParseBool(r.URL.Query().Get("with_unpublished"))
	p := shared.PrincipalFromContext(r.Context())
	items, err := h.service.ListForCourse(r.Context(), p, chi.URLParam(r, "courseUUID"), withUnpublished)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"chapters": items})
}

func (h *Handler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p := shared.PrincipalFromContext(r.Context())
	if err := h.service.Reorder(r.Context(), p, chi.URLParam(r, "courseUUID"), req); err != nil {
		h.logger.Error("reorder chapters", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"detail": "chapters and activities reordered"})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p := shared.PrincipalFromContext(r.Context())
	chapter, err := h.service.Get(r.Context(), p, chi.URLParam(r, "chapterUUID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, chapter)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateChapterRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p := shared.PrincipalFromContext(r.Context())
	chapter, err := h.service.Update(r.Context(), p, chi.URLParam(r, "chapterUUID"), req)
	if err != nil {
		h.logger.Error("update chapter", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, chapter)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	p := shared.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), p, chi.URLParam(r, "chapterUUID")); err != nil {
		h.logger.Error("delete chapter", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"detail": "chapter deleted"})
}
