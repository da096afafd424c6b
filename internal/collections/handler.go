package collections

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atheneum-lms/atheneum/internal/platform/httpx"
	"github.com/atheneum-lms/atheneum/internal/shared"
)

// Handler wires HTTP endpoints for collections.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers collection routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/org/{orgSlug}", h.ListByOrg)
	r.Get("/{collectionUUID}", h.Get)
	r.Patch("/{collectionUUID}", h.Update)
	r.Delete("/{collectionUUID}", h.Delete)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCollectionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p := shared.PrincipalFromContext(r.Context())
	collection, err := h.service.Create(r.Context(), p, req)
	if err != nil {
		h.logger.Error("create collection", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, collection)
}

func (h *Handler) ListByOrg(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	p := shared.PrincipalFromContext(r.Context())
	items, pagination, err := h.service.ListByOrgSlug(r.Context(), p, chi.URLParam(r, "orgSlug"), r.URL.Query().Get("q"), page, perPage)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"collections": items, "pagination": pagination})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p := shared.PrincipalFromContext(r.Context())
	collection, err := h.service.Get(r.Context(), p, chi.URLParam(r, "collectionUUID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, collection)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateCollectionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p := shared.PrincipalFromContext(r.Context())
	collection, err := h.service.Update(r.Context(), p, chi.URLParam(r, "collectionUUID"), req)
	if err != nil {
		h.logger.Error("update collection", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, collection)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	p := shared.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), p, chi.URLParam(r, "collectionUUID")); err != nil {
		h.logger.Error("delete collection", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"detail": "collection deleted"})
}
