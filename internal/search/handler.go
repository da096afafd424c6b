package search

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/atheneum-lms/atheneum/internal/platform/httpx"
	"github.com/atheneum-lms/atheneum/internal/shared"
)

// Handler wires the search endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers search routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/org/{orgSlug}", h.AcrossOrg)
}

func (h *Handler) AcrossOrg(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "missing search query")
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	p := shared.PrincipalFromContext(r.Context())
	result, err := h.service.AcrossOrg(r.Context(), p, chi.URLParam(r, "orgSlug"), query, page, perPage)
	if err != nil {
		h.logger.Error("search across org", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
