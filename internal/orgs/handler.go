package orgs

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atheneum-lms/atheneum/internal/platform/httpx"
	"github.com/atheneum-lms/atheneum/internal/shared"
)

// Handler wires HTTP endpoints for organizations.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers organization routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/explore", h.Explore)
	r.Get("/me", h.Mine)
	r.Get("/slug/{orgSlug}", h.GetBySlug)
	r.Get("/{orgUUID}", h.Get)
	r.Patch("/{orgUUID}", h.Update)
	r.Delete("/{orgUUID}", h.Delete)
	r.Put("/{orgUUID}/config", h.UpdateConfig)
	r.Put("/{orgUUID}/logo", h.UpdateLogo)
	r.Put("/{orgUUID}/thumbnail", h.UpdateThumbnail)
	r.Get("/{orgUUID}/members", h.Members)
	r.Put("/{orgUUID}/members/{userID}/role", h.UpdateMemberRole)
	r.Delete("/{orgUUID}/members/{userID}", h.RemoveMember)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrgRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p := shared.PrincipalFromContext(r.Context())
	org, err := h.service.Create(r.Context(), p, req)
	if err != nil {
		h.logger.Error("create org", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, org)
}

func (h *Handler) Explore(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	items, pagination, err := h.service.ListExplore(r.Context(), page, perPage)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"organizations": items,
		"pagination":    pagination,
	})
}

func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	p := shared.PrincipalFromContext(r.Context())
	items, err := h.service.ListForUser(r.Context(), p)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	org, err := h.service.GetBySlug(r.Context(), chi.URLParam(r, "orgSlug"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, org)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	org, err := h.service.Get(r.Context(), chi.URLParam(r, "orgUUID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, org)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateOrgRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p := shared.PrincipalFromContext(r.Context())
	org, err := h.service.Update(r.Context(), p, chi.URLParam(r, "orgUUID"), req)
	if err != nil {
		h.logger.Error("update org", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, org)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	p := shared.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), p, chi.URLParam(r, "orgUUID")); err != nil {
		h.logger.Error("delete org", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"detail": "organization deleted"})
}

func (h *Handler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req UpdateConfigRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p := shared.PrincipalFromContext(r.Context())
	org, err := h.service.UpdateConfig(r.Context(), p, chi.URLParam(r, "orgUUID"), req.Config)
	if err != nil {
		h.logger.Error("update org config", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, org)
}

func (h *Handler) UpdateLogo(w http.ResponseWriter, r *http.Request) {
	h.uploadImage(w, r, "logo", h.service.UpdateLogo)
}

func (h *Handler) UpdateThumbnail(w http.ResponseWriter, r *http.Request) {
	h.uploadImage(w, r, "thumbnail", h.service.UpdateThumbnail)
}

func (h *Handler) uploadImage(w http.ResponseWriter, r *http.Request, field string, update func(ctx context.Context, p shared.Principal, orgUUID, filename string, content io.Reader) (*Organization, error)) {
	file, header, err := r.FormFile(field)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", field+" file required")
		return
	}
	defer file.Close()

	p := shared.PrincipalFromContext(r.Context())
	org, err := update(r.Context(), p, chi.URLParam(r, "orgUUID"), header.Filename, file)
	if err != nil {
		h.logger.Error("upload org image", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, org)
}

func (h *Handler) Members(w http.ResponseWriter, r *http.Request) {
	p := shared.PrincipalFromContext(r.Context())
	members, err := h.service.Members(r.Context(), p, chi.URLParam(r, "orgUUID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, members)
}

func (h *Handler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	var req UpdateMemberRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p := shared.PrincipalFromContext(r.Context())
	member, err := h.service.UpdateMemberRole(r.Context(), p, chi.URLParam(r, "orgUUID"), userID, req.RoleID)
	if err != nil {
		h.logger.Error("update member role", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, member)
}

func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	p := shared.PrincipalFromContext(r.Context())
	if err := h.service.RemoveMember(r.Context(), p, chi.URLParam(r, "orgUUID"), userID); err != nil {
		h.logger.Error("remove member", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"detail": "member removed"})
}
