package courses

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/atheneum-lms/atheneum/internal/platform/httpx"
	"github.com/atheneum-lms/atheneum/internal/shared"
)

// Handler wires HTTP endpoints for courses.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers course routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/org/{orgSlug}", h.ListByOrg)
	r.Get("/id/{courseID}", h.GetByID)
	r.Get("/{courseUUID}", h.Get)
	r.Patch("/{courseUUID}", h.Update)
	r.Delete("/{courseUUID}", h.Delete)
	r.Put("/{courseUUID}/thumbnail", h.UpdateThumbnail)
	r.Post("/{courseUUID}/contributors", h.Apply)
	r.Get("/{courseUUID}/contributors", h.ListContributors)
	r.Put("/{courseUUID}/contributors/{userID}", h.UpdateContributor)
	r.Post("/{courseUUID}/updates", h.CreateCourseUpdate)
	r.Get("/{courseUUID}/updates", h.ListCourseUpdates)
	r.Patch("/{courseUUID}/updates/{courseUpdateUUID}", h.UpdateCourseUpdate)
	r.Delete("/{courseUUID}/updates/{courseUpdateUUID}", h.DeleteCourseUpdate)
}

// Create accepts either a JSON body or a multipart form carrying the
// course fields plus an optional thumbnail file.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCourseRequest
	var thumbnailName string
	var thumbnail io.Reader

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		req = createRequestFromForm(r)
		if file, header, err := r.FormFile("thumbnail"); err == nil {
			defer file.Close()
			thumbnail = file
			thumbnailName = header.Filename
		}
	} else if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	p := shared.PrincipalFromContext(r.Context())
	course, err := h.service.Create(r.Context(), p, req, r.Header.Get("Idempotency-Key"), thumbnailName, thumbnail)
	if err != nil {
		h.logger.Error("create course", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, course)
}

func (h *Handler) ListByOrg(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	query := r.URL.Query().Get("q")

	p := shared.PrincipalFromContext(r.Context())
	items, pagination, err := h.service.ListByOrgSlug(r.Context(), p, chi.URLParam(r, "orgSlug"), query, page, perPage)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"courses":    items,
		"pagination": pagination,
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p := shared.PrincipalFromContext(r.Context())
	course, err := h.service.Get(r.Context(), p, chi.URLParam(r, "courseUUID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, course)
}

func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "courseID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid course id")
		return
	}
	p := shared.PrincipalFromContext(r.Context())
	course, err := h.service.GetByID(r.Context(), p, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, course)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateCourseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p := shared.PrincipalFromContext(r.Context())
	course, err := h.service.Update(r.Context(), p, chi.URLParam(r, "courseUUID"), req)
	if err != nil {
		h.logger.Error("update course", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, course)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	p := shared.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), p, chi.URLParam(r, "courseUUID")); err != nil {
		h.logger.Error("delete course", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"detail": "course deleted"})
}

func (h *Handler) UpdateThumbnail(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("thumbnail")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "missing thumbnail file")
		return
	}
	defer file.Close()

	p := shared.PrincipalFromContext(r.Context())
	course, err := h.service.UpdateThumbnail(r.Context(), p, chi.URLParam(r, "courseUUID"), header.Filename, file)
	if err != nil {
		h.logger.Error("update course thumbnail", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, course)
}

func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	p := shared.PrincipalFromContext(r.Context())
	if err := h.service.Apply(r.Context(), p, chi.URLParam(r, "courseUUID")); err != nil {
		h.logger.Error("apply contributor", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"detail": "contributor application submitted", "status": "pending"})
}

func (h *Handler) ListContributors(w http.ResponseWriter, r *http.Request) {
	p := shared.PrincipalFromContext(r.Context())
	authors, err := h.service.ListContributors(r.Context(), p, chi.URLParam(r, "courseUUID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"contributors": authors})
}

func (h *Handler) UpdateContributor(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return
	}
	var req UpdateContributorRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p := shared.PrincipalFromContext(r.Context())
	author, err := h.service.UpdateContributor(r.Context(), p, chi.URLParam(r, "courseUUID"), userID, req)
	if err != nil {
		h.logger.Error("update contributor", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, author)
}

func (h *Handler) CreateCourseUpdate(w http.ResponseWriter, r *http.Request) {
	var req CreateCourseUpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p := shared.PrincipalFromContext(r.Context())
	update, err := h.service.CreateCourseUpdate(r.Context(), p, chi.URLParam(r, "courseUUID"), req)
	if err != nil {
		h.logger.Error("create course update", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, update)
}

func (h *Handler) ListCourseUpdates(w http.ResponseWriter, r *http.Request) {
	p := shared.PrincipalFromContext(r.Context())
	updates, err := h.service.ListCourseUpdates(r.Context(), p, chi.URLParam(r, "courseUUID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updates": updates})
}

func (h *Handler) UpdateCourseUpdate(w http.ResponseWriter, r *http.Request) {
	var req UpdateCourseUpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p := shared.PrincipalFromContext(r.Context())
	update, err := h.service.UpdateCourseUpdate(r.Context(), p, chi.URLParam(r, "courseUpdateUUID"), req)
	if err != nil {
		h.logger.Error("update course update", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, update)
}

func (h *Handler) DeleteCourseUpdate(w http.ResponseWriter, r *http.Request) {
	p := shared.PrincipalFromContext(r.Context())
	if err := h.service.DeleteCourseUpdate(r.Context(), p, chi.URLParam(r, "courseUpdateUUID")); err != nil {
		h.logger.Error("delete course update", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"detail": "course update deleted"})
}

func createRequestFromForm(r *http.Request) CreateCourseRequest {
	orgID, _ := strconv.ParseInt(r.FormValue("org_id"), 10, 64)
	public, _ := strconv.ParseBool(r.FormValue("public"))
	open, _ := strconv.ParseBool(r.FormValue("open_to_contributors"))
	return CreateCourseRequest{
		OrgID:              orgID,
		Name:               r.FormValue("name"),
		Description:        r.FormValue("description"),
		About:              r.FormValue("about"),
		Learnings:          r.FormValue("learnings"),
		Tags:               r.FormValue("tags"),
		Public:             public,
		OpenToContributors: open,
	}
}
