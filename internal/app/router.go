package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/atheneum-lms/atheneum/internal/audit"
	"github.com/atheneum-lms/atheneum/internal/auth"
	"github.com/atheneum-lms/atheneum/internal/collections"
	"github.com/atheneum-lms/atheneum/internal/courses"
	"github.com/atheneum-lms/atheneum/internal/courses/activities"
	"github.com/atheneum-lms/atheneum/internal/courses/chapters"
	"github.com/atheneum-lms/atheneum/internal/observability"
	"github.com/atheneum-lms/atheneum/internal/orgs"
	"github.com/atheneum-lms/atheneum/internal/roles"
	"github.com/atheneum-lms/atheneum/internal/search"
	"github.com/atheneum-lms/atheneum/internal/shared"
	"github.com/atheneum-lms/atheneum/internal/usergroups"
	"github.com/atheneum-lms/atheneum/internal/users"
	"github.com/atheneum-lms/atheneum/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics

	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	OrgsHandler        *orgs.Handler
	RolesHandler       *roles.Handler
	CoursesHandler     *courses.Handler
	ChaptersHandler    *chapters.Handler
	ActivitiesHandler  *activities.Handler
	CollectionsHandler *collections.Handler
	UserGroupsHandler  *usergroups.Handler
	SearchHandler      *search.Handler
	AuditHandler       *audit.Handler
	JobsHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with the full API surface.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(api chi.Router) {
		if params.AuthHandler != nil {
			api.Route("/auth", params.AuthHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			api.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.OrgsHandler != nil {
			api.Route("/orgs", params.OrgsHandler.MountRoutes)
		}
		if params.RolesHandler != nil {
			api.Route("/roles", params.RolesHandler.MountRoutes)
		}
		if params.CoursesHandler != nil {
			api.Route("/courses", params.CoursesHandler.MountRoutes)
		}
		if params.ChaptersHandler != nil {
			api.Route("/chapters", params.ChaptersHandler.MountRoutes)
		}
		if params.ActivitiesHandler != nil {
			api.Route("/activities", params.ActivitiesHandler.MountRoutes)
		}
		if params.CollectionsHandler != nil {
			api.Route("/collections", params.CollectionsHandler.MountRoutes)
		}
		if params.UserGroupsHandler != nil {
			api.Route("/usergroups", params.UserGroupsHandler.MountRoutes)
		}
		if params.SearchHandler != nil {
			api.Route("/search", params.SearchHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			api.Route("/audit", params.AuditHandler.MountRoutes)
		}
	})

	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	// Uploaded media is served directly when the filesystem backend is
	// active. The s3 backend serves from the bucket instead.
	if params.Config != nil && params.Config.StorageBackend == "fs" && params.Config.MediaRoot != "" {
		fileServer := http.StripPrefix("/media/", http.FileServer(http.Dir(params.Config.MediaRoot)))
		r.Handle("/media/*", mediaCacheHandler(fileServer))
	}

	return r
}

// mediaCacheHandler wraps the media file server with a one hour browser
// cache. Stored file names are unique per upload, so staleness is bounded.
func mediaCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
