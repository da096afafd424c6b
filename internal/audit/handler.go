package audit

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/atheneum-lms/atheneum/internal/platform/httpx"
	"github.com/atheneum-lms/atheneum/internal/shared"
)

const (
	defaultDateRange = 7 * 24 * time.Hour
	maxDateRange     = 90 * 24 * time.Hour
	exportRateLimit  = 10
	exportRateWindow = time.Minute
)

// Handler wires HTTP endpoints for the audit timeline.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers audit routes on the provided router. The CSV
// export scans the full window, so it is rate limited per user.
func (h *Handler) MountRoutes(r chi.Router) {
	limiter := httprate.Limit(exportRateLimit, exportRateWindow,
		httprate.WithKeyFuncs(exportRateKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export rate limit exceeded, retry later")
		}),
	)
	r.Get("/org/{orgID}", h.Timeline)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/org/{orgID}/export.csv", h.Export)
	})
}

func exportRateKey(r *http.Request) (string, error) {
	p := shared.PrincipalFromContext(r.Context())
	if !p.IsAnonymous() {
		return "user:" + strconv.FormatInt(p.UserID, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	p := shared.PrincipalFromContext(r.Context())
	result, err := h.service.Timeline(r.Context(), p, filters)
	if err != nil {
		h.logger.Error("load audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	p := shared.PrincipalFromContext(r.Context())
	rows, err := h.service.Export(r.Context(), p, filters)
	if err != nil {
		h.logger.Error("export audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	csvBytes, err := WriteCSV(rows)
	if err != nil {
		h.logger.Error("encode audit csv", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-timeline.csv"`)
	if _, err := w.Write(csvBytes); err != nil {
		h.logger.Warn("write audit csv", slog.Any("error", err))
	}
}

// parseFilters reads the query string. Dates are day granular and the
// window is inclusive of the whole 'to' day.
func parseFilters(r *http.Request) (TimelineFilters, error) {
	orgID, err := strconv.ParseInt(chi.URLParam(r, "orgID"), 10, 64)
	if err != nil || orgID <= 0 {
		return TimelineFilters{}, errors.New("invalid organization id")
	}

	now := time.Now().UTC()
	toStr := strings.TrimSpace(r.URL.Query().Get("to"))
	if toStr == "" {
		toStr = now.Format("2006-01-02")
	}
	toDate, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		return TimelineFilters{}, errors.New("invalid 'to' date, expected YYYY-MM-DD")
	}

	fromStr := strings.TrimSpace(r.URL.Query().Get("from"))
	if fromStr == "" {
		fromStr = toDate.Add(-defaultDateRange).Format("2006-01-02")
	}
	from, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return TimelineFilters{}, errors.New("invalid 'from' date, expected YYYY-MM-DD")
	}
	if from.After(toDate) {
		return TimelineFilters{}, errors.New("'from' must not be after 'to'")
	}
	if toDate.Sub(from) > maxDateRange {
		return TimelineFilters{}, errors.New("date range must not exceed 90 days")
	}

	filters := TimelineFilters{OrgID: orgID, From: from, To: toDate.AddDate(0, 0, 1)}
	if v := strings.TrimSpace(r.URL.Query().Get("actor_id")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return TimelineFilters{}, errors.New("invalid actor id")
		}
		filters.ActorID = id
	}
	filters.Entity = strings.TrimSpace(r.URL.Query().Get("entity"))
	filters.Action = strings.TrimSpace(r.URL.Query().Get("action"))
	if v := strings.TrimSpace(r.URL.Query().Get("page")); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page <= 0 {
			return TimelineFilters{}, errors.New("invalid page")
		}
		filters.Page = page
	}
	if v := strings.TrimSpace(r.URL.Query().Get("page_size")); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size <= 0 {
			return TimelineFilters{}, errors.New("invalid page size")
		}
		filters.PageSize = size
	}
	return filters, nil
}
