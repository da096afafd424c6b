package audit

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/atheneum-lms/atheneum/internal/rbac"
	"github.com/atheneum-lms/atheneum/internal/shared"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// Result bundles timeline rows with their paging window.
type Result struct {
	Rows   []TimelineRow `json:"events"`
	Paging PagingInfo    `json:"paging"`
}

// Service reads the audit trail for organization admins.
type Service struct {
	repo     Repository
	resolver *rbac.Resolver
	logger   *slog.Logger
}

// NewService constructs an audit Service.
func NewService(repo Repository, resolver *rbac.Resolver, logger *slog.Logger) *Service {
	return &Service{repo: repo, resolver: resolver, logger: logger}
}

// Timeline returns one page of audit events for an organization. Only
// admins of that organization may read its trail.
func (s *Service) Timeline(ctx context.Context, p shared.Principal, filters TimelineFilters) (*Result, error) {
	if err := s.resolver.DecideAdmin(ctx, p, filters.OrgID); err != nil {
		return nil, err
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize

	rows, err := s.repo.TimelineWindow(ctx, TimelineQuery{
		OrgID:   filters.OrgID,
		From:    toPgTime(filters.From),
		To:      toPgTime(filters.To),
		ActorID: optionalID(filters.ActorID),
		Entity:  optionalText(filters.Entity),
		Action:  optionalText(filters.Action),
		Offset:  offset,
		Limit:   pageSize + 1,
	})
	if err != nil {
		return nil, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	if rows == nil {
		rows = []TimelineRow{}
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return &Result{Rows: rows, Paging: paging}, nil
}

// Export returns the full filtered window without paging, for CSV
// downloads. The same admin gate as Timeline applies.
func (s *Service) Export(ctx context.Context, p shared.Principal, filters TimelineFilters) ([]TimelineRow, error) {
	if err := s.resolver.DecideAdmin(ctx, p, filters.OrgID); err != nil {
		return nil, err
	}
	rows, err := s.repo.TimelineAll(ctx, TimelineQuery{
		OrgID:   filters.OrgID,
		From:    toPgTime(filters.From),
		To:      toPgTime(filters.To),
		ActorID: optionalID(filters.ActorID),
		Entity:  optionalText(filters.Entity),
		Action:  optionalText(filters.Action),
	})
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []TimelineRow{}
	}
	return rows, nil
}

func toPgTime(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: t, Valid: true}
}

func optionalText(value string) pgtype.Text {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: trimmed, Valid: true}
}

func optionalID(id int64) pgtype.Int8 {
	if id <= 0 {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: id, Valid: true}
}
