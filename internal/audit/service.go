package audit

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"
)

const maxTimelineLimit = 500

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	List(ctx context.Context, filter Filter) ([]Entry, error)
}

// Service reads the audit trail. Writing happens in the domain services
// through the shared audit logger; this side is read-only.
type Service struct {
	repo RepositoryPort
}

// NewService constructs the audit service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Timeline returns audit entries matching the filter, newest first.
func (s *Service) Timeline(ctx context.Context, filter Filter) ([]Entry, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, fmt.Errorf("%w: to precedes from", ErrValidation)
	}
	if filter.Limit <= 0 || filter.Limit > maxTimelineLimit {
		filter.Limit = 100
	}
	return s.repo.List(ctx, filter)
}

// WriteCSV streams the filtered timeline as CSV.
func (s *Service) WriteCSV(ctx context.Context, w io.Writer, filter Filter) error {
	entries, err := s.Timeline(ctx, filter)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"ID", "Occurred At", "Actor", "Action", "Entity", "Entity ID", "Meta"}); err != nil {
		return err
	}
	for _, entry := range entries {
		meta := ""
		if len(entry.Meta) > 0 {
			data, err := json.Marshal(entry.Meta)
			if err != nil {
				return err
			}
			meta = string(data)
		}
		if err := writer.Write([]string{
			strconv.FormatInt(entry.ID, 10),
			entry.OccurredAt.Format(time.RFC3339),
			strconv.FormatInt(entry.ActorID, 10),
			entry.Action,
			entry.Entity,
			entry.EntityID,
			meta,
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
