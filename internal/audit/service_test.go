package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	entries    []Entry
	lastFilter Filter
}

func (r *memoryRepo) List(_ context.Context, filter Filter) ([]Entry, error) {
	r.lastFilter = filter
	var out []Entry
	for _, entry := range r.entries {
		if filter.Entity != "" && entry.Entity != filter.Entity {
			continue
		}
		if filter.ActorID != 0 && entry.ActorID != filter.ActorID {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func TestTimelineDefaultsAndValidation(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Timeline(ctx, Filter{})
	require.NoError(t, err)
	require.Equal(t, 100, repo.lastFilter.Limit)

	_, err = svc.Timeline(ctx, Filter{Limit: 10000})
	require.NoError(t, err)
	require.Equal(t, 100, repo.lastFilter.Limit)

	from := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	_, err = svc.Timeline(ctx, Filter{From: from, To: from.Add(-time.Hour)})
	require.ErrorIs(t, err, ErrValidation)
}

func TestTimelineFilters(t *testing.T) {
	repo := &memoryRepo{entries: []Entry{
		{ID: 1, ActorID: 5, Entity: "purchase_order", Action: "PO_APPROVE"},
		{ID: 2, ActorID: 5, Entity: "timeclock", Action: "CLOCK_IN"},
		{ID: 3, ActorID: 9, Entity: "purchase_order", Action: "PO_COMPLETE"},
	}}
	svc := NewService(repo)

	entries, err := svc.Timeline(context.Background(), Filter{Entity: "purchase_order", ActorID: 5})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, int64(1), entries[0].ID)
}

func TestWriteCSV(t *testing.T) {
	at := time.Date(2025, time.March, 12, 14, 30, 0, 0, time.UTC)
	repo := &memoryRepo{entries: []Entry{
		{ID: 1, ActorID: 5, Action: "PO_APPROVE", Entity: "purchase_order", EntityID: "42",
			Meta: map[string]any{"number": "PO-1"}, OccurredAt: at},
		{ID: 2, ActorID: 9, Action: "CLOCK_IN", Entity: "timeclock", EntityID: "7", OccurredAt: at},
	}}
	svc := NewService(repo)

	var buf bytes.Buffer
	require.NoError(t, svc.WriteCSV(context.Background(), &buf, Filter{}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"ID", "Occurred At", "Actor", "Action", "Entity", "Entity ID", "Meta"}, rows[0])
	require.Equal(t, "2025-03-12T14:30:00Z", rows[1][1])
	require.Equal(t, `{"number":"PO-1"}`, rows[1][6])
	require.Equal(t, "", rows[2][6])
}
