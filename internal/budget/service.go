package budget

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/lattice-ops/lattice/internal/observability"
	"github.com/lattice-ops/lattice/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetLine(ctx context.Context, id int64) (BudgetLine, error)
	ListLines(ctx context.Context, fiscalYear int) ([]BudgetLine, error)
	// DeriveLedgers recomputes per-line ledger sums from orders: approved
	// orders encumber, completed orders actualise. Lines with no orders are
	// absent from the map.
	DeriveLedgers(ctx context.Context) (map[int64]Ledger, error)
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	InsertLine(ctx context.Context, line BudgetLine) (int64, error)
	UpdateLine(ctx context.Context, line BudgetLine) error
	ZeroLedgers(ctx context.Context) error
	SetLedger(ctx context.Context, id int64, ledger Ledger) error
	DeriveLedgers(ctx context.Context) (map[int64]Ledger, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service manages budget lines and their ledger integrity.
type Service struct {
	repo    RepositoryPort
	audit   AuditPort
	logger  *slog.Logger
	metrics *observability.Metrics

	reports singleflight.Group
}

// NewService constructs the budget service.
func NewService(repo RepositoryPort, audit AuditPort, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{repo: repo, audit: audit, logger: logger, metrics: metrics}
}

// CreateLineInput carries the fields accepted when creating a line.
type CreateLineInput struct {
	Code        string
	Name        string
	FiscalYear  int
	BudgetCents int64
}

// CreateLine adds a budget line with an empty ledger.
func (s *Service) CreateLine(ctx context.Context, input CreateLineInput, actorID int64) (BudgetLine, error) {
	code := strings.TrimSpace(input.Code)
	if code == "" || strings.TrimSpace(input.Name) == "" {
		return BudgetLine{}, fmt.Errorf("%w: code and name required", ErrValidation)
	}
	if input.FiscalYear < 2000 || input.FiscalYear > 2200 {
		return BudgetLine{}, fmt.Errorf("%w: implausible fiscal year %d", ErrValidation, input.FiscalYear)
	}
	if input.BudgetCents < 0 {
		return BudgetLine{}, fmt.Errorf("%w: budget must not be negative", ErrValidation)
	}

	line := BudgetLine{
		Code:        code,
		Name:        strings.TrimSpace(input.Name),
		FiscalYear:  input.FiscalYear,
		BudgetCents: input.BudgetCents,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.InsertLine(ctx, line)
		if err != nil {
			return err
		}
		line.ID = id
		return nil
	})
	if err != nil {
		return BudgetLine{}, err
	}
	s.recordAudit(ctx, actorID, "BUDGET_LINE_CREATE", line.ID, map[string]any{"code": line.Code, "budget_cents": line.BudgetCents})
	return s.repo.GetLine(ctx, line.ID)
}

// UpdateLine changes a line's name and allocation. The ledger columns are
// never written here; only order transitions and reconciliation touch them.
func (s *Service) UpdateLine(ctx context.Context, id int64, name string, budgetCents int64, actorID int64) (BudgetLine, error) {
	if strings.TrimSpace(name) == "" {
		return BudgetLine{}, fmt.Errorf("%w: name required", ErrValidation)
	}
	if budgetCents < 0 {
		return BudgetLine{}, fmt.Errorf("%w: budget must not be negative", ErrValidation)
	}
	line, err := s.repo.GetLine(ctx, id)
	if err != nil {
		return BudgetLine{}, err
	}
	line.Name = strings.TrimSpace(name)
	line.BudgetCents = budgetCents
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateLine(ctx, line)
	})
	if err != nil {
		return BudgetLine{}, err
	}
	s.recordAudit(ctx, actorID, "BUDGET_LINE_UPDATE", id, map[string]any{"budget_cents": budgetCents})
	return s.repo.GetLine(ctx, id)
}

// GetLine loads one budget line.
func (s *Service) GetLine(ctx context.Context, id int64) (BudgetLine, error) {
	return s.repo.GetLine(ctx, id)
}

// ListLines returns lines, optionally narrowed to one fiscal year.
func (s *Service) ListLines(ctx context.Context, fiscalYear int) ([]BudgetLine, error) {
	return s.repo.ListLines(ctx, fiscalYear)
}

// RecalculateAll zeroes every ledger and re-derives it from the orders inside
// one transaction, returning the number of lines written. Meant for offline
// maintenance: it takes no account of adjustments applied by transitions
// committing concurrently, which the transaction isolation keeps out anyway.
func (s *Service) RecalculateAll(ctx context.Context, actorID int64) (int, error) {
	written := 0
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.ZeroLedgers(ctx); err != nil {
			return err
		}
		derived, err := tx.DeriveLedgers(ctx)
		if err != nil {
			return err
		}
		for id, ledger := range derived {
			if err := tx.SetLedger(ctx, id, ledger); err != nil {
				return err
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.recordAudit(ctx, actorID, "BUDGET_RECALC", 0, map[string]any{"lines_written": written})
	return written, nil
}

// DriftScan compares every stored ledger against the derived sums without
// writing anything, and reports the divergent lines. The count lands in the
// drift gauge so a scheduled scan can alert on it.
func (s *Service) DriftScan(ctx context.Context) ([]Drift, error) {
	lines, err := s.repo.ListLines(ctx, 0)
	if err != nil {
		return nil, err
	}
	derived, err := s.repo.DeriveLedgers(ctx)
	if err != nil {
		return nil, err
	}

	var drifts []Drift
	for _, line := range lines {
		want := derived[line.ID]
		if line.EncumberedCents == want.EncumberedCents && line.ActualCents == want.ActualCents {
			continue
		}
		drift := Drift{
			BudgetLineID: line.ID,
			Code:         line.Code,
			Stored:       Ledger{EncumberedCents: line.EncumberedCents, ActualCents: line.ActualCents},
			Derived:      want,
		}
		drifts = append(drifts, drift)
		if s.logger != nil {
			s.logger.Warn("budget ledger drift",
				slog.Int64("budget_line_id", line.ID),
				slog.String("code", line.Code),
				slog.Int64("stored_encumbered", line.EncumberedCents),
				slog.Int64("derived_encumbered", want.EncumberedCents),
				slog.Int64("stored_actual", line.ActualCents),
				slog.Int64("derived_actual", want.ActualCents))
		}
	}
	s.metrics.SetBudgetDriftLines(len(drifts))
	return drifts, nil
}

// WriteReport streams the budget report for one fiscal year as CSV. Identical
// concurrent requests share a single build via singleflight.
func (s *Service) WriteReport(ctx context.Context, w io.Writer, fiscalYear int) error {
	key := "report:" + strconv.Itoa(fiscalYear)
	data, err, _ := s.reports.Do(key, func() (any, error) {
		return s.buildReport(ctx, fiscalYear)
	})
	if err != nil {
		return err
	}
	_, err = w.Write(data.([]byte))
	return err
}

func (s *Service) buildReport(ctx context.Context, fiscalYear int) ([]byte, error) {
	lines, err := s.repo.ListLines(ctx, fiscalYear)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write([]string{"Code", "Name", "Fiscal Year", "Budget", "Encumbered", "Actual", "Available"}); err != nil {
		return nil, err
	}
	var totalBudget, totalEncumbered, totalActual int64
	for _, line := range lines {
		if err := writer.Write([]string{
			line.Code,
			line.Name,
			strconv.Itoa(line.FiscalYear),
			formatCents(line.BudgetCents),
			formatCents(line.EncumberedCents),
			formatCents(line.ActualCents),
			formatCents(line.AvailableCents()),
		}); err != nil {
			return nil, err
		}
		totalBudget += line.BudgetCents
		totalEncumbered += line.EncumberedCents
		totalActual += line.ActualCents
	}
	if err := writer.Write([]string{
		"TOTAL", "", "",
		formatCents(totalBudget),
		formatCents(totalEncumbered),
		formatCents(totalActual),
		formatCents(totalBudget - totalEncumbered - totalActual),
	}); err != nil {
		return nil, err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "budget_line", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}
