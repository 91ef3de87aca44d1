package ledger

import (
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"metalflow/internal/repository"
	custom_error "metalflow/pkg/errors"
	"metalflow/pkg/models"
)

type EntryFilter struct {
	DepartmentID    *int
	OrderID         *int
	DateFrom        *time.Time
	DateTo          *time.Time
	IncludeArchived bool
}

// SummaryRow is one metal's aggregate over the ledger, as returned by the
// grouped summary query.
type SummaryRow struct {
	MetalID           int     `db:"metal_id"`
	MetalCode         string  `db:"metal_code"`
	MetalName         string  `db:"metal_name"`
	TotalQtyIn        float64 `db:"total_qty_in"`
	TotalQtyOut       float64 `db:"total_qty_out"`
	FineWeightBalance float64 `db:"fine_weight_balance"`
}

type LedgerRepository interface {
	InsertEntry(tx *goqu.TxDatabase, entry *models.LedgerEntry) error
	GetEntry(tenantID, entryID int) (*models.LedgerEntry, error)
	GetEntryForUpdate(tx *goqu.TxDatabase, tenantID, entryID int) (*models.LedgerEntry, error)
	UpdateEntry(tx *goqu.TxDatabase, entry *models.LedgerEntry) error
	DeleteEntry(tx *goqu.TxDatabase, tenantID, entryID int) error
	ListEntries(tenantID int, filter EntryFilter) ([]models.LedgerEntry, error)
	GetOrderNumbers(tenantID int, orderIDs []int) (map[int]string, error)
	Summary(tenantID int, departmentID *int) ([]SummaryRow, error)
	ArchiveByDateRange(tx *goqu.TxDatabase, tenantID int, dateFrom, dateTo time.Time) (int64, error)
	SetArchived(tx *goqu.TxDatabase, tenantID, entryID int, archived bool) error
}

// BalanceStore upserts and reads ledger-scoped department balance buckets.
type BalanceStore interface {
	ApplyDelta(tx *goqu.TxDatabase, tenantID, departmentID, metalID int, weightDelta float64) error
	GetBalance(tenantID, departmentID, metalID int) (*models.DepartmentBalance, error)
	ListBalances(tenantID int, departmentID *int) ([]models.DepartmentBalance, error)
}

type ledgerRepository struct {
	repo *repository.Repository
}

func NewRepository(r *repository.Repository) *ledgerRepository {
	return &ledgerRepository{repo: r}
}

var entryColumns = []any{
	"id", "tenant_id", "date", "department_id", "order_id", "metal_id",
	"direction", "quantity", "weight", "fine_weight", "notes", "created_by",
	"is_archived", "created_at", "updated_at",
}

func (r *ledgerRepository) InsertEntry(tx *goqu.TxDatabase, entry *models.LedgerEntry) error {
	query := tx.Insert("department_ledger_entries").
		Rows(goqu.Record{
			"tenant_id":     entry.TenantID,
			"date":          entry.Date,
			"department_id": entry.DepartmentID,
			"order_id":      entry.OrderID,
			"metal_id":      entry.MetalID,
			"direction":     entry.Direction,
			"quantity":      entry.Quantity,
			"weight":        entry.Weight,
			"fine_weight":   entry.FineWeight,
			"notes":         entry.Notes,
			"created_by":    entry.CreatedBy,
		}).
		Returning("id")

	if _, err := query.Executor().ScanVal(&entry.ID); err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	return nil
}

func (r *ledgerRepository) GetEntry(tenantID, entryID int) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	query := r.repo.GoquDBWrapper.
		Select(entryColumns...).
		From("department_ledger_entries").
		Where(goqu.Ex{"id": entryID, "tenant_id": tenantID})

	found, err := query.Executor().ScanStruct(&entry)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ledger entry %d: %w", entryID, err)
	}
	if !found {
		return nil, custom_error.NewNotFoundError("LedgerEntry", entryID)
	}

	return &entry, nil
}

// GetEntryForUpdate locks the entry row for the rest of the transaction.
// Concurrent mutations of the same entry serialize here instead of both
// reversing the same balance delta.
func (r *ledgerRepository) GetEntryForUpdate(tx *goqu.TxDatabase, tenantID, entryID int) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	query := tx.
		Select(entryColumns...).
		From("department_ledger_entries").
		Where(goqu.Ex{"id": entryID, "tenant_id": tenantID}).
		ForUpdate(exp.Wait)

	found, err := query.Executor().ScanStruct(&entry)
	if err != nil {
		return nil, fmt.Errorf("failed to lock ledger entry %d: %w", entryID, err)
	}
	if !found {
		return nil, custom_error.NewNotFoundError("LedgerEntry", entryID)
	}

	return &entry, nil
}

func (r *ledgerRepository) UpdateEntry(tx *goqu.TxDatabase, entry *models.LedgerEntry) error {
	query := tx.Update("department_ledger_entries").
		Set(goqu.Record{
			"date":          entry.Date,
			"department_id": entry.DepartmentID,
			"order_id":      entry.OrderID,
			"metal_id":      entry.MetalID,
			"direction":     entry.Direction,
			"quantity":      entry.Quantity,
			"weight":        entry.Weight,
			"fine_weight":   entry.FineWeight,
			"notes":         entry.Notes,
			"updated_at":    goqu.L("NOW()"),
		}).
		Where(goqu.Ex{"id": entry.ID, "tenant_id": entry.TenantID})

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to update ledger entry %d: %w", entry.ID, err)
	}

	return nil
}

func (r *ledgerRepository) DeleteEntry(tx *goqu.TxDatabase, tenantID, entryID int) error {
	query := tx.Delete("department_ledger_entries").
		Where(goqu.Ex{"id": entryID, "tenant_id": tenantID})

	result, err := query.Executor().Exec()
	if err != nil {
		return fmt.Errorf("failed to delete ledger entry %d: %w", entryID, err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count deleted entries: %w", err)
	}
	if count == 0 {
		// A concurrent delete already removed the row; its reversal must
		// not be applied twice.
		return custom_error.NewNotFoundError("LedgerEntry", entryID)
	}

	return nil
}

func (r *ledgerRepository) ListEntries(tenantID int, filter EntryFilter) ([]models.LedgerEntry, error) {
	query := r.repo.GoquDBWrapper.
		Select(entryColumns...).
		From("department_ledger_entries").
		Where(goqu.Ex{"tenant_id": tenantID})

	if filter.DepartmentID != nil {
		query = query.Where(goqu.Ex{"department_id": *filter.DepartmentID})
	}
	if filter.OrderID != nil {
		query = query.Where(goqu.Ex{"order_id": *filter.OrderID})
	}
	if filter.DateFrom != nil {
		query = query.Where(goqu.C("date").Gte(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		query = query.Where(goqu.C("date").Lte(*filter.DateTo))
	}
	if !filter.IncludeArchived {
		query = query.Where(goqu.Ex{"is_archived": false})
	}

	query = query.Order(goqu.I("date").Desc())

	var entries []models.LedgerEntry
	if err := query.Executor().ScanStructs(&entries); err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}

	return entries, nil
}

func (r *ledgerRepository) GetOrderNumbers(tenantID int, orderIDs []int) (map[int]string, error) {
	if len(orderIDs) == 0 {
		return map[int]string{}, nil
	}

	sql, args, err := r.repo.GoquDBWrapper.
		Select("id", "order_number").
		From("orders").
		Where(goqu.Ex{"tenant_id": tenantID, "id": orderIDs}).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build order number query: %w", err)
	}

	rows, err := r.repo.DB.Query(sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order numbers: %w", err)
	}
	defer rows.Close()

	result := make(map[int]string, len(orderIDs))
	for rows.Next() {
		var id int
		var number string
		if err := rows.Scan(&id, &number); err != nil {
			return nil, fmt.Errorf("failed to scan order number: %w", err)
		}
		result[id] = number
	}

	return result, rows.Err()
}

func (r *ledgerRepository) Summary(tenantID int, departmentID *int) ([]SummaryRow, error) {
	query := r.repo.GoquDBWrapper.
		Select(
			goqu.I("m.id").As("metal_id"),
			goqu.I("m.code").As("metal_code"),
			goqu.I("m.name").As("metal_name"),
			goqu.SUM(goqu.Case().
				When(goqu.I("e.direction").Eq(models.DirectionIn), goqu.I("e.quantity")).
				Else(0)).As("total_qty_in"),
			goqu.SUM(goqu.Case().
				When(goqu.I("e.direction").Eq(models.DirectionOut), goqu.I("e.quantity")).
				Else(0)).As("total_qty_out"),
			goqu.SUM(goqu.I("e.fine_weight")).As("fine_weight_balance"),
		).
		From(goqu.T("department_ledger_entries").As("e")).
		Join(
			goqu.T("metals").As("m"),
			goqu.On(goqu.Ex{"e.metal_id": goqu.I("m.id")}),
		).
		Where(goqu.Ex{"e.tenant_id": tenantID})

	if departmentID != nil {
		query = query.Where(goqu.Ex{"e.department_id": *departmentID})
	}

	query = query.GroupBy(goqu.I("m.id"), goqu.I("m.code"), goqu.I("m.name"))

	var rows []SummaryRow
	if err := query.Executor().ScanStructs(&rows); err != nil {
		return nil, fmt.Errorf("failed to aggregate ledger summary: %w", err)
	}

	return rows, nil
}

func (r *ledgerRepository) ArchiveByDateRange(tx *goqu.TxDatabase, tenantID int, dateFrom, dateTo time.Time) (int64, error) {
	query := tx.Update("department_ledger_entries").
		Set(goqu.Record{
			"is_archived": true,
			"updated_at":  goqu.L("NOW()"),
		}).
		Where(goqu.Ex{"tenant_id": tenantID, "is_archived": false}).
		Where(goqu.C("date").Gte(dateFrom)).
		Where(goqu.C("date").Lte(dateTo))

	result, err := query.Executor().Exec()
	if err != nil {
		return 0, fmt.Errorf("failed to archive ledger entries: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count archived entries: %w", err)
	}

	return count, nil
}

func (r *ledgerRepository) SetArchived(tx *goqu.TxDatabase, tenantID, entryID int, archived bool) error {
	query := tx.Update("department_ledger_entries").
		Set(goqu.Record{
			"is_archived": archived,
			"updated_at":  goqu.L("NOW()"),
		}).
		Where(goqu.Ex{"id": entryID, "tenant_id": tenantID})

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to set archive flag on entry %d: %w", entryID, err)
	}

	return nil
}
