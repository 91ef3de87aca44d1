package ledger

import (
	"time"

	"github.com/doug-martin/goqu/v9"

	"metalflow/internal/repository"
	custom_error "metalflow/pkg/errors"
	"metalflow/pkg/models"
)

// MetalGetter resolves a metal for fine-weight computation.
type MetalGetter interface {
	GetByID(tenantID, metalID int) (*models.Metal, error)
}

type CreateEntryInput struct {
	Date         time.Time
	DepartmentID int
	OrderID      int
	MetalID      int
	Direction    string
	Quantity     float64
	Weight       float64
	Notes        *string
}

type UpdateEntryInput struct {
	Date         *time.Time
	DepartmentID *int
	OrderID      *int
	MetalID      *int
	Direction    *string
	Quantity     *float64
	Weight       *float64
	Notes        *string
}

// LedgerService records signed metal movements against department balances.
// Every mutation applies the ledger row and its balance delta in one
// transaction.
type LedgerService struct {
	tx       repository.TxRunner
	entries  LedgerRepository
	balances BalanceStore
	metals   MetalGetter
}

func NewService(tx repository.TxRunner, entries LedgerRepository, balances BalanceStore, metals MetalGetter) *LedgerService {
	return &LedgerService{
		tx:       tx,
		entries:  entries,
		balances: balances,
		metals:   metals,
	}
}

// computeFineWeight resolves the metal and derives the signed fine weight:
// weight × fine percentage, negated for OUT.
func (s *LedgerService) computeFineWeight(tenantID, metalID int, weight float64, direction string) (float64, error) {
	metal, err := s.metals.GetByID(tenantID, metalID)
	if custom_error.IsNotFound(err) {
		return 0, custom_error.NewValidationError("Metal with id '%d' not found for this tenant", metalID)
	} else if err != nil {
		return 0, err
	}

	if !metal.IsActive {
		return 0, custom_error.NewValidationError("Metal with id %d is inactive", metalID)
	}

	fineWeight := weight * metal.FinePercentage
	if direction == models.DirectionOut {
		fineWeight = -fineWeight
	}

	return fineWeight, nil
}

func (s *LedgerService) CreateEntry(tenantID, userID int, in CreateEntryInput) (*models.LedgerEntry, error) {
	if in.Quantity <= 0 {
		return nil, custom_error.NewValidationError("Quantity must be positive")
	}
	if in.Weight <= 0 {
		return nil, custom_error.NewValidationError("Weight must be positive")
	}

	fineWeight, err := s.computeFineWeight(tenantID, in.MetalID, in.Weight, in.Direction)
	if err != nil {
		return nil, err
	}

	entry := models.LedgerEntry{
		TenantID:     tenantID,
		Date:         in.Date,
		DepartmentID: in.DepartmentID,
		OrderID:      in.OrderID,
		MetalID:      in.MetalID,
		Direction:    in.Direction,
		Quantity:     in.Quantity,
		Weight:       in.Weight,
		FineWeight:   fineWeight,
		Notes:        in.Notes,
		CreatedBy:    userID,
	}

	err = s.tx.RunInTx(func(tx *goqu.TxDatabase) error {
		if err := s.entries.InsertEntry(tx, &entry); err != nil {
			return err
		}
		return s.balances.ApplyDelta(tx, tenantID, entry.DepartmentID, entry.MetalID, entry.SignedWeightDelta())
	})
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

// UpdateEntry reverses the entry's old balance delta, applies the patch,
// recomputes the fine weight and applies the new delta. When department or
// metal change, the balance migrates between buckets. The entry row stays
// locked for the whole transaction so two concurrent updates cannot both
// reverse the same delta.
func (s *LedgerService) UpdateEntry(tenantID, entryID int, patch UpdateEntryInput) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry

	err := s.tx.RunInTx(func(tx *goqu.TxDatabase) error {
		var err error
		entry, err = s.entries.GetEntryForUpdate(tx, tenantID, entryID)
		if err != nil {
			return err
		}

		oldDelta := entry.SignedWeightDelta()
		oldDepartmentID := entry.DepartmentID
		oldMetalID := entry.MetalID

		if patch.Date != nil {
			entry.Date = *patch.Date
		}
		if patch.DepartmentID != nil {
			entry.DepartmentID = *patch.DepartmentID
		}
		if patch.OrderID != nil {
			entry.OrderID = *patch.OrderID
		}
		if patch.MetalID != nil {
			entry.MetalID = *patch.MetalID
		}
		if patch.Direction != nil {
			entry.Direction = *patch.Direction
		}
		if patch.Quantity != nil {
			entry.Quantity = *patch.Quantity
		}
		if patch.Weight != nil {
			entry.Weight = *patch.Weight
		}
		if patch.Notes != nil {
			entry.Notes = patch.Notes
		}

		if entry.Quantity <= 0 {
			return custom_error.NewValidationError("Quantity must be positive")
		}
		if entry.Weight <= 0 {
			return custom_error.NewValidationError("Weight must be positive")
		}

		entry.FineWeight, err = s.computeFineWeight(tenantID, entry.MetalID, entry.Weight, entry.Direction)
		if err != nil {
			return err
		}

		if err := s.balances.ApplyDelta(tx, tenantID, oldDepartmentID, oldMetalID, -oldDelta); err != nil {
			return err
		}
		if err := s.entries.UpdateEntry(tx, entry); err != nil {
			return err
		}
		return s.balances.ApplyDelta(tx, tenantID, entry.DepartmentID, entry.MetalID, entry.SignedWeightDelta())
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

func (s *LedgerService) DeleteEntry(tenantID, entryID int) error {
	return s.tx.RunInTx(func(tx *goqu.TxDatabase) error {
		entry, err := s.entries.GetEntryForUpdate(tx, tenantID, entryID)
		if err != nil {
			return err
		}

		// Delete before reversing; a zero-row delete means a concurrent
		// transaction already removed and reversed this entry.
		if err := s.entries.DeleteEntry(tx, tenantID, entryID); err != nil {
			return err
		}
		return s.balances.ApplyDelta(tx, tenantID, entry.DepartmentID, entry.MetalID, -entry.SignedWeightDelta())
	})
}

func (s *LedgerService) ListEntries(tenantID int, filter EntryFilter) ([]models.LedgerEntryResponse, error) {
	entries, err := s.entries.ListEntries(tenantID, filter)
	if err != nil {
		return nil, err
	}

	orderIDs := make([]int, 0, len(entries))
	for _, e := range entries {
		orderIDs = append(orderIDs, e.OrderID)
	}
	orderNumbers, err := s.entries.GetOrderNumbers(tenantID, orderIDs)
	if err != nil {
		return nil, err
	}

	responses := make([]models.LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		responses = append(responses, models.NewLedgerEntryResponse(e, orderNumbers[e.OrderID]))
	}

	return responses, nil
}

func (s *LedgerService) ListBalances(tenantID int, departmentID *int) ([]models.DepartmentBalance, error) {
	return s.balances.ListBalances(tenantID, departmentID)
}

// GetSummary aggregates the ledger per metal. Metals whose signed fine
// weight sums to exactly zero are omitted; quantity totals still include
// them.
func (s *LedgerService) GetSummary(tenantID int, departmentID *int) (*models.LedgerSummary, error) {
	rows, err := s.entries.Summary(tenantID, departmentID)
	if err != nil {
		return nil, err
	}

	summary := models.LedgerSummary{Balances: []models.MetalBalanceItem{}}
	for _, row := range rows {
		summary.TotalQtyHeld += row.TotalQtyIn - row.TotalQtyOut
		summary.TotalQtyOut += row.TotalQtyOut

		if row.FineWeightBalance != 0 {
			summary.Balances = append(summary.Balances, models.MetalBalanceItem{
				MetalID:           row.MetalID,
				MetalCode:         row.MetalCode,
				MetalName:         row.MetalName,
				FineWeightBalance: row.FineWeightBalance,
			})
		}
	}

	return &summary, nil
}

// ArchiveEntries flags entries in the inclusive date range as archived.
// Archiving is a visibility flag only and never touches balances.
func (s *LedgerService) ArchiveEntries(tenantID int, dateFrom, dateTo time.Time) (int64, error) {
	var count int64
	err := s.tx.RunInTx(func(tx *goqu.TxDatabase) error {
		var err error
		count, err = s.entries.ArchiveByDateRange(tx, tenantID, dateFrom, dateTo)
		return err
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (s *LedgerService) UnarchiveEntry(tenantID, entryID int) (*models.LedgerEntry, error) {
	entry, err := s.entries.GetEntry(tenantID, entryID)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(func(tx *goqu.TxDatabase) error {
		return s.entries.SetArchived(tx, tenantID, entryID, false)
	})
	if err != nil {
		return nil, err
	}
	entry.IsArchived = false

	return entry, nil
}
