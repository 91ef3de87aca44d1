package metals

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"

	"metalflow/internal/repository"
	custom_error "metalflow/pkg/errors"
	"metalflow/pkg/models"
)

type MetalRepository interface {
	GetByID(tenantID, metalID int) (*models.Metal, error)
	GetByCode(tenantID int, code string) (*models.Metal, error)
	List(tenantID int, includeInactive bool) ([]models.Metal, error)
	CodeExists(tenantID int, code string) (bool, error)
	Insert(metal *models.Metal) error
	Update(metal *models.Metal) error
	SetActive(tenantID, metalID int, active bool) error
	SetAverageCost(tx *goqu.TxDatabase, tenantID, metalID int, averageCost float64) error
}

type metalRepository struct {
	repo *repository.Repository
}

func NewRepository(r *repository.Repository) *metalRepository {
	return &metalRepository{repo: r}
}

var metalColumns = []any{
	"id", "tenant_id", "code", "name", "fine_percentage",
	"average_cost_per_gram", "is_active", "created_at", "updated_at",
}

func (r *metalRepository) GetByID(tenantID, metalID int) (*models.Metal, error) {
	var metal models.Metal
	query := r.repo.GoquDBWrapper.
		Select(metalColumns...).
		From("metals").
		Where(goqu.Ex{"id": metalID, "tenant_id": tenantID})

	found, err := query.Executor().ScanStruct(&metal)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metal %d: %w", metalID, err)
	}
	if !found {
		return nil, custom_error.NewNotFoundError("Metal", metalID)
	}

	return &metal, nil
}

func (r *metalRepository) GetByCode(tenantID int, code string) (*models.Metal, error) {
	var metal models.Metal
	query := r.repo.GoquDBWrapper.
		Select(metalColumns...).
		From("metals").
		Where(goqu.Ex{"code": code, "tenant_id": tenantID})

	found, err := query.Executor().ScanStruct(&metal)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metal %q: %w", code, err)
	}
	if !found {
		return nil, custom_error.NewNotFoundError("Metal", code)
	}

	return &metal, nil
}

func (r *metalRepository) List(tenantID int, includeInactive bool) ([]models.Metal, error) {
	query := r.repo.GoquDBWrapper.
		Select(metalColumns...).
		From("metals").
		Where(goqu.Ex{"tenant_id": tenantID}).
		Order(goqu.I("code").Asc())

	if !includeInactive {
		query = query.Where(goqu.Ex{"is_active": true})
	}

	var metals []models.Metal
	if err := query.Executor().ScanStructs(&metals); err != nil {
		return nil, fmt.Errorf("failed to list metals: %w", err)
	}

	return metals, nil
}

func (r *metalRepository) CodeExists(tenantID int, code string) (bool, error) {
	var count int
	query := r.repo.GoquDBWrapper.
		Select(goqu.COUNT("id")).
		From("metals").
		Where(goqu.Ex{"code": code, "tenant_id": tenantID})

	if _, err := query.Executor().ScanVal(&count); err != nil {
		return false, fmt.Errorf("failed to check metal code %q: %w", code, err)
	}

	return count > 0, nil
}

func (r *metalRepository) Insert(metal *models.Metal) error {
	query := r.repo.GoquDBWrapper.Insert("metals").
		Rows(goqu.Record{
			"tenant_id":             metal.TenantID,
			"code":                  metal.Code,
			"name":                  metal.Name,
			"fine_percentage":       metal.FinePercentage,
			"average_cost_per_gram": metal.AverageCostPerGram,
			"is_active":             metal.IsActive,
		}).
		Returning("id")

	if _, err := query.Executor().ScanVal(&metal.ID); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return custom_error.WrapDBError("Duplicate metal code for tenant", string(pqErr.Code))
		}
		return fmt.Errorf("failed to insert metal record: %w", err)
	}

	return nil
}

func (r *metalRepository) Update(metal *models.Metal) error {
	query := r.repo.GoquDBWrapper.
		Update("metals").
		Set(goqu.Record{
			"name":            metal.Name,
			"fine_percentage": metal.FinePercentage,
			"updated_at":      goqu.L("NOW()"),
		}).
		Where(goqu.Ex{"id": metal.ID, "tenant_id": metal.TenantID})

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to update metal %d: %w", metal.ID, err)
	}

	return nil
}

func (r *metalRepository) SetActive(tenantID, metalID int, active bool) error {
	query := r.repo.GoquDBWrapper.
		Update("metals").
		Set(goqu.Record{
			"is_active":  active,
			"updated_at": goqu.L("NOW()"),
		}).
		Where(goqu.Ex{"id": metalID, "tenant_id": tenantID})

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to set metal %d active flag: %w", metalID, err)
	}

	return nil
}

func (r *metalRepository) SetAverageCost(tx *goqu.TxDatabase, tenantID, metalID int, averageCost float64) error {
	query := tx.
		Update("metals").
		Set(goqu.Record{
			"average_cost_per_gram": averageCost,
			"updated_at":            goqu.L("NOW()"),
		}).
		Where(goqu.Ex{"id": metalID, "tenant_id": tenantID})

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to update average cost for metal %d: %w", metalID, err)
	}

	return nil
}
