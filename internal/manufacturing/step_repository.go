package manufacturing

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"metalflow/internal/repository"
	custom_error "metalflow/pkg/errors"
	"metalflow/pkg/models"
)

type StepRepository interface {
	GetStep(tenantID, stepID int) (*models.ManufacturingStep, error)
	GetStepForUpdate(tx *goqu.TxDatabase, tenantID, stepID int) (*models.ManufacturingStep, error)
	ListSteps(tenantID int, orderID *int, limit, offset int) ([]models.ManufacturingStep, error)
	ListChildren(stepID int) ([]models.ManufacturingStep, error)
	ListChildrenTx(tx *goqu.TxDatabase, stepID int) ([]models.ManufacturingStep, error)
	InsertStep(tx *goqu.TxDatabase, step *models.ManufacturingStep) error
	UpdateStep(tx *goqu.TxDatabase, step *models.ManufacturingStep) error
}

type stepRepository struct {
	repo *repository.Repository
}

func NewStepRepository(r *repository.Repository) *stepRepository {
	return &stepRepository{repo: r}
}

var stepColumns = []any{
	"id", "tenant_id", "order_id", "parent_step_id", "step_type", "description",
	"status", "department", "worker_name", "started_at", "completed_at",
	"received_at", "transferred_by", "received_by", "quantity_received",
	"quantity_returned", "weight_received", "weight_returned", "notes",
	"created_at", "updated_at",
}

func (r *stepRepository) GetStep(tenantID, stepID int) (*models.ManufacturingStep, error) {
	var step models.ManufacturingStep
	query := r.repo.GoquDBWrapper.
		Select(stepColumns...).
		From("manufacturing_steps").
		Where(goqu.Ex{"id": stepID, "tenant_id": tenantID})

	found, err := query.Executor().ScanStruct(&step)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch manufacturing step %d: %w", stepID, err)
	}
	if !found {
		return nil, custom_error.NewNotFoundError("ManufacturingStep", stepID)
	}

	return &step, nil
}

// GetStepForUpdate locks the step row for the duration of the transaction.
// Concurrent transfers off the same parent serialize here instead of both
// reading the same remaining amounts.
func (r *stepRepository) GetStepForUpdate(tx *goqu.TxDatabase, tenantID, stepID int) (*models.ManufacturingStep, error) {
	var step models.ManufacturingStep
	query := tx.
		Select(stepColumns...).
		From("manufacturing_steps").
		Where(goqu.Ex{"id": stepID, "tenant_id": tenantID}).
		ForUpdate(exp.Wait)

	found, err := query.Executor().ScanStruct(&step)
	if err != nil {
		return nil, fmt.Errorf("failed to lock manufacturing step %d: %w", stepID, err)
	}
	if !found {
		return nil, custom_error.NewNotFoundError("ManufacturingStep", stepID)
	}

	return &step, nil
}

func (r *stepRepository) ListSteps(tenantID int, orderID *int, limit, offset int) ([]models.ManufacturingStep, error) {
	query := r.repo.GoquDBWrapper.
		Select(stepColumns...).
		From("manufacturing_steps").
		Where(goqu.Ex{"tenant_id": tenantID})

	if orderID != nil {
		query = query.Where(goqu.Ex{"order_id": *orderID})
	}

	query = query.Order(goqu.I("created_at").Desc()).
		Limit(uint(limit)).
		Offset(uint(offset))

	var steps []models.ManufacturingStep
	if err := query.Executor().ScanStructs(&steps); err != nil {
		return nil, fmt.Errorf("failed to list manufacturing steps: %w", err)
	}

	return steps, nil
}

func (r *stepRepository) ListChildren(stepID int) ([]models.ManufacturingStep, error) {
	query := r.repo.GoquDBWrapper.
		Select(stepColumns...).
		From("manufacturing_steps").
		Where(goqu.Ex{"parent_step_id": stepID})

	var children []models.ManufacturingStep
	if err := query.Executor().ScanStructs(&children); err != nil {
		return nil, fmt.Errorf("failed to list children of step %d: %w", stepID, err)
	}

	return children, nil
}

func (r *stepRepository) ListChildrenTx(tx *goqu.TxDatabase, stepID int) ([]models.ManufacturingStep, error) {
	query := tx.
		Select(stepColumns...).
		From("manufacturing_steps").
		Where(goqu.Ex{"parent_step_id": stepID})

	var children []models.ManufacturingStep
	if err := query.Executor().ScanStructs(&children); err != nil {
		return nil, fmt.Errorf("failed to list children of step %d: %w", stepID, err)
	}

	return children, nil
}

func (r *stepRepository) InsertStep(tx *goqu.TxDatabase, step *models.ManufacturingStep) error {
	query := tx.Insert("manufacturing_steps").
		Rows(goqu.Record{
			"tenant_id":         step.TenantID,
			"order_id":          step.OrderID,
			"parent_step_id":    step.ParentStepID,
			"step_type":         step.StepType,
			"description":       step.Description,
			"status":            step.Status,
			"department":        step.Department,
			"worker_name":       step.WorkerName,
			"started_at":        step.StartedAt,
			"completed_at":      step.CompletedAt,
			"received_at":       step.ReceivedAt,
			"transferred_by":    step.TransferredBy,
			"received_by":       step.ReceivedBy,
			"quantity_received": step.QuantityReceived,
			"quantity_returned": step.QuantityReturned,
			"weight_received":   step.WeightReceived,
			"weight_returned":   step.WeightReturned,
			"notes":             step.Notes,
		}).
		Returning("id")

	if _, err := query.Executor().ScanVal(&step.ID); err != nil {
		return fmt.Errorf("failed to insert manufacturing step: %w", err)
	}

	return nil
}

func (r *stepRepository) UpdateStep(tx *goqu.TxDatabase, step *models.ManufacturingStep) error {
	query := tx.Update("manufacturing_steps").
		Set(goqu.Record{
			"step_type":         step.StepType,
			"description":       step.Description,
			"status":            step.Status,
			"department":        step.Department,
			"worker_name":       step.WorkerName,
			"started_at":        step.StartedAt,
			"completed_at":      step.CompletedAt,
			"received_at":       step.ReceivedAt,
			"transferred_by":    step.TransferredBy,
			"received_by":       step.ReceivedBy,
			"quantity_received": step.QuantityReceived,
			"quantity_returned": step.QuantityReturned,
			"weight_received":   step.WeightReceived,
			"weight_returned":   step.WeightReturned,
			"notes":             step.Notes,
			"updated_at":        goqu.L("NOW()"),
		}).
		Where(goqu.Ex{"id": step.ID, "tenant_id": step.TenantID})

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to update manufacturing step %d: %w", step.ID, err)
	}

	return nil
}
