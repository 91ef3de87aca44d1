package manufacturing

import (
	"time"

	"github.com/doug-martin/goqu/v9"

	"metalflow/internal/repository"
	custom_error "metalflow/pkg/errors"
	"metalflow/pkg/models"
)

// completionTolerance absorbs floating point drift when deciding whether a
// parent step is fully transferred.
const completionTolerance = 0.01

// inventoryDepartment is the stock-holding department root steps draw from
// when it exists for the tenant.
const inventoryDepartment = "Inventory"

type DepartmentResolver interface {
	GetDepartmentByName(tenantID int, name string) (*models.Department, error)
}

type OrderGetter interface {
	GetOrder(tenantID, orderID int) (*models.Order, error)
}

type MetalGetter interface {
	GetByID(tenantID, metalID int) (*models.Metal, error)
}

// StepService models the tree of manufacturing steps. Transfers consume a
// parent's remaining stock into new child steps and auto-complete the parent
// when either tracked metric is depleted.
type StepService struct {
	tx          repository.TxRunner
	steps       StepRepository
	stocks      StockStore
	departments DepartmentResolver
	orders      OrderGetter
	metals      MetalGetter
}

func NewService(tx repository.TxRunner, steps StepRepository, stocks StockStore, departments DepartmentResolver, orders OrderGetter, metals MetalGetter) *StepService {
	return &StepService{
		tx:          tx,
		steps:       steps,
		stocks:      stocks,
		departments: departments,
		orders:      orders,
		metals:      metals,
	}
}

func valueOrFallback(primary, fallback *float64) float64 {
	if primary != nil {
		return *primary
	}
	if fallback != nil {
		return *fallback
	}
	return 0
}

// computeRemaining derives the transferable amounts of a parent step. The
// available amounts fall back from returned to received; transferred totals
// sum the direct children's received amounts.
func computeRemaining(parent *models.ManufacturingStep, children []models.ManufacturingStep) models.StepRemaining {
	remaining := models.StepRemaining{
		StepID:        parent.ID,
		TotalQuantity: valueOrFallback(parent.QuantityReturned, parent.QuantityReceived),
		TotalWeight:   valueOrFallback(parent.WeightReturned, parent.WeightReceived),
		ChildrenCount: len(children),
	}

	for _, child := range children {
		if child.QuantityReceived != nil {
			remaining.TransferredQuantity += *child.QuantityReceived
		}
		if child.WeightReceived != nil {
			remaining.TransferredWeight += *child.WeightReceived
		}
	}

	remaining.RemainingQuantity = remaining.TotalQuantity - remaining.TransferredQuantity
	remaining.RemainingWeight = remaining.TotalWeight - remaining.TransferredWeight

	return remaining
}

func (s *StepService) GetStep(tenantID, stepID int) (*models.ManufacturingStep, error) {
	return s.steps.GetStep(tenantID, stepID)
}

func (s *StepService) ListSteps(tenantID int, orderID *int, limit, offset int) ([]models.ManufacturingStep, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.steps.ListSteps(tenantID, orderID, limit, offset)
}

func (s *StepService) Remaining(tenantID, stepID int) (*models.StepRemaining, error) {
	parent, err := s.steps.GetStep(tenantID, stepID)
	if err != nil {
		return nil, err
	}

	children, err := s.steps.ListChildren(stepID)
	if err != nil {
		return nil, err
	}

	remaining := computeRemaining(parent, children)
	return &remaining, nil
}

func (s *StepService) ListStocks(tenantID int, departmentID *int) ([]models.DepartmentMetalStock, error) {
	return s.stocks.ListStocks(tenantID, departmentID)
}

// CreateStep records a root or child step. Root steps with a received weight
// credit their own department's bucket, drawing from the Inventory
// department's bucket when one exists for the tenant. Child steps never move
// stock here; transfers do that.
func (s *StepService) CreateStep(tenantID int, req CreateStepRequest) (*models.ManufacturingStep, error) {
	order, err := s.orders.GetOrder(tenantID, req.OrderID)
	if err != nil {
		return nil, err
	}

	step := models.ManufacturingStep{
		TenantID:         tenantID,
		OrderID:          req.OrderID,
		ParentStepID:     req.ParentStepID,
		StepType:         req.StepType,
		Description:      req.Description,
		Status:           models.StepStatusInProgress,
		Department:       req.Department,
		WorkerName:       req.WorkerName,
		QuantityReceived: req.QuantityReceived,
		QuantityReturned: req.QuantityReturned,
		WeightReceived:   req.WeightReceived,
		WeightReturned:   req.WeightReturned,
		Notes:            req.Notes,
	}

	err = s.tx.RunInTx(func(tx *goqu.TxDatabase) error {
		if err := s.steps.InsertStep(tx, &step); err != nil {
			return err
		}

		if step.ParentStepID != nil || step.WeightReceived == nil || *step.WeightReceived <= 0 || step.Department == nil || order.MetalID == nil {
			return nil
		}

		metal, err := s.metals.GetByID(tenantID, *order.MetalID)
		if err != nil {
			return err
		}

		department, err := s.departments.GetDepartmentByName(tenantID, *step.Department)
		if err != nil {
			return err
		}

		inventory, err := s.departments.GetDepartmentByName(tenantID, inventoryDepartment)
		switch {
		case err == nil:
			if err := s.stocks.SubtractWeight(tx, tenantID, inventory, metal.Code, *step.WeightReceived); err != nil {
				return err
			}
		case !custom_error.IsNotFound(err):
			return err
		}

		// Credited even without an Inventory department to draw from.
		return s.stocks.AddWeight(tx, tenantID, department, metal.Code, *step.WeightReceived)
	})
	if err != nil {
		return nil, err
	}

	return &step, nil
}

// UpdateStep patches step fields. Status timestamps are backfilled on first
// transition; FAILED is only ever set through this path, never by the
// transfer engine.
func (s *StepService) UpdateStep(tenantID, stepID int, req UpdateStepRequest) (*models.ManufacturingStep, error) {
	step, err := s.steps.GetStep(tenantID, stepID)
	if err != nil {
		return nil, err
	}

	if req.StepType != nil {
		step.StepType = req.StepType
	}
	if req.Description != nil {
		step.Description = req.Description
	}
	if req.Status != nil {
		step.Status = *req.Status
	}
	if req.Department != nil {
		step.Department = req.Department
	}
	if req.WorkerName != nil {
		step.WorkerName = req.WorkerName
	}
	if req.TransferredBy != nil {
		step.TransferredBy = req.TransferredBy
	}
	if req.ReceivedBy != nil {
		step.ReceivedBy = req.ReceivedBy
	}
	if req.QuantityReceived != nil {
		step.QuantityReceived = req.QuantityReceived
	}
	if req.QuantityReturned != nil {
		step.QuantityReturned = req.QuantityReturned
	}
	if req.WeightReceived != nil {
		step.WeightReceived = req.WeightReceived
	}
	if req.WeightReturned != nil {
		step.WeightReturned = req.WeightReturned
	}
	if req.Notes != nil {
		step.Notes = req.Notes
	}

	now := time.Now().UTC()
	if req.Status != nil && *req.Status == models.StepStatusInProgress && step.StartedAt == nil {
		step.StartedAt = &now
	}
	if req.Status != nil && *req.Status == models.StepStatusCompleted && step.CompletedAt == nil {
		step.CompletedAt = &now
	}
	if req.WeightReceived != nil && step.ReceivedAt == nil {
		step.ReceivedAt = &now
	}

	err = s.tx.RunInTx(func(tx *goqu.TxDatabase) error {
		return s.steps.UpdateStep(tx, step)
	})
	if err != nil {
		return nil, err
	}

	return step, nil
}

// Transfer moves part of a parent step's remaining stock into a new child
// step. The parent row stays locked for the whole transaction so two
// concurrent transfers cannot both spend the same remainder.
func (s *StepService) Transfer(tenantID, stepID int, req TransferStepRequest) (*models.TransferResult, error) {
	if req.Quantity <= 0 {
		return nil, custom_error.NewValidationError("Transfer quantity must be greater than 0")
	}
	if req.Weight <= 0 {
		return nil, custom_error.NewValidationError("Transfer weight must be greater than 0")
	}

	var result models.TransferResult

	err := s.tx.RunInTx(func(tx *goqu.TxDatabase) error {
		parent, err := s.steps.GetStepForUpdate(tx, tenantID, stepID)
		if err != nil {
			return err
		}

		children, err := s.steps.ListChildrenTx(tx, stepID)
		if err != nil {
			return err
		}

		remaining := computeRemaining(parent, children)
		if req.Quantity > remaining.RemainingQuantity {
			return custom_error.NewValidationError(
				"Cannot transfer %g pieces. Only %g remaining.",
				req.Quantity, remaining.RemainingQuantity,
			)
		}
		if req.Weight > remaining.RemainingWeight {
			return custom_error.NewValidationError(
				"Cannot transfer %gg. Only %gg remaining.",
				req.Weight, remaining.RemainingWeight,
			)
		}

		now := time.Now().UTC()
		child := models.ManufacturingStep{
			TenantID:         tenantID,
			OrderID:          parent.OrderID,
			ParentStepID:     &parent.ID,
			StepType:         req.NextStepType,
			Description:      req.NextDescription,
			Status:           models.StepStatusInProgress,
			Department:       &req.Department,
			WorkerName:       &req.ReceivedBy,
			ReceivedAt:       &now,
			ReceivedBy:       &req.ReceivedBy,
			TransferredBy:    parent.WorkerName,
			QuantityReceived: &req.Quantity,
			WeightReceived:   &req.Weight,
		}
		if err := s.steps.InsertStep(tx, &child); err != nil {
			return err
		}

		if parent.Department != nil && req.Weight > 0 {
			if err := s.moveStock(tx, tenantID, parent, req); err != nil {
				return err
			}
		}

		// First outgoing transfer records the sender on the parent.
		if parent.TransferredBy == nil {
			parent.TransferredBy = parent.WorkerName
		}

		transferredQty := remaining.TransferredQuantity + req.Quantity
		transferredWeight := remaining.TransferredWeight + req.Weight
		remainingQty := remaining.TotalQuantity - transferredQty
		remainingWeight := remaining.TotalWeight - transferredWeight

		// Either metric depleting completes the parent, even if real stock
		// of the other metric still exists.
		qtyDepleted := remaining.TotalQuantity > 0 && remainingQty <= completionTolerance
		weightDepleted := remaining.TotalWeight > 0 && remainingWeight <= completionTolerance

		if qtyDepleted || weightDepleted {
			parent.Status = models.StepStatusCompleted
			if parent.CompletedAt == nil {
				parent.CompletedAt = &now
			}
			if parent.QuantityReturned == nil {
				parent.QuantityReturned = &transferredQty
			}
			if parent.WeightReturned == nil {
				parent.WeightReturned = &transferredWeight
			}
		}

		if err := s.steps.UpdateStep(tx, parent); err != nil {
			return err
		}

		result = models.TransferResult{
			ParentStepID:      parent.ID,
			ParentStepStatus:  parent.Status,
			ChildStepID:       child.ID,
			RemainingQuantity: remainingQty,
			RemainingWeight:   remainingWeight,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// moveStock shifts the transferred weight between the legacy department
// buckets for the order's metal. Loss stays implicitly in the parent's
// bucket as the gap between received and returned weight.
func (s *StepService) moveStock(tx *goqu.TxDatabase, tenantID int, parent *models.ManufacturingStep, req TransferStepRequest) error {
	order, err := s.orders.GetOrder(tenantID, parent.OrderID)
	if err != nil {
		return err
	}
	if order.MetalID == nil {
		return nil
	}

	metal, err := s.metals.GetByID(tenantID, *order.MetalID)
	if err != nil {
		return err
	}

	fromDepartment, err := s.departments.GetDepartmentByName(tenantID, *parent.Department)
	if err != nil {
		return err
	}
	toDepartment, err := s.departments.GetDepartmentByName(tenantID, req.Department)
	if err != nil {
		return err
	}

	if err := s.stocks.SubtractWeight(tx, tenantID, fromDepartment, metal.Code, req.Weight); err != nil {
		return err
	}
	return s.stocks.AddWeight(tx, tenantID, toDepartment, metal.Code, req.Weight)
}
