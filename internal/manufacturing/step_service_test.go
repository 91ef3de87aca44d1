package manufacturing

import (
	"fmt"
	"testing"

	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/assert"

	custom_error "metalflow/pkg/errors"
	"metalflow/pkg/models"
)

type stubTxRunner struct{}

func (stubTxRunner) RunInTx(fn func(tx *goqu.TxDatabase) error) error {
	return fn(nil)
}

type fakeSteps struct {
	nextID int
	steps  map[int]models.ManufacturingStep
}

func newFakeSteps() *fakeSteps {
	return &fakeSteps{steps: map[int]models.ManufacturingStep{}}
}

func (f *fakeSteps) GetStep(tenantID, stepID int) (*models.ManufacturingStep, error) {
	step, ok := f.steps[stepID]
	if !ok || step.TenantID != tenantID {
		return nil, custom_error.NewNotFoundError("Manufacturing step", stepID)
	}
	return &step, nil
}

func (f *fakeSteps) GetStepForUpdate(tx *goqu.TxDatabase, tenantID, stepID int) (*models.ManufacturingStep, error) {
	return f.GetStep(tenantID, stepID)
}

func (f *fakeSteps) ListSteps(tenantID int, orderID *int, limit, offset int) ([]models.ManufacturingStep, error) {
	var steps []models.ManufacturingStep
	for _, step := range f.steps {
		if step.TenantID != tenantID {
			continue
		}
		if orderID != nil && step.OrderID != *orderID {
			continue
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func (f *fakeSteps) ListChildren(stepID int) ([]models.ManufacturingStep, error) {
	var children []models.ManufacturingStep
	for _, step := range f.steps {
		if step.ParentStepID != nil && *step.ParentStepID == stepID {
			children = append(children, step)
		}
	}
	return children, nil
}

func (f *fakeSteps) ListChildrenTx(tx *goqu.TxDatabase, stepID int) ([]models.ManufacturingStep, error) {
	return f.ListChildren(stepID)
}

func (f *fakeSteps) InsertStep(tx *goqu.TxDatabase, step *models.ManufacturingStep) error {
	f.nextID++
	step.ID = f.nextID
	f.steps[step.ID] = *step
	return nil
}

func (f *fakeSteps) UpdateStep(tx *goqu.TxDatabase, step *models.ManufacturingStep) error {
	f.steps[step.ID] = *step
	return nil
}

type fakeStocks struct {
	balances map[string]float64
}

func newFakeStocks() *fakeStocks {
	return &fakeStocks{balances: map[string]float64{}}
}

func stockKey(departmentID int, metalCode string) string {
	return fmt.Sprintf("%d/%s", departmentID, metalCode)
}

func (f *fakeStocks) AddWeight(tx *goqu.TxDatabase, tenantID int, department *models.Department, metalCode string, grams float64) error {
	f.balances[stockKey(department.ID, metalCode)] += grams
	return nil
}

func (f *fakeStocks) SubtractWeight(tx *goqu.TxDatabase, tenantID int, department *models.Department, metalCode string, grams float64) error {
	key := stockKey(department.ID, metalCode)
	if f.balances[key] < grams {
		return custom_error.NewValidationError(
			"Insufficient balance in %s. Available: %gg, Required: %gg",
			department.Name, f.balances[key], grams,
		)
	}
	f.balances[key] -= grams
	return nil
}

func (f *fakeStocks) ListStocks(tenantID int, departmentID *int) ([]models.DepartmentMetalStock, error) {
	return nil, nil
}

type fakeDepartments struct {
	departments map[string]*models.Department
}

func (f *fakeDepartments) GetDepartmentByName(tenantID int, name string) (*models.Department, error) {
	department, ok := f.departments[name]
	if !ok {
		return nil, custom_error.NewNotFoundError("Department", name)
	}
	return department, nil
}

type fakeOrders struct {
	orders map[int]*models.Order
}

func (f *fakeOrders) GetOrder(tenantID, orderID int) (*models.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, custom_error.NewNotFoundError("Order", orderID)
	}
	return order, nil
}

type fakeMetals struct {
	metals map[int]*models.Metal
}

func (f *fakeMetals) GetByID(tenantID, metalID int) (*models.Metal, error) {
	metal, ok := f.metals[metalID]
	if !ok {
		return nil, custom_error.NewNotFoundError("Metal", metalID)
	}
	return metal, nil
}

type stepFixture struct {
	service     *StepService
	steps       *fakeSteps
	stocks      *fakeStocks
	departments *fakeDepartments
}

func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }

func newStepFixture() *stepFixture {
	metalID := 7
	steps := newFakeSteps()
	stocks := newFakeStocks()
	departments := &fakeDepartments{departments: map[string]*models.Department{
		"Inventory": {ID: 1, TenantID: 1, Name: "Inventory"},
		"Casting":   {ID: 2, TenantID: 1, Name: "Casting"},
		"Polishing": {ID: 3, TenantID: 1, Name: "Polishing"},
	}}
	orders := &fakeOrders{orders: map[int]*models.Order{
		11: {ID: 11, TenantID: 1, OrderNumber: "ORD-11", CompanyID: 5, MetalID: &metalID, Quantity: 10, TargetWeightPerPiece: floatPtr(5)},
	}}
	metals := &fakeMetals{metals: map[int]*models.Metal{
		7: {ID: 7, TenantID: 1, Code: "GOLD_22K", Name: "Gold 22K", FinePercentage: 0.916, IsActive: true},
	}}

	return &stepFixture{
		service:     NewService(stubTxRunner{}, steps, stocks, departments, orders, metals),
		steps:       steps,
		stocks:      stocks,
		departments: departments,
	}
}

func (f *stepFixture) seedParent(qtyReturned, weightReturned float64) *models.ManufacturingStep {
	parent := models.ManufacturingStep{
		TenantID:         1,
		OrderID:          11,
		Status:           models.StepStatusInProgress,
		Department:       strPtr("Casting"),
		WorkerName:       strPtr("Anna"),
		QuantityReceived: floatPtr(qtyReturned),
		QuantityReturned: floatPtr(qtyReturned),
		WeightReceived:   floatPtr(weightReturned),
		WeightReturned:   floatPtr(weightReturned),
	}
	_ = f.steps.InsertStep(nil, &parent)
	return &parent
}

func TestComputeRemainingFallsBackFromReturnedToReceived(t *testing.T) {
	parent := &models.ManufacturingStep{ID: 1, QuantityReceived: floatPtr(10), WeightReceived: floatPtr(50)}

	remaining := computeRemaining(parent, nil)
	assert.Equal(t, 10.0, remaining.TotalQuantity)
	assert.Equal(t, 50.0, remaining.TotalWeight)

	parent.QuantityReturned = floatPtr(8)
	parent.WeightReturned = floatPtr(42)
	remaining = computeRemaining(parent, nil)
	assert.Equal(t, 8.0, remaining.TotalQuantity)
	assert.Equal(t, 42.0, remaining.TotalWeight)
}

func TestComputeRemainingSubtractsChildren(t *testing.T) {
	parent := &models.ManufacturingStep{ID: 1, QuantityReturned: floatPtr(10), WeightReturned: floatPtr(50)}
	children := []models.ManufacturingStep{
		{QuantityReceived: floatPtr(3), WeightReceived: floatPtr(15)},
		{QuantityReceived: floatPtr(2), WeightReceived: floatPtr(10)},
	}

	remaining := computeRemaining(parent, children)
	assert.Equal(t, 5.0, remaining.RemainingQuantity)
	assert.Equal(t, 25.0, remaining.RemainingWeight)
	assert.Equal(t, 2, remaining.ChildrenCount)
}

func TestTransferCreatesChildAndMovesStock(t *testing.T) {
	f := newStepFixture()
	parent := f.seedParent(10, 50)
	f.stocks.balances[stockKey(2, "GOLD_22K")] = 50

	result, err := f.service.Transfer(1, parent.ID, TransferStepRequest{
		Quantity:   4,
		Weight:     20,
		Department: "Polishing",
		ReceivedBy: "Bartek",
	})

	assert.NoError(t, err)
	assert.Equal(t, models.StepStatusInProgress, result.ParentStepStatus)
	assert.Equal(t, 6.0, result.RemainingQuantity)
	assert.Equal(t, 30.0, result.RemainingWeight)

	child := f.steps.steps[result.ChildStepID]
	assert.Equal(t, models.StepStatusInProgress, child.Status)
	assert.Equal(t, parent.ID, *child.ParentStepID)
	assert.Equal(t, 4.0, *child.QuantityReceived)
	assert.Equal(t, 20.0, *child.WeightReceived)
	assert.Equal(t, "Bartek", *child.ReceivedBy)
	assert.Equal(t, "Anna", *child.TransferredBy)
	assert.NotNil(t, child.ReceivedAt)

	assert.Equal(t, 30.0, f.stocks.balances[stockKey(2, "GOLD_22K")])
	assert.Equal(t, 20.0, f.stocks.balances[stockKey(3, "GOLD_22K")])

	updated := f.steps.steps[parent.ID]
	assert.Equal(t, "Anna", *updated.TransferredBy)
}

func TestTransferFullAmountAutoCompletesParent(t *testing.T) {
	f := newStepFixture()
	parent := f.seedParent(10, 50)
	f.stocks.balances[stockKey(2, "GOLD_22K")] = 50

	result, err := f.service.Transfer(1, parent.ID, TransferStepRequest{
		Quantity:   10,
		Weight:     50,
		Department: "Polishing",
		ReceivedBy: "Bartek",
	})

	assert.NoError(t, err)
	assert.Equal(t, models.StepStatusCompleted, result.ParentStepStatus)
	assert.Equal(t, 0.0, result.RemainingQuantity)
	assert.Equal(t, 0.0, result.RemainingWeight)

	updated := f.steps.steps[parent.ID]
	assert.Equal(t, models.StepStatusCompleted, updated.Status)
	assert.NotNil(t, updated.CompletedAt)
}

func TestTransferCompletesWhenOnlyQuantityDepletes(t *testing.T) {
	f := newStepFixture()
	parent := f.seedParent(10, 50)
	f.stocks.balances[stockKey(2, "GOLD_22K")] = 50

	// Weight still remains but quantity hits zero: the parent completes.
	result, err := f.service.Transfer(1, parent.ID, TransferStepRequest{
		Quantity:   10,
		Weight:     30,
		Department: "Polishing",
		ReceivedBy: "Bartek",
	})

	assert.NoError(t, err)
	assert.Equal(t, models.StepStatusCompleted, result.ParentStepStatus)
	assert.Equal(t, 20.0, result.RemainingWeight)
}

func TestTransferCompletesWhenOnlyWeightDepletes(t *testing.T) {
	f := newStepFixture()
	parent := f.seedParent(10, 50)
	f.stocks.balances[stockKey(2, "GOLD_22K")] = 50

	// Quantity still remains but weight hits zero: the parent completes.
	result, err := f.service.Transfer(1, parent.ID, TransferStepRequest{
		Quantity:   6,
		Weight:     50,
		Department: "Polishing",
		ReceivedBy: "Bartek",
	})

	assert.NoError(t, err)
	assert.Equal(t, models.StepStatusCompleted, result.ParentStepStatus)
	assert.Equal(t, 4.0, result.RemainingQuantity)
	assert.Equal(t, 0.0, result.RemainingWeight)
}

func TestTransferWithinToleranceCompletesParent(t *testing.T) {
	f := newStepFixture()
	parent := f.seedParent(10, 50)
	f.stocks.balances[stockKey(2, "GOLD_22K")] = 50

	result, err := f.service.Transfer(1, parent.ID, TransferStepRequest{
		Quantity:   9.995,
		Weight:     49.995,
		Department: "Polishing",
		ReceivedBy: "Bartek",
	})

	assert.NoError(t, err)
	assert.Equal(t, models.StepStatusCompleted, result.ParentStepStatus)
}

func TestTransferOverRemainingFailsWithoutSideEffects(t *testing.T) {
	f := newStepFixture()
	parent := f.seedParent(10, 50)
	f.stocks.balances[stockKey(2, "GOLD_22K")] = 50

	_, err := f.service.Transfer(1, parent.ID, TransferStepRequest{
		Quantity:   12,
		Weight:     20,
		Department: "Polishing",
		ReceivedBy: "Bartek",
	})

	assert.True(t, custom_error.IsValidation(err))
	assert.Contains(t, err.Error(), "Only 10 remaining")

	assert.Len(t, f.steps.steps, 1)
	assert.Equal(t, 50.0, f.stocks.balances[stockKey(2, "GOLD_22K")])
	assert.Equal(t, 0.0, f.stocks.balances[stockKey(3, "GOLD_22K")])
}

func TestTransferRejectsNonPositiveAmounts(t *testing.T) {
	f := newStepFixture()
	parent := f.seedParent(10, 50)

	_, err := f.service.Transfer(1, parent.ID, TransferStepRequest{
		Quantity: 0, Weight: 20, Department: "Polishing", ReceivedBy: "Bartek",
	})
	assert.True(t, custom_error.IsValidation(err))

	_, err = f.service.Transfer(1, parent.ID, TransferStepRequest{
		Quantity: 1, Weight: -5, Department: "Polishing", ReceivedBy: "Bartek",
	})
	assert.True(t, custom_error.IsValidation(err))
}

func TestTransferUnknownParentIsNotFound(t *testing.T) {
	f := newStepFixture()

	_, err := f.service.Transfer(1, 999, TransferStepRequest{
		Quantity: 1, Weight: 1, Department: "Polishing", ReceivedBy: "Bartek",
	})
	assert.True(t, custom_error.IsNotFound(err))
}

func TestCreateStepAllocatesFromInventory(t *testing.T) {
	f := newStepFixture()
	f.stocks.balances[stockKey(1, "GOLD_22K")] = 100

	step, err := f.service.CreateStep(1, CreateStepRequest{
		OrderID:          11,
		Department:       strPtr("Casting"),
		WorkerName:       strPtr("Anna"),
		QuantityReceived: floatPtr(10),
		WeightReceived:   floatPtr(50),
	})

	assert.NoError(t, err)
	assert.Equal(t, models.StepStatusInProgress, step.Status)
	assert.Equal(t, 50.0, f.stocks.balances[stockKey(1, "GOLD_22K")])
	assert.Equal(t, 50.0, f.stocks.balances[stockKey(2, "GOLD_22K")])
}

func TestCreateStepWithoutInventoryDepartmentStillCreditsOwnBucket(t *testing.T) {
	f := newStepFixture()
	delete(f.departments.departments, "Inventory")

	step, err := f.service.CreateStep(1, CreateStepRequest{
		OrderID:        11,
		Department:     strPtr("Casting"),
		WeightReceived: floatPtr(50),
	})

	assert.NoError(t, err)
	assert.NotZero(t, step.ID)
	assert.Equal(t, 50.0, f.stocks.balances[stockKey(2, "GOLD_22K")])
}

func TestCreateChildStepNeverMovesStock(t *testing.T) {
	f := newStepFixture()
	parent := f.seedParent(10, 50)
	f.stocks.balances[stockKey(1, "GOLD_22K")] = 100

	step, err := f.service.CreateStep(1, CreateStepRequest{
		OrderID:        11,
		ParentStepID:   &parent.ID,
		Department:     strPtr("Polishing"),
		WeightReceived: floatPtr(20),
	})

	assert.NoError(t, err)
	assert.Equal(t, parent.ID, *step.ParentStepID)
	assert.Equal(t, 100.0, f.stocks.balances[stockKey(1, "GOLD_22K")])
	assert.Equal(t, 0.0, f.stocks.balances[stockKey(3, "GOLD_22K")])
}

func TestUpdateStepBackfillsStatusTimestamps(t *testing.T) {
	f := newStepFixture()
	parent := f.seedParent(10, 50)

	completed := models.StepStatusCompleted
	updated, err := f.service.UpdateStep(1, parent.ID, UpdateStepRequest{Status: &completed})

	assert.NoError(t, err)
	assert.Equal(t, models.StepStatusCompleted, updated.Status)
	assert.NotNil(t, updated.CompletedAt)
}

func TestRemainingAfterSeveralTransfers(t *testing.T) {
	f := newStepFixture()
	parent := f.seedParent(10, 50)
	f.stocks.balances[stockKey(2, "GOLD_22K")] = 50

	for i := 0; i < 3; i++ {
		_, err := f.service.Transfer(1, parent.ID, TransferStepRequest{
			Quantity: 2, Weight: 10, Department: "Polishing", ReceivedBy: "Bartek",
		})
		assert.NoError(t, err)
	}

	remaining, err := f.service.Remaining(1, parent.ID)
	assert.NoError(t, err)
	assert.Equal(t, 4.0, remaining.RemainingQuantity)
	assert.Equal(t, 20.0, remaining.RemainingWeight)
	assert.Equal(t, 3, remaining.ChildrenCount)
}
