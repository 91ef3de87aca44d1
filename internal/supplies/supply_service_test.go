package supplies

import (
	"fmt"
	"testing"

	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	custom_error "metalflow/pkg/errors"
	"metalflow/pkg/models"
)

type stubTxRunner struct{}

func (stubTxRunner) RunInTx(fn func(tx *goqu.TxDatabase) error) error {
	return fn(nil)
}

type fakeSupplies struct {
	nextID       int
	supplies     map[string]*models.SafeSupply
	balances     map[string]*models.CompanyMetalBalance
	transactions []models.MetalTransaction
}

func newFakeSupplies() *fakeSupplies {
	return &fakeSupplies{
		supplies: map[string]*models.SafeSupply{},
		balances: map[string]*models.CompanyMetalBalance{},
	}
}

func bucketKey(tenantID int, bucket models.SupplyBucket) string {
	if bucket.MetalID() == nil {
		return fmt.Sprintf("%d/ALLOY", tenantID)
	}
	return fmt.Sprintf("%d/FINE/%d", tenantID, *bucket.MetalID())
}

func (f *fakeSupplies) GetSupplyForUpdate(tx *goqu.TxDatabase, tenantID int, bucket models.SupplyBucket) (*models.SafeSupply, error) {
	key := bucketKey(tenantID, bucket)
	if supply, ok := f.supplies[key]; ok {
		copied := *supply
		return &copied, nil
	}
	f.nextID++
	supply := &models.SafeSupply{
		ID:         f.nextID,
		TenantID:   tenantID,
		MetalID:    bucket.MetalID(),
		SupplyType: bucket.SupplyType(),
	}
	f.supplies[key] = supply
	copied := *supply
	return &copied, nil
}

func (f *fakeSupplies) SetSupplyQuantity(tx *goqu.TxDatabase, supplyID int, grams float64) error {
	for _, supply := range f.supplies {
		if supply.ID == supplyID {
			supply.QuantityGrams = grams
			return nil
		}
	}
	return fmt.Errorf("unknown supply %d", supplyID)
}

func (f *fakeSupplies) ListSupplies(tenantID int) ([]models.SafeSupplyView, error) {
	return nil, nil
}

func companyKey(tenantID, companyID, metalID int) string {
	return fmt.Sprintf("%d/%d/%d", tenantID, companyID, metalID)
}

func (f *fakeSupplies) GetCompanyBalanceForUpdate(tx *goqu.TxDatabase, tenantID, companyID, metalID int) (*models.CompanyMetalBalance, error) {
	key := companyKey(tenantID, companyID, metalID)
	if balance, ok := f.balances[key]; ok {
		copied := *balance
		return &copied, nil
	}
	f.nextID++
	balance := &models.CompanyMetalBalance{
		ID:        f.nextID,
		TenantID:  tenantID,
		CompanyID: companyID,
		MetalID:   metalID,
	}
	f.balances[key] = balance
	copied := *balance
	return &copied, nil
}

func (f *fakeSupplies) SetCompanyBalance(tx *goqu.TxDatabase, balanceID int, grams float64) error {
	for _, balance := range f.balances {
		if balance.ID == balanceID {
			balance.BalanceGrams = grams
			return nil
		}
	}
	return fmt.Errorf("unknown balance %d", balanceID)
}

func (f *fakeSupplies) ListCompanyBalances(tenantID, companyID int) ([]models.CompanyMetalBalanceView, error) {
	return nil, nil
}

func (f *fakeSupplies) InsertTransaction(tx *goqu.TxDatabase, transaction *models.MetalTransaction) error {
	f.nextID++
	transaction.ID = f.nextID
	f.transactions = append(f.transactions, *transaction)
	return nil
}

func (f *fakeSupplies) ListTransactions(tenantID int, filter TransactionFilter) ([]models.MetalTransactionView, error) {
	return nil, nil
}

type fakeMetalStore struct {
	metals       map[int]*models.Metal
	averageCosts map[int]float64
}

func (f *fakeMetalStore) GetByID(tenantID, metalID int) (*models.Metal, error) {
	metal, ok := f.metals[metalID]
	if !ok {
		return nil, custom_error.NewNotFoundError("Metal", metalID)
	}
	return metal, nil
}

func (f *fakeMetalStore) SetAverageCost(tx *goqu.TxDatabase, tenantID, metalID int, averageCost float64) error {
	if f.averageCosts == nil {
		f.averageCosts = map[int]float64{}
	}
	f.averageCosts[metalID] = averageCost
	return nil
}

type fakeCompanies struct {
	companies map[int]*models.Company
}

func (f *fakeCompanies) GetCompany(tenantID, companyID int) (*models.Company, error) {
	company, ok := f.companies[companyID]
	if !ok {
		return nil, custom_error.NewNotFoundError("Company", companyID)
	}
	return company, nil
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

type supplyFixture struct {
	service  *SupplyService
	supplies *fakeSupplies
	metals   *fakeMetalStore
	orders   *fakeOrders
}

func floatPtr(v float64) *float64 { return &v }

func newSupplyFixture() *supplyFixture {
	metalID := 7
	supplies := newFakeSupplies()
	metals := &fakeMetalStore{metals: map[int]*models.Metal{
		7: {ID: 7, TenantID: 1, Code: "GOLD_22K", Name: "Gold 22K", FinePercentage: 0.916, IsActive: true},
	}}
	companies := &fakeCompanies{companies: map[int]*models.Company{
		5: {ID: 5, TenantID: 1, Name: "Aurum Sp. z o.o."},
	}}
	orders := &fakeOrders{orders: map[int]*models.Order{
		11: {ID: 11, TenantID: 1, OrderNumber: "ORD-11", CompanyID: 5, MetalID: &metalID, Quantity: 4, TargetWeightPerPiece: floatPtr(5)},
	}}

	return &supplyFixture{
		service:  NewService(stubTxRunner{}, supplies, metals, companies, orders, zap.NewNop()),
		supplies: supplies,
		metals:   metals,
		orders:   orders,
	}
}

func (f *supplyFixture) seedSafeFine(metalID int, grams float64) {
	supply, _ := f.supplies.GetSupplyForUpdate(nil, 1, models.FineMetalBucket(metalID))
	_ = f.supplies.SetSupplyQuantity(nil, supply.ID, grams)
}

func (f *supplyFixture) seedSafeAlloy(grams float64) {
	supply, _ := f.supplies.GetSupplyForUpdate(nil, 1, models.AlloyBucket())
	_ = f.supplies.SetSupplyQuantity(nil, supply.ID, grams)
}

func (f *supplyFixture) seedCompanyBalance(companyID, metalID int, grams float64) {
	balance, _ := f.supplies.GetCompanyBalanceForUpdate(nil, 1, companyID, metalID)
	_ = f.supplies.SetCompanyBalance(nil, balance.ID, grams)
}

func TestRecordSafePurchaseIncrementsBucketAndAveragesCost(t *testing.T) {
	f := newSupplyFixture()
	f.seedSafeFine(7, 100)
	f.metals.metals[7].AverageCostPerGram = floatPtr(200)

	supply, err := f.service.RecordSafePurchase(1, 42, RecordPurchaseRequest{
		SupplyType:    models.SupplyTypeFineMetal,
		MetalID:       intPtr(7),
		QuantityGrams: 50,
		CostPerGram:   260,
	})

	assert.NoError(t, err)
	assert.Equal(t, 150.0, supply.QuantityGrams)

	// (200*100 + 260*50) / 150 = 220
	assert.InDelta(t, 220, f.metals.averageCosts[7], 0.0001)

	assert.Len(t, f.supplies.transactions, 1)
	transaction := f.supplies.transactions[0]
	assert.Equal(t, models.TransactionSafePurchase, transaction.TransactionType)
	assert.Equal(t, 50.0, transaction.QuantityGrams)
	assert.Equal(t, 42, transaction.CreatedBy)
}

func TestRecordSafePurchaseFallsBackToCostWhenNothingOnHand(t *testing.T) {
	f := newSupplyFixture()

	_, err := f.service.RecordSafePurchase(1, 42, RecordPurchaseRequest{
		SupplyType:    models.SupplyTypeFineMetal,
		MetalID:       intPtr(7),
		QuantityGrams: 0,
		CostPerGram:   260,
	})
	assert.True(t, custom_error.IsValidation(err))

	assert.InDelta(t, 260, weightedAverageCost(nil, 0, 0, 260), 0.0001)
}

func TestRecordSafePurchaseRequiresMetalForFineMetal(t *testing.T) {
	f := newSupplyFixture()

	_, err := f.service.RecordSafePurchase(1, 42, RecordPurchaseRequest{
		SupplyType:    models.SupplyTypeFineMetal,
		QuantityGrams: 50,
		CostPerGram:   260,
	})
	assert.True(t, custom_error.IsValidation(err))
}

func TestRecordSafePurchaseAlloyNeedsNoMetal(t *testing.T) {
	f := newSupplyFixture()

	supply, err := f.service.RecordSafePurchase(1, 42, RecordPurchaseRequest{
		SupplyType:    models.SupplyTypeAlloy,
		QuantityGrams: 30,
		CostPerGram:   2,
	})

	assert.NoError(t, err)
	assert.Nil(t, supply.MetalID)
	assert.Equal(t, models.SupplyTypeAlloy, supply.SupplyType)
	assert.Equal(t, 30.0, supply.QuantityGrams)
	assert.Empty(t, f.metals.averageCosts)
}

func TestRecordCompanyDepositGrowsTrustAndReserve(t *testing.T) {
	f := newSupplyFixture()

	balance, err := f.service.RecordCompanyDeposit(1, 42, RecordDepositRequest{
		CompanyID:     5,
		MetalID:       7,
		QuantityGrams: 25,
	})

	assert.NoError(t, err)
	assert.Equal(t, 25.0, balance.BalanceGrams)

	fine := f.supplies.supplies[bucketKey(1, models.FineMetalBucket(7))]
	assert.Equal(t, 25.0, fine.QuantityGrams)

	assert.Len(t, f.supplies.transactions, 1)
	assert.Equal(t, models.TransactionCompanyDeposit, f.supplies.transactions[0].TransactionType)
}

func TestProcessCastingConsumptionSplitsWeight(t *testing.T) {
	f := newSupplyFixture()
	f.seedCompanyBalance(5, 7, 100)
	f.seedSafeFine(7, 200)
	f.seedSafeAlloy(50)

	result, err := f.service.ProcessCastingConsumption(1, 42, 11)

	assert.NoError(t, err)
	// 4 pieces × 5g = 20g total
	assert.InDelta(t, 20*0.916, result.FineMetalGrams, 0.0001)
	assert.InDelta(t, 20-20*0.916, result.AlloyGrams, 0.0001)
	assert.InDelta(t, 20, result.FineMetalGrams+result.AlloyGrams, 0.0001)

	// Trust balance covers the whole fine fraction, the safe fine bucket
	// is untouched; alloy always comes from the safe.
	assert.InDelta(t, 100-result.FineMetalGrams, result.CompanyBalanceAfter, 0.0001)
	assert.InDelta(t, 200, result.SafeFineMetalAfter, 0.0001)
	assert.InDelta(t, 50-result.AlloyGrams, result.SafeAlloyAfter, 0.0001)

	assert.Len(t, f.supplies.transactions, 2)
	for _, transaction := range f.supplies.transactions {
		assert.Equal(t, models.TransactionManufacturingConsumption, transaction.TransactionType)
		assert.Negative(t, transaction.QuantityGrams)
		assert.Equal(t, 11, *transaction.OrderID)
	}
}

func TestProcessCastingConsumptionZeroCrossingDeductsOvershoot(t *testing.T) {
	f := newSupplyFixture()
	f.orders.orders[11].Quantity = 12
	f.orders.orders[11].TargetWeightPerPiece = floatPtr(1 / 0.916)
	// fine = 12 × (1/0.916) × 0.916 = 12g
	f.seedCompanyBalance(5, 7, 0)
	f.seedSafeFine(7, 100)

	result, err := f.service.ProcessCastingConsumption(1, 42, 11)

	assert.NoError(t, err)
	assert.InDelta(t, 12, result.FineMetalGrams, 0.0001)
	assert.InDelta(t, -12, result.CompanyBalanceAfter, 0.0001)
	assert.InDelta(t, 88, result.SafeFineMetalAfter, 0.0001)
}

func TestProcessCastingConsumptionAlreadyNegativeDeductsFullAmount(t *testing.T) {
	f := newSupplyFixture()
	f.orders.orders[11].Quantity = 12
	f.orders.orders[11].TargetWeightPerPiece = floatPtr(1 / 0.916)
	f.seedCompanyBalance(5, 7, -5)
	f.seedSafeFine(7, 100)

	result, err := f.service.ProcessCastingConsumption(1, 42, 11)

	assert.NoError(t, err)
	assert.InDelta(t, -17, result.CompanyBalanceAfter, 0.0001)
	assert.InDelta(t, 88, result.SafeFineMetalAfter, 0.0001)
}

func TestProcessCastingConsumptionPartialOvershoot(t *testing.T) {
	f := newSupplyFixture()
	f.orders.orders[11].Quantity = 12
	f.orders.orders[11].TargetWeightPerPiece = floatPtr(1 / 0.916)
	f.seedCompanyBalance(5, 7, 8)
	f.seedSafeFine(7, 100)

	result, err := f.service.ProcessCastingConsumption(1, 42, 11)

	assert.NoError(t, err)
	assert.InDelta(t, -4, result.CompanyBalanceAfter, 0.0001)
	// Only the 4g overshoot comes from the safe.
	assert.InDelta(t, 96, result.SafeFineMetalAfter, 0.0001)
}

func TestProcessCastingConsumptionSkipsWithoutTarget(t *testing.T) {
	f := newSupplyFixture()
	f.orders.orders[11].TargetWeightPerPiece = nil

	result, err := f.service.ProcessCastingConsumption(1, 42, 11)

	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.Empty(t, f.supplies.transactions)
}

func TestProcessCastingConsumptionSkipsZeroQuantity(t *testing.T) {
	f := newSupplyFixture()
	f.orders.orders[11].Quantity = 0

	result, err := f.service.ProcessCastingConsumption(1, 42, 11)

	assert.NoError(t, err)
	assert.Nil(t, result)
}

func TestProcessCastingConsumptionRejectsOrderWithoutMetal(t *testing.T) {
	f := newSupplyFixture()
	f.orders.orders[11].MetalID = nil

	_, err := f.service.ProcessCastingConsumption(1, 42, 11)

	assert.True(t, custom_error.IsValidation(err))
	assert.Contains(t, err.Error(), "ORD-11")
}

func TestProcessCastingConsumptionRejectsInactiveMetal(t *testing.T) {
	f := newSupplyFixture()
	f.metals.metals[7].IsActive = false

	_, err := f.service.ProcessCastingConsumption(1, 42, 11)

	assert.True(t, custom_error.IsValidation(err))
}

func intPtr(v int) *int { return &v }
