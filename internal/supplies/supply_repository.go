package supplies

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"

	"metalflow/internal/repository"
	"metalflow/pkg/models"
)

type TransactionFilter struct {
	TransactionType *string
	CompanyID       *int
	OrderID         *int
	Limit           int
	Offset          int
}

type SupplyRepository interface {
	GetSupplyForUpdate(tx *goqu.TxDatabase, tenantID int, bucket models.SupplyBucket) (*models.SafeSupply, error)
	SetSupplyQuantity(tx *goqu.TxDatabase, supplyID int, grams float64) error
	ListSupplies(tenantID int) ([]models.SafeSupplyView, error)
	GetCompanyBalanceForUpdate(tx *goqu.TxDatabase, tenantID, companyID, metalID int) (*models.CompanyMetalBalance, error)
	SetCompanyBalance(tx *goqu.TxDatabase, balanceID int, grams float64) error
	ListCompanyBalances(tenantID, companyID int) ([]models.CompanyMetalBalanceView, error)
	InsertTransaction(tx *goqu.TxDatabase, transaction *models.MetalTransaction) error
	ListTransactions(tenantID int, filter TransactionFilter) ([]models.MetalTransactionView, error)
}

type supplyRepository struct {
	repo *repository.Repository
}

func NewRepository(r *repository.Repository) *supplyRepository {
	return &supplyRepository{repo: r}
}

var supplyColumns = []any{
	"id", "tenant_id", "metal_id", "supply_type", "quantity_grams",
	"created_at", "updated_at",
}

// supplyBucketWhere builds the bucket's row match. The alloy bucket carries
// a typed nil *int, which goqu.Ex would render as "= NULL" (never true), so
// the NULL comparison is spelled out.
func supplyBucketWhere(tenantID int, bucket models.SupplyBucket) []exp.Expression {
	where := []exp.Expression{
		goqu.C("tenant_id").Eq(tenantID),
		goqu.C("supply_type").Eq(bucket.SupplyType()),
	}
	if metalID := bucket.MetalID(); metalID != nil {
		where = append(where, goqu.C("metal_id").Eq(*metalID))
	} else {
		where = append(where, goqu.C("metal_id").IsNull())
	}
	return where
}

// GetSupplyForUpdate locks the safe supply row for the bucket, creating it
// at zero when absent. Alloy buckets match on a NULL metal_id.
func (r *supplyRepository) GetSupplyForUpdate(tx *goqu.TxDatabase, tenantID int, bucket models.SupplyBucket) (*models.SafeSupply, error) {
	var supply models.SafeSupply
	query := tx.
		Select(supplyColumns...).
		From("safe_supplies").
		Where(supplyBucketWhere(tenantID, bucket)...).
		ForUpdate(exp.Wait)

	found, err := query.Executor().ScanStruct(&supply)
	if err != nil {
		return nil, fmt.Errorf("failed to lock safe supply: %w", err)
	}
	if found {
		return &supply, nil
	}

	supply = models.SafeSupply{
		TenantID:   tenantID,
		MetalID:    bucket.MetalID(),
		SupplyType: bucket.SupplyType(),
	}
	insert := tx.Insert("safe_supplies").
		Rows(goqu.Record{
			"tenant_id":      tenantID,
			"metal_id":       bucket.MetalID(),
			"supply_type":    bucket.SupplyType(),
			"quantity_grams": 0,
		}).
		Returning("id")
	if _, err := insert.Executor().ScanVal(&supply.ID); err != nil {
		return nil, fmt.Errorf("failed to create safe supply bucket: %w", err)
	}

	return &supply, nil
}

func (r *supplyRepository) SetSupplyQuantity(tx *goqu.TxDatabase, supplyID int, grams float64) error {
	query := tx.Update("safe_supplies").
		Set(goqu.Record{
			"quantity_grams": grams,
			"updated_at":     goqu.L("NOW()"),
		}).
		Where(goqu.Ex{"id": supplyID})

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to update safe supply %d: %w", supplyID, err)
	}

	return nil
}

func (r *supplyRepository) ListSupplies(tenantID int) ([]models.SafeSupplyView, error) {
	query := r.repo.GoquDBWrapper.
		Select(
			goqu.I("s.id"),
			goqu.I("s.metal_id"),
			goqu.I("s.supply_type"),
			goqu.I("m.code").As("metal_code"),
			goqu.I("m.name").As("metal_name"),
			goqu.I("s.quantity_grams"),
		).
		From(goqu.T("safe_supplies").As("s")).
		LeftJoin(
			goqu.T("metals").As("m"),
			goqu.On(goqu.I("s.metal_id").Eq(goqu.I("m.id"))),
		).
		Where(goqu.I("s.tenant_id").Eq(tenantID)).
		Order(goqu.I("s.supply_type").Asc(), goqu.I("m.code").Asc())

	var supplies []models.SafeSupplyView
	if err := query.Executor().ScanStructs(&supplies); err != nil {
		return nil, fmt.Errorf("failed to list safe supplies: %w", err)
	}

	return supplies, nil
}

func (r *supplyRepository) GetCompanyBalanceForUpdate(tx *goqu.TxDatabase, tenantID, companyID, metalID int) (*models.CompanyMetalBalance, error) {
	var balance models.CompanyMetalBalance
	query := tx.
		Select("id", "tenant_id", "company_id", "metal_id", "balance_grams", "created_at", "updated_at").
		From("company_metal_balances").
		Where(goqu.Ex{
			"tenant_id":  tenantID,
			"company_id": companyID,
			"metal_id":   metalID,
		}).
		ForUpdate(exp.Wait)

	found, err := query.Executor().ScanStruct(&balance)
	if err != nil {
		return nil, fmt.Errorf("failed to lock company balance: %w", err)
	}
	if found {
		return &balance, nil
	}

	balance = models.CompanyMetalBalance{
		TenantID:  tenantID,
		CompanyID: companyID,
		MetalID:   metalID,
	}
	insert := tx.Insert("company_metal_balances").
		Rows(goqu.Record{
			"tenant_id":     tenantID,
			"company_id":    companyID,
			"metal_id":      metalID,
			"balance_grams": 0,
		}).
		Returning("id")
	if _, err := insert.Executor().ScanVal(&balance.ID); err != nil {
		return nil, fmt.Errorf("failed to create company balance bucket: %w", err)
	}

	return &balance, nil
}

func (r *supplyRepository) SetCompanyBalance(tx *goqu.TxDatabase, balanceID int, grams float64) error {
	query := tx.Update("company_metal_balances").
		Set(goqu.Record{
			"balance_grams": grams,
			"updated_at":    goqu.L("NOW()"),
		}).
		Where(goqu.Ex{"id": balanceID})

	if _, err := query.Executor().Exec(); err != nil {
		return fmt.Errorf("failed to update company balance %d: %w", balanceID, err)
	}

	return nil
}

func (r *supplyRepository) ListCompanyBalances(tenantID, companyID int) ([]models.CompanyMetalBalanceView, error) {
	query := r.repo.GoquDBWrapper.
		Select(
			goqu.I("b.id"),
			goqu.I("b.metal_id"),
			goqu.I("m.code").As("metal_code"),
			goqu.I("m.name").As("metal_name"),
			goqu.I("b.balance_grams"),
		).
		From(goqu.T("company_metal_balances").As("b")).
		InnerJoin(
			goqu.T("metals").As("m"),
			goqu.On(goqu.I("b.metal_id").Eq(goqu.I("m.id"))),
		).
		Where(goqu.Ex{"b.tenant_id": tenantID, "b.company_id": companyID}).
		Order(goqu.I("m.code").Asc())

	var balances []models.CompanyMetalBalanceView
	if err := query.Executor().ScanStructs(&balances); err != nil {
		return nil, fmt.Errorf("failed to list company balances: %w", err)
	}

	return balances, nil
}

func (r *supplyRepository) InsertTransaction(tx *goqu.TxDatabase, transaction *models.MetalTransaction) error {
	insert := tx.Insert("metal_transactions").
		Rows(goqu.Record{
			"tenant_id":        transaction.TenantID,
			"transaction_type": transaction.TransactionType,
			"metal_id":         transaction.MetalID,
			"company_id":       transaction.CompanyID,
			"order_id":         transaction.OrderID,
			"quantity_grams":   transaction.QuantityGrams,
			"notes":            transaction.Notes,
			"created_by":       transaction.CreatedBy,
		}).
		Returning("id")

	if _, err := insert.Executor().ScanVal(&transaction.ID); err != nil {
		return fmt.Errorf("failed to insert metal transaction: %w", err)
	}

	return nil
}

func (r *supplyRepository) ListTransactions(tenantID int, filter TransactionFilter) ([]models.MetalTransactionView, error) {
	query := r.repo.GoquDBWrapper.
		Select(
			goqu.I("t.id"),
			goqu.I("t.transaction_type"),
			goqu.I("t.metal_id"),
			goqu.I("m.code").As("metal_code"),
			goqu.I("t.company_id"),
			goqu.I("t.order_id"),
			goqu.I("t.quantity_grams"),
			goqu.I("t.notes"),
			goqu.I("t.created_by"),
			goqu.I("t.created_at"),
		).
		From(goqu.T("metal_transactions").As("t")).
		LeftJoin(
			goqu.T("metals").As("m"),
			goqu.On(goqu.I("t.metal_id").Eq(goqu.I("m.id"))),
		).
		Where(goqu.I("t.tenant_id").Eq(tenantID)).
		Order(goqu.I("t.created_at").Desc(), goqu.I("t.id").Desc())

	if filter.TransactionType != nil {
		query = query.Where(goqu.I("t.transaction_type").Eq(*filter.TransactionType))
	}
	if filter.CompanyID != nil {
		query = query.Where(goqu.I("t.company_id").Eq(*filter.CompanyID))
	}
	if filter.OrderID != nil {
		query = query.Where(goqu.I("t.order_id").Eq(*filter.OrderID))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query = query.Limit(uint(limit)).Offset(uint(filter.Offset))

	var transactions []models.MetalTransactionView
	if err := query.Executor().ScanStructs(&transactions); err != nil {
		return nil, fmt.Errorf("failed to list metal transactions: %w", err)
	}

	return transactions, nil
}
