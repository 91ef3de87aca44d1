package supplies

import (
	"github.com/doug-martin/goqu/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"metalflow/internal/repository"
	custom_error "metalflow/pkg/errors"
	"metalflow/pkg/models"
)

type MetalStore interface {
	GetByID(tenantID, metalID int) (*models.Metal, error)
	SetAverageCost(tx *goqu.TxDatabase, tenantID, metalID int, averageCost float64) error
}

type CompanyGetter interface {
	GetCompany(tenantID, companyID int) (*models.Company, error)
}

type OrderGetter interface {
	GetOrder(tenantID, orderID int) (*models.Order, error)
}

// SupplyService tracks the manufacturer's safe reserve and the metal held in
// trust for customers. Every balance mutation commits together with its
// audit row.
type SupplyService struct {
	tx        repository.TxRunner
	supplies  SupplyRepository
	metals    MetalStore
	companies CompanyGetter
	orders    OrderGetter
	log       *zap.Logger
}

func NewService(tx repository.TxRunner, supplies SupplyRepository, metals MetalStore, companies CompanyGetter, orders OrderGetter, log *zap.Logger) *SupplyService {
	return &SupplyService{
		tx:        tx,
		supplies:  supplies,
		metals:    metals,
		companies: companies,
		orders:    orders,
		log:       log,
	}
}

func (s *SupplyService) ListSupplies(tenantID int) ([]models.SafeSupplyView, error) {
	return s.supplies.ListSupplies(tenantID)
}

func (s *SupplyService) ListCompanyBalances(tenantID, companyID int) ([]models.CompanyMetalBalanceView, error) {
	if _, err := s.companies.GetCompany(tenantID, companyID); err != nil {
		return nil, err
	}
	return s.supplies.ListCompanyBalances(tenantID, companyID)
}

func (s *SupplyService) ListTransactions(tenantID int, filter TransactionFilter) ([]models.MetalTransactionView, error) {
	return s.supplies.ListTransactions(tenantID, filter)
}

// weightedAverageCost folds a purchase into the metal's running average,
// weighting by the reserve quantity already on hand. Falls back to the
// purchase cost when nothing was on hand.
func weightedAverageCost(oldAverage *float64, oldQuantity, purchaseQuantity, costPerGram float64) float64 {
	oldQty := decimal.NewFromFloat(oldQuantity)
	newQty := decimal.NewFromFloat(purchaseQuantity)
	cost := decimal.NewFromFloat(costPerGram)

	denominator := oldQty.Add(newQty)
	if !denominator.IsPositive() {
		return costPerGram
	}

	oldAvg := decimal.Zero
	if oldAverage != nil {
		oldAvg = decimal.NewFromFloat(*oldAverage)
	}

	average, _ := oldAvg.Mul(oldQty).Add(cost.Mul(newQty)).Div(denominator).Float64()
	return average
}

// RecordSafePurchase books metal bought for the manufacturer's own reserve.
// Fine metal purchases also fold the cost into the metal's running average
// price.
func (s *SupplyService) RecordSafePurchase(tenantID, userID int, req RecordPurchaseRequest) (*models.SafeSupply, error) {
	if req.QuantityGrams <= 0 {
		return nil, custom_error.NewValidationError("Purchase quantity must be greater than 0")
	}

	bucket := models.AlloyBucket()
	var metal *models.Metal
	if req.SupplyType == models.SupplyTypeFineMetal {
		if req.MetalID == nil {
			return nil, custom_error.NewValidationError("Metal is required for fine metal purchases")
		}
		var err error
		metal, err = s.metals.GetByID(tenantID, *req.MetalID)
		if err != nil {
			return nil, err
		}
		bucket = models.FineMetalBucket(metal.ID)
	}

	var result *models.SafeSupply

	err := s.tx.RunInTx(func(tx *goqu.TxDatabase) error {
		supply, err := s.supplies.GetSupplyForUpdate(tx, tenantID, bucket)
		if err != nil {
			return err
		}

		if metal != nil {
			average := weightedAverageCost(metal.AverageCostPerGram, supply.QuantityGrams, req.QuantityGrams, req.CostPerGram)
			if err := s.metals.SetAverageCost(tx, tenantID, metal.ID, average); err != nil {
				return err
			}
		}

		supply.QuantityGrams += req.QuantityGrams
		if err := s.supplies.SetSupplyQuantity(tx, supply.ID, supply.QuantityGrams); err != nil {
			return err
		}

		transaction := models.MetalTransaction{
			TenantID:        tenantID,
			TransactionType: models.TransactionSafePurchase,
			MetalID:         bucket.MetalID(),
			QuantityGrams:   req.QuantityGrams,
			Notes:           req.Notes,
			CreatedBy:       userID,
		}
		if err := s.supplies.InsertTransaction(tx, &transaction); err != nil {
			return err
		}

		result = supply
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// RecordCompanyDeposit books customer metal entering the safe. The trust
// balance and the fine metal reserve both grow by the deposited amount, the
// metal physically sits in the manufacturer's safe.
func (s *SupplyService) RecordCompanyDeposit(tenantID, userID int, req RecordDepositRequest) (*models.CompanyMetalBalance, error) {
	if req.QuantityGrams <= 0 {
		return nil, custom_error.NewValidationError("Deposit quantity must be greater than 0")
	}

	if _, err := s.companies.GetCompany(tenantID, req.CompanyID); err != nil {
		return nil, err
	}

	metal, err := s.metals.GetByID(tenantID, req.MetalID)
	if err != nil {
		return nil, err
	}
	if !metal.IsActive {
		return nil, custom_error.NewValidationError("Metal '%s' is not active", metal.Code)
	}

	var result *models.CompanyMetalBalance

	err = s.tx.RunInTx(func(tx *goqu.TxDatabase) error {
		balance, err := s.supplies.GetCompanyBalanceForUpdate(tx, tenantID, req.CompanyID, metal.ID)
		if err != nil {
			return err
		}
		balance.BalanceGrams += req.QuantityGrams
		if err := s.supplies.SetCompanyBalance(tx, balance.ID, balance.BalanceGrams); err != nil {
			return err
		}

		supply, err := s.supplies.GetSupplyForUpdate(tx, tenantID, models.FineMetalBucket(metal.ID))
		if err != nil {
			return err
		}
		if err := s.supplies.SetSupplyQuantity(tx, supply.ID, supply.QuantityGrams+req.QuantityGrams); err != nil {
			return err
		}

		transaction := models.MetalTransaction{
			TenantID:        tenantID,
			TransactionType: models.TransactionCompanyDeposit,
			MetalID:         &metal.ID,
			CompanyID:       &req.CompanyID,
			QuantityGrams:   req.QuantityGrams,
			Notes:           req.Notes,
			CreatedBy:       userID,
		}
		if err := s.supplies.InsertTransaction(tx, &transaction); err != nil {
			return err
		}

		result = balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// ProcessCastingConsumption books the metal consumed by casting an order.
// The gross weight splits into a fine metal fraction drawn from the
// customer's trust balance and an alloy fraction drawn from the safe. A nil
// result with nil error means the order carried no castable target and was
// skipped.
func (s *SupplyService) ProcessCastingConsumption(tenantID, userID, orderID int) (*models.CastingConsumptionResult, error) {
	order, err := s.orders.GetOrder(tenantID, orderID)
	if err != nil {
		return nil, err
	}
	if order.MetalID == nil {
		return nil, custom_error.NewValidationError("Order %s has no metal assigned", order.OrderNumber)
	}

	metal, err := s.metals.GetByID(tenantID, *order.MetalID)
	if err != nil {
		return nil, err
	}
	if !metal.IsActive {
		return nil, custom_error.NewValidationError("Metal '%s' is not active", metal.Code)
	}

	if order.TargetWeightPerPiece == nil || order.Quantity <= 0 {
		s.log.Warn("skipping casting consumption, order has no castable target",
			zap.String("order_number", order.OrderNumber),
			zap.Int("quantity", order.Quantity),
		)
		return nil, nil
	}

	totalWeight := float64(order.Quantity) * *order.TargetWeightPerPiece
	fineMetalGrams := totalWeight * metal.FinePercentage
	alloyGrams := totalWeight - fineMetalGrams

	result := models.CastingConsumptionResult{
		FineMetalGrams: fineMetalGrams,
		AlloyGrams:     alloyGrams,
		MetalCode:      metal.Code,
		CompanyID:      order.CompanyID,
		OrderID:        order.ID,
	}

	err = s.tx.RunInTx(func(tx *goqu.TxDatabase) error {
		balance, err := s.supplies.GetCompanyBalanceForUpdate(tx, tenantID, order.CompanyID, metal.ID)
		if err != nil {
			return err
		}

		balanceBefore := balance.BalanceGrams
		balanceAfter := balanceBefore - fineMetalGrams
		if err := s.supplies.SetCompanyBalance(tx, balance.ID, balanceAfter); err != nil {
			return err
		}

		safeFine, err := s.supplies.GetSupplyForUpdate(tx, tenantID, models.FineMetalBucket(metal.ID))
		if err != nil {
			return err
		}

		// The safe covers what the trust balance cannot: just the overshoot
		// when the balance crosses zero here, the whole consumption when the
		// company was already in debt.
		safeFineAfter := safeFine.QuantityGrams
		switch {
		case balanceBefore < 0:
			safeFineAfter -= fineMetalGrams
		case balanceAfter < 0:
			safeFineAfter += balanceAfter
		}
		if safeFineAfter != safeFine.QuantityGrams {
			if err := s.supplies.SetSupplyQuantity(tx, safeFine.ID, safeFineAfter); err != nil {
				return err
			}
		}

		safeAlloy, err := s.supplies.GetSupplyForUpdate(tx, tenantID, models.AlloyBucket())
		if err != nil {
			return err
		}
		safeAlloyAfter := safeAlloy.QuantityGrams - alloyGrams
		if err := s.supplies.SetSupplyQuantity(tx, safeAlloy.ID, safeAlloyAfter); err != nil {
			return err
		}

		fineNotes := formatConsumptionNote("fine metal", fineMetalGrams, order.OrderNumber)
		fineTransaction := models.MetalTransaction{
			TenantID:        tenantID,
			TransactionType: models.TransactionManufacturingConsumption,
			MetalID:         &metal.ID,
			CompanyID:       &order.CompanyID,
			OrderID:         &order.ID,
			QuantityGrams:   -fineMetalGrams,
			Notes:           &fineNotes,
			CreatedBy:       userID,
		}
		if err := s.supplies.InsertTransaction(tx, &fineTransaction); err != nil {
			return err
		}

		alloyNotes := formatConsumptionNote("alloy", alloyGrams, order.OrderNumber)
		alloyTransaction := models.MetalTransaction{
			TenantID:        tenantID,
			TransactionType: models.TransactionManufacturingConsumption,
			CompanyID:       &order.CompanyID,
			OrderID:         &order.ID,
			QuantityGrams:   -alloyGrams,
			Notes:           &alloyNotes,
			CreatedBy:       userID,
		}
		if err := s.supplies.InsertTransaction(tx, &alloyTransaction); err != nil {
			return err
		}

		result.CompanyBalanceAfter = balanceAfter
		result.SafeFineMetalAfter = safeFineAfter
		result.SafeAlloyAfter = safeAlloyAfter
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}
