package supplies

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"metalflow/internal/metals"
	"metalflow/internal/repository"
	"metalflow/internal/security"
	custom_error "metalflow/pkg/errors"
)

type SupplyHandler struct {
	service *SupplyService
}

func NewHandler(service *SupplyService) *SupplyHandler {
	return &SupplyHandler{service: service}
}

func RegisterRoutes(router gin.IRouter, r *repository.Repository, log *zap.Logger) {
	service := NewService(r, NewRepository(r), metals.NewRepository(r), r, r, log)
	handler := NewHandler(service)

	router.GET("/supplies/safe", handler.ListSupplies)
	router.POST("/supplies/safe/purchases", handler.RecordPurchase)
	router.GET("/supplies/companies/:id/balances", handler.ListCompanyBalances)
	router.POST("/supplies/deposits", handler.RecordDeposit)
	router.POST("/supplies/consumption", handler.ProcessConsumption)
	router.GET("/supplies/transactions", handler.ListTransactions)
}

func abortWithDomainError(c *gin.Context, err error, fallback string) {
	switch {
	case custom_error.IsNotFound(err):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case custom_error.IsValidation(err):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

func (h *SupplyHandler) ListSupplies(c *gin.Context) {
	tenantID := security.TenantID(c)

	supplies, err := h.service.ListSupplies(tenantID)
	if err != nil {
		abortWithDomainError(c, err, "Unable to list safe supplies")
		return
	}
	c.JSON(http.StatusOK, supplies)
}

func (h *SupplyHandler) RecordPurchase(c *gin.Context) {
	tenantID := security.TenantID(c)
	userID := security.UserID(c)

	var req RecordPurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	supply, err := h.service.RecordSafePurchase(tenantID, userID, req)
	if err != nil {
		abortWithDomainError(c, err, "Unable to record safe purchase")
		return
	}
	c.JSON(http.StatusCreated, supply)
}

func (h *SupplyHandler) ListCompanyBalances(c *gin.Context) {
	tenantID := security.TenantID(c)
	companyID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid company ID"})
		return
	}

	balances, err := h.service.ListCompanyBalances(tenantID, companyID)
	if err != nil {
		abortWithDomainError(c, err, "Unable to list company balances")
		return
	}
	c.JSON(http.StatusOK, balances)
}

func (h *SupplyHandler) RecordDeposit(c *gin.Context) {
	tenantID := security.TenantID(c)
	userID := security.UserID(c)

	var req RecordDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	balance, err := h.service.RecordCompanyDeposit(tenantID, userID, req)
	if err != nil {
		abortWithDomainError(c, err, "Unable to record company deposit")
		return
	}
	c.JSON(http.StatusCreated, balance)
}

func (h *SupplyHandler) ProcessConsumption(c *gin.Context) {
	tenantID := security.TenantID(c)
	userID := security.UserID(c)

	var req CastingConsumptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.ProcessCastingConsumption(tenantID, userID, req.OrderID)
	if err != nil {
		abortWithDomainError(c, err, "Unable to process casting consumption")
		return
	}
	if result == nil {
		c.JSON(http.StatusOK, gin.H{"skipped": true})
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *SupplyHandler) ListTransactions(c *gin.Context) {
	tenantID := security.TenantID(c)

	var filter TransactionFilter
	if raw := c.Query("transaction_type"); raw != "" {
		filter.TransactionType = &raw
	}
	if raw := c.Query("company_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid company_id"})
			return
		}
		filter.CompanyID = &id
	}
	if raw := c.Query("order_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid order_id"})
			return
		}
		filter.OrderID = &id
	}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "100"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	transactions, err := h.service.ListTransactions(tenantID, filter)
	if err != nil {
		abortWithDomainError(c, err, "Unable to list metal transactions")
		return
	}
	c.JSON(http.StatusOK, transactions)
}
