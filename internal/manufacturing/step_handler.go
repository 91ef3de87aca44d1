package manufacturing

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"metalflow/internal/metals"
	"metalflow/internal/repository"
	"metalflow/internal/security"
	custom_error "metalflow/pkg/errors"
)

type StepHandler struct {
	service *StepService
}

func NewStepHandler(service *StepService) *StepHandler {
	return &StepHandler{service: service}
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

func (h *StepHandler) ListSteps(c *gin.Context) {
	tenantID := security.TenantID(c)

	var orderID *int
	if raw := c.Query("order_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid order_id"})
			return
		}
		orderID = &id
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	steps, err := h.service.ListSteps(tenantID, orderID, limit, offset)
	if err != nil {
		abortWithDomainError(c, err, "Unable to list manufacturing steps")
		return
	}
	c.JSON(http.StatusOK, steps)
}

func (h *StepHandler) GetStep(c *gin.Context) {
	tenantID := security.TenantID(c)
	stepID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid step ID"})
		return
	}

	step, err := h.service.GetStep(tenantID, stepID)
	if err != nil {
		abortWithDomainError(c, err, "Unable to fetch manufacturing step")
		return
	}
	c.JSON(http.StatusOK, step)
}

func (h *StepHandler) CreateStep(c *gin.Context) {
	tenantID := security.TenantID(c)

	var req CreateStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	step, err := h.service.CreateStep(tenantID, req)
	if err != nil {
		abortWithDomainError(c, err, "Unable to create manufacturing step")
		return
	}
	c.JSON(http.StatusCreated, step)
}

func (h *StepHandler) UpdateStep(c *gin.Context) {
	tenantID := security.TenantID(c)
	stepID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid step ID"})
		return
	}

	var req UpdateStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	step, err := h.service.UpdateStep(tenantID, stepID, req)
	if err != nil {
		abortWithDomainError(c, err, "Unable to update manufacturing step")
		return
	}
	c.JSON(http.StatusOK, step)
}

func (h *StepHandler) Remaining(c *gin.Context) {
	tenantID := security.TenantID(c)
	stepID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid step ID"})
		return
	}

	remaining, err := h.service.Remaining(tenantID, stepID)
	if err != nil {
		abortWithDomainError(c, err, "Unable to compute remaining amounts")
		return
	}
	c.JSON(http.StatusOK, remaining)
}

func (h *StepHandler) Transfer(c *gin.Context) {
	tenantID := security.TenantID(c)
	stepID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid step ID"})
		return
	}

	var req TransferStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Transfer(tenantID, stepID, req)
	if err != nil {
		abortWithDomainError(c, err, "Unable to transfer manufacturing step")
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *StepHandler) ListStocks(c *gin.Context) {
	tenantID := security.TenantID(c)

	var departmentID *int
	if raw := c.Query("department_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid department_id"})
			return
		}
		departmentID = &id
	}

	stocks, err := h.service.ListStocks(tenantID, departmentID)
	if err != nil {
		abortWithDomainError(c, err, "Unable to list department stocks")
		return
	}
	c.JSON(http.StatusOK, stocks)
}

func RegisterRoutes(router gin.IRouter, r *repository.Repository) {
	metalService := metals.NewService(metals.NewRepository(r))
	service := NewService(r, NewStepRepository(r), NewStockStore(r), r, r, metalService)
	handler := NewStepHandler(service)

	router.GET("/manufacturing/steps", handler.ListSteps)
	router.POST("/manufacturing/steps", handler.CreateStep)
	router.GET("/manufacturing/steps/:id", handler.GetStep)
	router.PATCH("/manufacturing/steps/:id", handler.UpdateStep)
	router.GET("/manufacturing/steps/:id/remaining", handler.Remaining)
	router.POST("/manufacturing/steps/:id/transfer", handler.Transfer)
	router.GET("/manufacturing/stocks", handler.ListStocks)
}
