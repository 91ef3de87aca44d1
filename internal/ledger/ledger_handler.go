package ledger

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"metalflow/internal/metals"
	"metalflow/internal/repository"
	"metalflow/internal/security"
	custom_error "metalflow/pkg/errors"
)

const dateLayout = "2006-01-02"

type LedgerHandler struct {
	service *LedgerService
}

func NewHandler(service *LedgerService) *LedgerHandler {
	return &LedgerHandler{service: service}
}

func RegisterRoutes(router gin.IRouter, r *repository.Repository) {
	metalService := metals.NewService(metals.NewRepository(r))
	handler := NewHandler(NewService(r, NewRepository(r), NewBalanceStore(r), metalService))

	router.POST("/ledger/entries", handler.CreateEntry)
	router.GET("/ledger/entries", handler.ListEntries)
	router.PATCH("/ledger/entries/:id", handler.UpdateEntry)
	router.DELETE("/ledger/entries/:id", handler.DeleteEntry)
	router.POST("/ledger/entries/:id/unarchive", handler.UnarchiveEntry)
	router.GET("/ledger/summary", handler.GetSummary)
	router.GET("/ledger/balances", handler.ListBalances)
	router.POST("/ledger/archive", handler.ArchiveEntries)
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

func (h *LedgerHandler) CreateEntry(c *gin.Context) {
	var req CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}

	entry, err := h.service.CreateEntry(security.TenantID(c), security.UserID(c), CreateEntryInput{
		Date:         date,
		DepartmentID: req.DepartmentID,
		OrderID:      req.OrderID,
		MetalID:      req.MetalID,
		Direction:    req.Direction,
		Quantity:     req.Quantity,
		Weight:       req.Weight,
		Notes:        req.Notes,
	})
	if err != nil {
		abortWithDomainError(c, err, "Could not create ledger entry")
		return
	}

	c.JSON(http.StatusCreated, entry)
}

func (h *LedgerHandler) ListEntries(c *gin.Context) {
	filter := EntryFilter{
		IncludeArchived: c.Query("include_archived") == "true",
	}

	if raw := c.Query("department_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid department_id"})
			return
		}
		filter.DepartmentID = &id
	}
	if raw := c.Query("order_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid order_id"})
			return
		}
		filter.OrderID = &id
	}
	if raw := c.Query("date_from"); raw != "" {
		date, err := time.Parse(dateLayout, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid date_from, expected YYYY-MM-DD"})
			return
		}
		filter.DateFrom = &date
	}
	if raw := c.Query("date_to"); raw != "" {
		date, err := time.Parse(dateLayout, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid date_to, expected YYYY-MM-DD"})
			return
		}
		filter.DateTo = &date
	}

	entries, err := h.service.ListEntries(security.TenantID(c), filter)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not list ledger entries", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, entries)
}

func (h *LedgerHandler) UpdateEntry(c *gin.Context) {
	entryID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid entry id"})
		return
	}

	var req UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	patch := UpdateEntryInput{
		DepartmentID: req.DepartmentID,
		OrderID:      req.OrderID,
		MetalID:      req.MetalID,
		Direction:    req.Direction,
		Quantity:     req.Quantity,
		Weight:       req.Weight,
		Notes:        req.Notes,
	}
	if req.Date != nil {
		date, err := time.Parse(dateLayout, *req.Date)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
			return
		}
		patch.Date = &date
	}

	entry, err := h.service.UpdateEntry(security.TenantID(c), entryID, patch)
	if err != nil {
		abortWithDomainError(c, err, "Could not update ledger entry")
		return
	}

	c.JSON(http.StatusOK, entry)
}

func (h *LedgerHandler) DeleteEntry(c *gin.Context) {
	entryID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid entry id"})
		return
	}

	if err := h.service.DeleteEntry(security.TenantID(c), entryID); err != nil {
		abortWithDomainError(c, err, "Could not delete ledger entry")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Ledger entry deleted successfully"})
}

func (h *LedgerHandler) UnarchiveEntry(c *gin.Context) {
	entryID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid entry id"})
		return
	}

	entry, err := h.service.UnarchiveEntry(security.TenantID(c), entryID)
	if err != nil {
		abortWithDomainError(c, err, "Could not unarchive ledger entry")
		return
	}

	c.JSON(http.StatusOK, entry)
}

func (h *LedgerHandler) GetSummary(c *gin.Context) {
	var departmentID *int
	if raw := c.Query("department_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid department_id"})
			return
		}
		departmentID = &id
	}

	summary, err := h.service.GetSummary(security.TenantID(c), departmentID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not build ledger summary", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *LedgerHandler) ListBalances(c *gin.Context) {
	var departmentID *int
	if raw := c.Query("department_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid department_id"})
			return
		}
		departmentID = &id
	}

	balances, err := h.service.ListBalances(security.TenantID(c), departmentID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not list department balances", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, balances)
}

func (h *LedgerHandler) ArchiveEntries(c *gin.Context) {
	var req ArchiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	dateFrom, err := time.Parse(dateLayout, req.DateFrom)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid date_from, expected YYYY-MM-DD"})
		return
	}
	dateTo, err := time.Parse(dateLayout, req.DateTo)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid date_to, expected YYYY-MM-DD"})
		return
	}

	count, err := h.service.ArchiveEntries(security.TenantID(c), dateFrom, dateTo)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not archive ledger entries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"archived_count": count})
}
