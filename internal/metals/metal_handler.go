package metals

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"metalflow/internal/repository"
	"metalflow/internal/security"
	custom_error "metalflow/pkg/errors"
)

type MetalHandler struct {
	service *MetalService
}

func NewHandler(service *MetalService) *MetalHandler {
	return &MetalHandler{service: service}
}

func RegisterRoutes(router gin.IRouter, r *repository.Repository) {
	handler := NewHandler(NewService(NewRepository(r)))

	router.GET("/metals", handler.ListMetals)
	router.GET("/metals/:id", handler.GetMetal)
	router.POST("/metals", handler.RegisterMetal)
	router.POST("/metals/seed", handler.SeedDefaults)
	router.PATCH("/metals/:id", handler.UpdateMetal)
	router.DELETE("/metals/:id", handler.DeactivateMetal)
}

func (h *MetalHandler) ListMetals(c *gin.Context) {
	includeInactive := c.Query("include_inactive") == "true"

	metals, err := h.service.List(security.TenantID(c), includeInactive)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not list metals", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, metals)
}

func (h *MetalHandler) GetMetal(c *gin.Context) {
	metalID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid metal id"})
		return
	}

	metal, err := h.service.GetByID(security.TenantID(c), metalID)
	if custom_error.IsNotFound(err) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	} else if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch metal"})
		return
	}

	c.JSON(http.StatusOK, metal)
}

func (h *MetalHandler) RegisterMetal(c *gin.Context) {
	var req RegisterMetalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	metal, err := h.service.Register(security.TenantID(c), req)
	if custom_error.IsDuplicate(err) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	} else if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not register metal"})
		return
	}

	c.JSON(http.StatusCreated, metal)
}

func (h *MetalHandler) SeedDefaults(c *gin.Context) {
	if err := h.service.SeedDefaults(security.TenantID(c)); err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not seed default metals"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Default metals seeded"})
}

func (h *MetalHandler) UpdateMetal(c *gin.Context) {
	metalID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid metal id"})
		return
	}

	var req UpdateMetalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	metal, err := h.service.Update(security.TenantID(c), metalID, req)
	if custom_error.IsNotFound(err) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	} else if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not update metal"})
		return
	}

	c.JSON(http.StatusOK, metal)
}

func (h *MetalHandler) DeactivateMetal(c *gin.Context) {
	metalID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid metal id"})
		return
	}

	metal, err := h.service.Deactivate(security.TenantID(c), metalID)
	if custom_error.IsNotFound(err) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	} else if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Could not deactivate metal"})
		return
	}

	c.JSON(http.StatusOK, metal)
}
