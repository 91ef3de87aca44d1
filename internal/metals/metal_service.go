package metals

import (
	"strings"

	custom_error "metalflow/pkg/errors"
	"metalflow/pkg/models"
)

// Default metals seeded for new tenants: code, name, fine percentage.
var DefaultMetals = []struct {
	Code           string
	Name           string
	FinePercentage float64
}{
	{"GOLD_24K", "Gold 24K", 0.999},
	{"GOLD_22K", "Gold 22K", 0.916},
	{"GOLD_18K", "Gold 18K", 0.750},
	{"GOLD_14K", "Gold 14K", 0.585},
	{"SILVER_925", "Silver 925", 0.925},
	{"PLATINUM", "Platinum", 0.950},
}

type RegisterMetalRequest struct {
	Code               string   `json:"code" binding:"required"`
	Name               string   `json:"name" binding:"required"`
	FinePercentage     float64  `json:"fine_percentage" binding:"required,gte=0,lte=1"`
	AverageCostPerGram *float64 `json:"average_cost_per_gram"`
}

type UpdateMetalRequest struct {
	Name           *string  `json:"name"`
	FinePercentage *float64 `json:"fine_percentage" binding:"omitempty,gte=0,lte=1"`
}

// MetalService is the registry every fine-weight computation consults.
type MetalService struct {
	repo MetalRepository
}

func NewService(repo MetalRepository) *MetalService {
	return &MetalService{repo: repo}
}

func (s *MetalService) GetByID(tenantID, metalID int) (*models.Metal, error) {
	return s.repo.GetByID(tenantID, metalID)
}

func (s *MetalService) GetByCode(tenantID int, code string) (*models.Metal, error) {
	return s.repo.GetByCode(tenantID, code)
}

func (s *MetalService) List(tenantID int, includeInactive bool) ([]models.Metal, error) {
	return s.repo.List(tenantID, includeInactive)
}

func (s *MetalService) Register(tenantID int, req RegisterMetalRequest) (*models.Metal, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))

	exists, err := s.repo.CodeExists(tenantID, code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, custom_error.NewDuplicateError("Metal", "code", code)
	}

	metal := models.Metal{
		TenantID:           tenantID,
		Code:               code,
		Name:               req.Name,
		FinePercentage:     req.FinePercentage,
		AverageCostPerGram: req.AverageCostPerGram,
		IsActive:           true,
	}
	if err := s.repo.Insert(&metal); err != nil {
		return nil, err
	}

	return &metal, nil
}

func (s *MetalService) Update(tenantID, metalID int, req UpdateMetalRequest) (*models.Metal, error) {
	metal, err := s.repo.GetByID(tenantID, metalID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		metal.Name = *req.Name
	}
	if req.FinePercentage != nil {
		metal.FinePercentage = *req.FinePercentage
	}

	if err := s.repo.Update(metal); err != nil {
		return nil, err
	}

	return metal, nil
}

// Deactivate flags the metal inactive. Metals are never deleted so historic
// ledger entries keep resolving.
func (s *MetalService) Deactivate(tenantID, metalID int) (*models.Metal, error) {
	metal, err := s.repo.GetByID(tenantID, metalID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetActive(tenantID, metalID, false); err != nil {
		return nil, err
	}
	metal.IsActive = false

	return metal, nil
}

// SeedDefaults registers the standard metal catalogue for a tenant, skipping
// codes that already exist.
func (s *MetalService) SeedDefaults(tenantID int) error {
	for _, def := range DefaultMetals {
		exists, err := s.repo.CodeExists(tenantID, def.Code)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		metal := models.Metal{
			TenantID:       tenantID,
			Code:           def.Code,
			Name:           def.Name,
			FinePercentage: def.FinePercentage,
			IsActive:       true,
		}
		if err := s.repo.Insert(&metal); err != nil {
			return err
		}
	}

	return nil
}
