package metals

import (
	"testing"

	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/assert"

	custom_error "metalflow/pkg/errors"
	"metalflow/pkg/models"
)

type fakeMetalRepository struct {
	nextID int
	metals map[string]*models.Metal
}

func newFakeMetalRepository() *fakeMetalRepository {
	return &fakeMetalRepository{metals: map[string]*models.Metal{}}
}

func (f *fakeMetalRepository) GetByID(tenantID, metalID int) (*models.Metal, error) {
	for _, metal := range f.metals {
		if metal.ID == metalID && metal.TenantID == tenantID {
			copied := *metal
			return &copied, nil
		}
	}
	return nil, custom_error.NewNotFoundError("Metal", metalID)
}

func (f *fakeMetalRepository) GetByCode(tenantID int, code string) (*models.Metal, error) {
	metal, ok := f.metals[code]
	if !ok || metal.TenantID != tenantID {
		return nil, custom_error.NewNotFoundError("Metal", code)
	}
	copied := *metal
	return &copied, nil
}

func (f *fakeMetalRepository) List(tenantID int, includeInactive bool) ([]models.Metal, error) {
	var metals []models.Metal
	for _, metal := range f.metals {
		if metal.TenantID != tenantID {
			continue
		}
		if !metal.IsActive && !includeInactive {
			continue
		}
		metals = append(metals, *metal)
	}
	return metals, nil
}

func (f *fakeMetalRepository) CodeExists(tenantID int, code string) (bool, error) {
	metal, ok := f.metals[code]
	return ok && metal.TenantID == tenantID, nil
}

func (f *fakeMetalRepository) Insert(metal *models.Metal) error {
	f.nextID++
	metal.ID = f.nextID
	f.metals[metal.Code] = metal
	return nil
}

func (f *fakeMetalRepository) Update(metal *models.Metal) error {
	f.metals[metal.Code] = metal
	return nil
}

func (f *fakeMetalRepository) SetActive(tenantID, metalID int, active bool) error {
	for _, metal := range f.metals {
		if metal.ID == metalID && metal.TenantID == tenantID {
			metal.IsActive = active
			return nil
		}
	}
	return custom_error.NewNotFoundError("Metal", metalID)
}

func (f *fakeMetalRepository) SetAverageCost(tx *goqu.TxDatabase, tenantID, metalID int, averageCost float64) error {
	for _, metal := range f.metals {
		if metal.ID == metalID && metal.TenantID == tenantID {
			metal.AverageCostPerGram = &averageCost
			return nil
		}
	}
	return custom_error.NewNotFoundError("Metal", metalID)
}

func TestRegisterUppercasesCode(t *testing.T) {
	repo := newFakeMetalRepository()
	service := NewService(repo)

	metal, err := service.Register(1, RegisterMetalRequest{
		Code:           "  gold_22k ",
		Name:           "Gold 22K",
		FinePercentage: 0.916,
	})

	assert.NoError(t, err)
	assert.Equal(t, "GOLD_22K", metal.Code)
	assert.True(t, metal.IsActive)
}

func TestRegisterRejectsDuplicateCode(t *testing.T) {
	repo := newFakeMetalRepository()
	service := NewService(repo)

	_, err := service.Register(1, RegisterMetalRequest{Code: "GOLD_22K", Name: "Gold 22K", FinePercentage: 0.916})
	assert.NoError(t, err)

	_, err = service.Register(1, RegisterMetalRequest{Code: "gold_22k", Name: "Gold 22K again", FinePercentage: 0.916})
	assert.True(t, custom_error.IsDuplicate(err))
}

func TestSeedDefaultsSkipsExistingCodes(t *testing.T) {
	repo := newFakeMetalRepository()
	service := NewService(repo)

	_, err := service.Register(1, RegisterMetalRequest{Code: "GOLD_22K", Name: "Custom 22K", FinePercentage: 0.916})
	assert.NoError(t, err)

	assert.NoError(t, service.SeedDefaults(1))

	metals, err := service.List(1, false)
	assert.NoError(t, err)
	assert.Len(t, metals, len(DefaultMetals))

	existing, err := service.GetByCode(1, "GOLD_22K")
	assert.NoError(t, err)
	assert.Equal(t, "Custom 22K", existing.Name)
}

func TestSeedDefaultsIsIdempotent(t *testing.T) {
	repo := newFakeMetalRepository()
	service := NewService(repo)

	assert.NoError(t, service.SeedDefaults(1))
	assert.NoError(t, service.SeedDefaults(1))

	metals, err := service.List(1, false)
	assert.NoError(t, err)
	assert.Len(t, metals, len(DefaultMetals))
}

func TestDeactivateKeepsMetalResolvable(t *testing.T) {
	repo := newFakeMetalRepository()
	service := NewService(repo)

	metal, err := service.Register(1, RegisterMetalRequest{Code: "PLATINUM", Name: "Platinum", FinePercentage: 0.95})
	assert.NoError(t, err)

	deactivated, err := service.Deactivate(1, metal.ID)
	assert.NoError(t, err)
	assert.False(t, deactivated.IsActive)

	fetched, err := service.GetByID(1, metal.ID)
	assert.NoError(t, err)
	assert.False(t, fetched.IsActive)

	active, err := service.List(1, false)
	assert.NoError(t, err)
	assert.Empty(t, active)
}

func TestUpdatePatchesNameAndFinePercentage(t *testing.T) {
	repo := newFakeMetalRepository()
	service := NewService(repo)

	metal, err := service.Register(1, RegisterMetalRequest{Code: "GOLD_18K", Name: "Gold 18K", FinePercentage: 0.75})
	assert.NoError(t, err)

	name := "Gold 18 carat"
	fine := 0.751
	updated, err := service.Update(1, metal.ID, UpdateMetalRequest{Name: &name, FinePercentage: &fine})

	assert.NoError(t, err)
	assert.Equal(t, "Gold 18 carat", updated.Name)
	assert.Equal(t, 0.751, updated.FinePercentage)
}
