package repository

import (
	"fmt"

	"github.com/doug-martin/goqu/v9"

	custom_error "metalflow/pkg/errors"
	"metalflow/pkg/models"
)

// Lookups for entities owned by other parts of the system. The metal engine
// only checks existence and reads projections, never mutates them.

func (r *Repository) GetOrder(tenantID, orderID int) (*models.Order, error) {
	var order models.Order
	query := r.GoquDBWrapper.
		Select("id", "tenant_id", "order_number", "company_id", "metal_id", "quantity", "target_weight_per_piece").
		From("orders").
		Where(goqu.Ex{"id": orderID, "tenant_id": tenantID})

	found, err := query.Executor().ScanStruct(&order)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order %d: %w", orderID, err)
	}
	if !found {
		return nil, custom_error.NewNotFoundError("Order", orderID)
	}

	return &order, nil
}

func (r *Repository) GetDepartmentByID(tenantID, departmentID int) (*models.Department, error) {
	var department models.Department
	query := r.GoquDBWrapper.
		Select("id", "tenant_id", "name").
		From("departments").
		Where(goqu.Ex{"id": departmentID, "tenant_id": tenantID})

	found, err := query.Executor().ScanStruct(&department)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch department %d: %w", departmentID, err)
	}
	if !found {
		return nil, custom_error.NewNotFoundError("Department", departmentID)
	}

	return &department, nil
}

func (r *Repository) GetDepartmentByName(tenantID int, name string) (*models.Department, error) {
	var department models.Department
	query := r.GoquDBWrapper.
		Select("id", "tenant_id", "name").
		From("departments").
		Where(goqu.Ex{"name": name, "tenant_id": tenantID})

	found, err := query.Executor().ScanStruct(&department)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch department %q: %w", name, err)
	}
	if !found {
		return nil, custom_error.NewNotFoundError("Department", name)
	}

	return &department, nil
}

func (r *Repository) GetCompany(tenantID, companyID int) (*models.Company, error) {
	var company models.Company
	query := r.GoquDBWrapper.
		Select("id", "tenant_id", "name").
		From("companies").
		Where(goqu.Ex{"id": companyID, "tenant_id": tenantID})

	found, err := query.Executor().ScanStruct(&company)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch company %d: %w", companyID, err)
	}
	if !found {
		return nil, custom_error.NewNotFoundError("Company", companyID)
	}

	return &company, nil
}
