package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/blunari/blunari-backend/internal/provisioning/domain"
	"github.com/blunari/blunari-backend/pkg/database"
)

// EmployeeRepository handles internal staff persistence
type EmployeeRepository struct {
	db *database.DB
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *database.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// GetByAccountID retrieves the employee record for an authenticated account.
// A missing record returns (nil, nil): the caller treats that as a deny, not
// as a server error.
func (r *EmployeeRepository) GetByAccountID(ctx context.Context, accountID string) (*domain.Employee, error) {
	var emp domain.Employee
	query := `
		SELECT id, account_id, email, name, role, status, created_at, updated_at
		FROM employees
		WHERE account_id = $1
	`

	if err := r.db.GetContext(ctx, &emp, query, accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &emp, nil
}

// GetByEmail retrieves an employee by email.
func (r *EmployeeRepository) GetByEmail(ctx context.Context, email string) (*domain.Employee, error) {
	var emp domain.Employee
	query := `
		SELECT id, account_id, email, name, role, status, created_at, updated_at
		FROM employees
		WHERE email = $1
	`

	if err := r.db.GetContext(ctx, &emp, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &emp, nil
}
