package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/blunari/blunari-backend/internal/provisioning/domain"
	"github.com/blunari/blunari-backend/pkg/database"
)

// TenantRepository handles tenant and provisioning-record persistence
type TenantRepository struct {
	db *database.DB
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *database.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// SlugExists reports whether a tenant with the given slug exists. The check
// queries the tenants table itself, not the auto_provisioning table, whose
// denormalized slug copy can go stale.
func (r *TenantRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM tenants WHERE slug = $1`
	if err := r.db.GetContext(ctx, &count, query, slug); err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertTx inserts the tenant row. The slug unique constraint is the
// authoritative duplicate check; a concurrent duplicate surfaces as a 23505
// that the error mapper turns into DUPLICATE_SLUG.
func (r *TenantRepository) InsertTx(ctx context.Context, tx *sqlx.Tx, t *domain.Tenant) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}

	query := `
		INSERT INTO tenants (id, name, slug, timezone, currency, status, contact_email, contact_phone, website)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	return tx.QueryRowxContext(ctx, query,
		t.ID,
		t.Name,
		t.Slug,
		t.Timezone,
		t.Currency,
		t.Status,
		t.ContactEmail,
		t.ContactPhone,
		t.Website,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
}

// InsertAutoProvisioningTx inserts the join record linking tenant, creating
// admin, and owner account. The idempotency key unique constraint is what
// makes duplicate submissions safe under concurrent retries.
func (r *TenantRepository) InsertAutoProvisioningTx(ctx context.Context, tx *sqlx.Tx, ap *domain.AutoProvisioning) error {
	if ap.ID == "" {
		ap.ID = uuid.New().String()
	}

	query := `
		INSERT INTO auto_provisioning (id, tenant_id, admin_id, owner_account_id, owner_email, slug, idempotency_key, owner_created)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	return tx.QueryRowxContext(ctx, query,
		ap.ID,
		ap.TenantID,
		ap.AdminID,
		ap.OwnerAccountID,
		ap.OwnerEmail,
		ap.Slug,
		ap.IdempotencyKey,
		ap.OwnerCreated,
	).Scan(&ap.CreatedAt)
}

// GetByIdempotencyKey returns the provisioning record for a prior successful
// invocation with this key, or (nil, nil) when none exists.
func (r *TenantRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.AutoProvisioning, error) {
	var ap domain.AutoProvisioning
	query := `
		SELECT id, tenant_id, admin_id, owner_account_id, owner_email, slug, idempotency_key, owner_created, created_at
		FROM auto_provisioning
		WHERE idempotency_key = $1
	`

	if err := r.db.GetContext(ctx, &ap, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &ap, nil
}

// InsertBusinessHoursTx inserts the default weekly hours for a new tenant.
func (r *TenantRepository) InsertBusinessHoursTx(ctx context.Context, tx *sqlx.Tx, hours []domain.BusinessHour) error {
	query := `
		INSERT INTO business_hours (id, tenant_id, day_of_week, opens_at, closes_at, closed)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	for i := range hours {
		if hours[i].ID == "" {
			hours[i].ID = uuid.New().String()
		}
		h := hours[i]
		if _, err := tx.ExecContext(ctx, query, h.ID, h.TenantID, h.DayOfWeek, h.OpensAt, h.ClosesAt, h.Closed); err != nil {
			return err
		}
	}
	return nil
}

// InsertPartySizeConfigTx inserts the tenant's party size configuration.
func (r *TenantRepository) InsertPartySizeConfigTx(ctx context.Context, tx *sqlx.Tx, cfg *domain.PartySizeConfig) error {
	if cfg.ID == "" {
		cfg.ID = uuid.New().String()
	}

	query := `
		INSERT INTO party_size_configs (id, tenant_id, min_size, max_size, default_size)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := tx.ExecContext(ctx, query, cfg.ID, cfg.TenantID, cfg.MinSize, cfg.MaxSize, cfg.DefaultSize)
	return err
}

// InsertTablesTx inserts seed restaurant tables.
func (r *TenantRepository) InsertTablesTx(ctx context.Context, tx *sqlx.Tx, tables []domain.RestaurantTable) error {
	query := `
		INSERT INTO restaurant_tables (id, tenant_id, name, capacity)
		VALUES ($1, $2, $3, $4)
	`

	for i := range tables {
		if tables[i].ID == "" {
			tables[i].ID = uuid.New().String()
		}
		t := tables[i]
		if _, err := tx.ExecContext(ctx, query, t.ID, t.TenantID, t.Name, t.Capacity); err != nil {
			return err
		}
	}
	return nil
}

// GetProvisioningByTenantID returns the provisioning record for a tenant, or
// (nil, nil) when the tenant has none.
func (r *TenantRepository) GetProvisioningByTenantID(ctx context.Context, tenantID string) (*domain.AutoProvisioning, error) {
	var ap domain.AutoProvisioning
	query := `
		SELECT id, tenant_id, admin_id, owner_account_id, owner_email, slug, idempotency_key, owner_created, created_at
		FROM auto_provisioning
		WHERE tenant_id = $1
	`

	if err := r.db.GetContext(ctx, &ap, query, tenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &ap, nil
}

// GetByID retrieves a tenant by id.
func (r *TenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	var t domain.Tenant
	query := `
		SELECT id, name, slug, timezone, currency, status, contact_email, contact_phone, website, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`

	if err := r.db.GetContext(ctx, &t, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &t, nil
}

// TenantListing is a directory row joining the tenant with its provisioning
// record when one exists.
type TenantListing struct {
	domain.Tenant
	OwnerEmail *string `db:"owner_email" json:"owner_email,omitempty"`
	AdminID    *string `db:"admin_id" json:"admin_id,omitempty"`
}

// List returns tenants for the admin directory, newest first. The join is a
// LEFT JOIN: a tenant missing its auto_provisioning record still shows up
// rather than silently disappearing from the directory.
func (r *TenantRepository) List(ctx context.Context, page, perPage int) ([]*TenantListing, int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM tenants`); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT t.id, t.name, t.slug, t.timezone, t.currency, t.status,
		       t.contact_email, t.contact_phone, t.website, t.created_at, t.updated_at,
		       ap.owner_email, ap.admin_id
		FROM tenants t
		LEFT JOIN auto_provisioning ap ON ap.tenant_id = t.id
		ORDER BY t.created_at DESC
		LIMIT $1 OFFSET $2
	`

	offset := (page - 1) * perPage
	var listings []*TenantListing
	if err := r.db.SelectContext(ctx, &listings, query, perPage, offset); err != nil {
		return nil, 0, err
	}

	return listings, total, nil
}

// UpdateStatus changes a tenant's status. There is no delete: suspension is
// the strongest lifecycle action.
func (r *TenantRepository) UpdateStatus(ctx context.Context, id string, status domain.TenantStatus) error {
	query := `UPDATE tenants SET status = $2, updated_at = NOW() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
