package domain

import "time"

// TenantStatus is the closed set of tenant states. Tenants are never hard
// deleted; deactivation is a status change.
type TenantStatus string

const (
	TenantActive    TenantStatus = "active"
	TenantSuspended TenantStatus = "suspended"
)

// Valid reports whether s is a known tenant status.
func (s TenantStatus) Valid() bool {
	switch s {
	case TenantActive, TenantSuspended:
		return true
	}
	return false
}

// Tenant represents one restaurant business.
type Tenant struct {
	ID       string       `db:"id" json:"id"`
	Name     string       `db:"name" json:"name"`
	Slug     string       `db:"slug" json:"slug"`
	Timezone string       `db:"timezone" json:"timezone"`
	Currency string       `db:"currency" json:"currency"`
	Status   TenantStatus `db:"status" json:"status"`

	// Business contact details. ContactEmail is the restaurant's public
	// email and is a separate field from the owner's login email; it
	// defaults to the owner email at provisioning time but may diverge.
	ContactEmail *string `db:"contact_email" json:"contact_email,omitempty"`
	ContactPhone *string `db:"contact_phone" json:"contact_phone,omitempty"`
	Website      *string `db:"website" json:"website,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AutoProvisioning links a tenant to the admin who created it and the owner
// account, with denormalized email and slug for fast lookups. Every tenant
// must have one; the admin directory joins through it.
type AutoProvisioning struct {
	ID             string    `db:"id" json:"id"`
	TenantID       string    `db:"tenant_id" json:"tenant_id"`
	AdminID        string    `db:"admin_id" json:"admin_id"`
	OwnerAccountID string    `db:"owner_account_id" json:"owner_account_id"`
	OwnerEmail     string    `db:"owner_email" json:"owner_email"`
	Slug           string    `db:"slug" json:"slug"`
	IdempotencyKey *string   `db:"idempotency_key" json:"idempotency_key,omitempty"`
	OwnerCreated   bool      `db:"owner_created" json:"owner_created"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// BusinessHour is one day's default opening window for a tenant.
type BusinessHour struct {
	ID        string `db:"id" json:"id"`
	TenantID  string `db:"tenant_id" json:"tenant_id"`
	DayOfWeek int    `db:"day_of_week" json:"day_of_week"` // 0 = Sunday
	OpensAt   string `db:"opens_at" json:"opens_at"`
	ClosesAt  string `db:"closes_at" json:"closes_at"`
	Closed    bool   `db:"closed" json:"closed"`
}

// PartySizeConfig holds the accepted party size range for bookings.
type PartySizeConfig struct {
	ID          string `db:"id" json:"id"`
	TenantID    string `db:"tenant_id" json:"tenant_id"`
	MinSize     int    `db:"min_size" json:"min_size"`
	MaxSize     int    `db:"max_size" json:"max_size"`
	DefaultSize int    `db:"default_size" json:"default_size"`
}

// RestaurantTable is a seed table created during provisioning.
type RestaurantTable struct {
	ID       string `db:"id" json:"id"`
	TenantID string `db:"tenant_id" json:"tenant_id"`
	Name     string `db:"name" json:"name"`
	Capacity int    `db:"capacity" json:"capacity"`
}

// SeedConfig is the optional initial configuration supplied at provisioning.
type SeedConfig struct {
	MinPartySize     int `json:"minPartySize" validate:"omitempty,min=1"`
	MaxPartySize     int `json:"maxPartySize" validate:"omitempty,min=1,max=100"`
	DefaultPartySize int `json:"defaultPartySize" validate:"omitempty,min=1"`
	TableCount       int `json:"tableCount" validate:"omitempty,min=0,max=200"`
	TableCapacity    int `json:"tableCapacity" validate:"omitempty,min=1,max=50"`
}

// DefaultBusinessHours returns the template rows inserted for a new tenant,
// one per day of week: open 11:00-22:00 every day.
func DefaultBusinessHours(tenantID string) []BusinessHour {
	hours := make([]BusinessHour, 0, 7)
	for day := 0; day < 7; day++ {
		hours = append(hours, BusinessHour{
			TenantID:  tenantID,
			DayOfWeek: day,
			OpensAt:   "11:00",
			ClosesAt:  "22:00",
		})
	}
	return hours
}

// DefaultPartySizeConfig returns the party size config used when the caller
// supplies no seed configuration.
func DefaultPartySizeConfig(tenantID string) PartySizeConfig {
	return PartySizeConfig{
		TenantID:    tenantID,
		MinSize:     1,
		MaxSize:     12,
		DefaultSize: 2,
	}
}
