package testutil

// Migrations returns the full DDL for the provisioning database in apply
// order. The unique constraints use PostgreSQL's default names; the error
// mapper in pkg/database matches on those names, so tests exercising
// constraint violations see production behavior.
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS employees (
			id UUID PRIMARY KEY,
			account_id UUID UNIQUE NOT NULL,
			email VARCHAR(255) UNIQUE NOT NULL,
			name VARCHAR(255) NOT NULL,
			role VARCHAR(50) NOT NULL,
			status VARCHAR(50) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS owner_accounts (
			id UUID PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			email_verified BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_login_at TIMESTAMPTZ
		)`,

		`CREATE TABLE IF NOT EXISTS profiles (
			account_id UUID PRIMARY KEY REFERENCES owner_accounts(id),
			email VARCHAR(255) NOT NULL,
			display_name VARCHAR(255) NOT NULL,
			role VARCHAR(50) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS tenants (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			slug VARCHAR(100) UNIQUE NOT NULL,
			timezone VARCHAR(100) NOT NULL DEFAULT 'UTC',
			currency CHAR(3) NOT NULL DEFAULT 'USD',
			status VARCHAR(50) NOT NULL DEFAULT 'active',
			contact_email VARCHAR(255),
			contact_phone VARCHAR(50),
			website VARCHAR(255),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS auto_provisioning (
			id UUID PRIMARY KEY,
			tenant_id UUID UNIQUE NOT NULL REFERENCES tenants(id),
			admin_id UUID NOT NULL,
			owner_account_id UUID NOT NULL REFERENCES owner_accounts(id),
			owner_email VARCHAR(255) NOT NULL,
			slug VARCHAR(100) NOT NULL,
			idempotency_key VARCHAR(128) UNIQUE,
			owner_created BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS business_hours (
			id UUID PRIMARY KEY,
			tenant_id UUID NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
			day_of_week INT NOT NULL CHECK (day_of_week BETWEEN 0 AND 6),
			opens_at VARCHAR(5) NOT NULL,
			closes_at VARCHAR(5) NOT NULL,
			closed BOOLEAN NOT NULL DEFAULT FALSE,
			UNIQUE (tenant_id, day_of_week)
		)`,

		`CREATE TABLE IF NOT EXISTS party_size_configs (
			id UUID PRIMARY KEY,
			tenant_id UUID UNIQUE NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
			min_size INT NOT NULL CHECK (min_size >= 1),
			max_size INT NOT NULL CHECK (max_size >= min_size),
			default_size INT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS restaurant_tables (
			id UUID PRIMARY KEY,
			tenant_id UUID NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
			name VARCHAR(100) NOT NULL,
			capacity INT NOT NULL CHECK (capacity >= 1)
		)`,

		`CREATE TABLE IF NOT EXISTS recovery_requests (
			id UUID PRIMARY KEY,
			tenant_id UUID NOT NULL REFERENCES tenants(id),
			owner_account_id UUID NOT NULL REFERENCES owner_accounts(id),
			token_hash CHAR(64) UNIQUE NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			issued_by UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			revoked_at TIMESTAMPTZ,
			revoked_by UUID,
			revoke_reason VARCHAR(500),
			redeemed_at TIMESTAMPTZ
		)`,

		`CREATE TABLE IF NOT EXISTS rate_limits (
			subject VARCHAR(255) NOT NULL,
			window_start TIMESTAMPTZ NOT NULL,
			count INT NOT NULL DEFAULT 0,
			PRIMARY KEY (subject, window_start)
		)`,

		`CREATE TABLE IF NOT EXISTS background_jobs (
			id UUID PRIMARY KEY,
			kind VARCHAR(100) NOT NULL,
			tenant_id UUID REFERENCES tenants(id),
			payload JSONB NOT NULL DEFAULT '{}',
			status VARCHAR(50) NOT NULL DEFAULT 'pending',
			attempts INT NOT NULL DEFAULT 0,
			last_error TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMPTZ
		)`,

		`CREATE TABLE IF NOT EXISTS audit_logs (
			id UUID PRIMARY KEY,
			actor_id UUID,
			actor_email VARCHAR(255) NOT NULL DEFAULT '',
			action VARCHAR(100) NOT NULL,
			resource_type VARCHAR(100),
			resource_id VARCHAR(255),
			outcome VARCHAR(50) NOT NULL,
			severity VARCHAR(50) NOT NULL DEFAULT 'info',
			details JSONB,
			ip_address VARCHAR(64),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_audit_logs_created_at ON audit_logs (created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_recovery_requests_tenant ON recovery_requests (tenant_id)`,
	}
}

// Tables lists every table the migrations create, in dependency order for
// truncation.
func Tables() []string {
	return []string{
		"audit_logs",
		"background_jobs",
		"rate_limits",
		"recovery_requests",
		"restaurant_tables",
		"party_size_configs",
		"business_hours",
		"auto_provisioning",
		"profiles",
		"tenants",
		"owner_accounts",
		"employees",
	}
}
