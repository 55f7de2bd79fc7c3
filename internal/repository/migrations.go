package repository

import "github.com/jmoiron/sqlx"

// Migrate creates the schema if it does not exist. Enum-like columns are
// plain text; validity is enforced by the typed constants in models, not by
// the database.
func Migrate(db *sqlx.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS ingredients (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		unit VARCHAR(20) NOT NULL DEFAULT 'pieces',
		current_quantity INTEGER NOT NULL DEFAULT 0,
		par_level INTEGER NOT NULL DEFAULT 0,
		reorder_point INTEGER NOT NULL DEFAULT 0,
		max_capacity INTEGER NOT NULL DEFAULT 100,
		shelf_life_days INTEGER NOT NULL DEFAULT 0,
		expiration_date TIMESTAMPTZ,
		storage_location VARCHAR(64) NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		last_restocked TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT quantity_bounds CHECK (current_quantity >= 0 AND current_quantity <= max_capacity)
	);

	CREATE TABLE IF NOT EXISTS inventory_transactions (
		id BIGSERIAL PRIMARY KEY,
		ingredient_id VARCHAR(64) NOT NULL REFERENCES ingredients(id),
		quantity_change INTEGER NOT NULL,
		previous_quantity INTEGER NOT NULL,
		new_quantity INTEGER NOT NULL,
		kind VARCHAR(20) NOT NULL,
		order_id UUID,
		actor VARCHAR(64) NOT NULL DEFAULT 'system',
		reason TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_inv_txn_ingredient ON inventory_transactions(ingredient_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_inv_txn_order ON inventory_transactions(order_id) WHERE order_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS recipes (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		base_price DECIMAL(10, 2) NOT NULL,
		prep_time_seconds INTEGER NOT NULL DEFAULT 0,
		is_available BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS recipe_components (
		recipe_id VARCHAR(64) NOT NULL REFERENCES recipes(id),
		ingredient_id VARCHAR(64) NOT NULL REFERENCES ingredients(id),
		quantity INTEGER NOT NULL,
		step_order INTEGER NOT NULL DEFAULT 0,
		is_optional BOOLEAN NOT NULL DEFAULT FALSE,
		extra_cost DECIMAL(10, 2) NOT NULL DEFAULT 0,
		PRIMARY KEY (recipe_id, ingredient_id)
	);

	CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		order_number VARCHAR(20) UNIQUE NOT NULL,
		order_type VARCHAR(32) NOT NULL DEFAULT 'kiosk',
		burger_variant VARCHAR(64) NOT NULL,
		customizations JSONB NOT NULL DEFAULT '{}',
		side VARCHAR(64) NOT NULL DEFAULT '',
		drink VARCHAR(64) NOT NULL DEFAULT '',
		subtotal DECIMAL(10, 2) NOT NULL DEFAULT 0,
		tax DECIMAL(10, 2) NOT NULL DEFAULT 0,
		total DECIMAL(10, 2) NOT NULL DEFAULT 0,
		payment_method VARCHAR(20) NOT NULL,
		payment_status VARCHAR(20) NOT NULL DEFAULT 'pending',
		status VARCHAR(20) NOT NULL DEFAULT 'received',
		priority VARCHAR(10) NOT NULL DEFAULT 'normal',
		station_group VARCHAR(32) NOT NULL DEFAULT '',
		special_instructions TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		started_cooking_at TIMESTAMPTZ,
		finished_cooking_at TIMESTAMPTZ,
		assembled_at TIMESTAMPTZ,
		delivered_at TIMESTAMPTZ,
		actual_prep_seconds INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);

	CREATE TABLE IF NOT EXISTS order_events (
		id BIGSERIAL PRIMARY KEY,
		order_id UUID NOT NULL REFERENCES orders(id),
		event_type VARCHAR(50) NOT NULL,
		previous_status VARCHAR(20) NOT NULL,
		new_status VARCHAR(20) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_order_events_order ON order_events(order_id, created_at);

	CREATE TABLE IF NOT EXISTS order_queue (
		id BIGSERIAL PRIMARY KEY,
		order_id UUID NOT NULL REFERENCES orders(id),
		position BIGINT NOT NULL,
		priority VARCHAR(10) NOT NULL DEFAULT 'normal',
		enqueued_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		dequeued_at TIMESTAMPTZ
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_queue_open_order ON order_queue(order_id) WHERE dequeued_at IS NULL;
	CREATE UNIQUE INDEX IF NOT EXISTS idx_queue_open_position ON order_queue(position) WHERE dequeued_at IS NULL;

	CREATE TABLE IF NOT EXISTS auto_order_requests (
		id BIGSERIAL PRIMARY KEY,
		ingredient_id VARCHAR(64) NOT NULL REFERENCES ingredients(id),
		quantity INTEGER NOT NULL,
		trigger_reason TEXT NOT NULL DEFAULT '',
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		expected_delivery TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_auto_order_open ON auto_order_requests(ingredient_id)
		WHERE status IN ('pending', 'ordered');

	CREATE TABLE IF NOT EXISTS station_faults (
		id BIGSERIAL PRIMARY KEY,
		order_id UUID NOT NULL REFERENCES orders(id),
		fault_type VARCHAR(20) NOT NULL,
		component VARCHAR(64) NOT NULL DEFAULT '',
		message TEXT NOT NULL DEFAULT '',
		requires_intervention BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`

	_, err := db.Exec(schema)
	return err
}
