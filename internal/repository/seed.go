package repository

import "github.com/jmoiron/sqlx"

// Seed installs the default ingredient catalog and burger menu when the
// tables are empty. Inserts are idempotent; existing rows win.
func Seed(db *sqlx.DB) error {
	seed := `
	INSERT INTO ingredients (id, name, unit, current_quantity, par_level, reorder_point, max_capacity, shelf_life_days, storage_location) VALUES
		('patty',        'Beef Patty',        'pieces', 60,  60, 15, 120, 3,  'freezer-a'),
		('bun',          'Burger Bun',        'pieces', 80,  80, 20, 160, 2,  'dry-rack-1'),
		('cheese_slice', 'Cheddar Slice',     'pieces', 70,  70, 18, 140, 14, 'fridge-b'),
		('bacon_strip',  'Bacon Strip',       'pieces', 50,  50, 12, 100, 7,  'fridge-b'),
		('lettuce',      'Lettuce Portion',   'pieces', 40,  40, 10, 80,  2,  'fridge-a'),
		('tomato_slice', 'Tomato Slice',      'pieces', 60,  60, 15, 120, 3,  'fridge-a'),
		('onion_ring',   'Onion Ring',        'pieces', 50,  50, 12, 100, 4,  'fridge-a'),
		('pickle',       'Pickle Slice',      'pieces', 45,  45, 10, 90,  30, 'fridge-c'),
		('ketchup',      'Ketchup Portion',   'pumps',  90,  90, 20, 180, 60, 'pump-station'),
		('mayo',         'Mayo Portion',      'pumps',  90,  90, 20, 180, 45, 'pump-station'),
		('fries',        'Fries Portion',     'pieces', 70,  70, 18, 140, 5,  'freezer-b'),
		('soda_cup',     'Soda Cup',          'pieces', 100, 100, 25, 200, 0, 'dry-rack-2')
	ON CONFLICT (id) DO NOTHING;

	INSERT INTO recipes (id, name, base_price, prep_time_seconds) VALUES
		('classic',      'Classic Burger',     59.00, 240),
		('cheeseburger', 'Cheeseburger',       69.00, 250),
		('double_bacon', 'Double Bacon Deluxe', 89.00, 320)
	ON CONFLICT (id) DO NOTHING;

	INSERT INTO recipe_components (recipe_id, ingredient_id, quantity, step_order, is_optional, extra_cost) VALUES
		('classic', 'bun',          1, 1, FALSE, 0),
		('classic', 'patty',        1, 2, FALSE, 0),
		('classic', 'lettuce',      1, 3, TRUE,  2.00),
		('classic', 'tomato_slice', 2, 4, TRUE,  1.50),
		('classic', 'onion_ring',   2, 5, TRUE,  1.50),
		('classic', 'pickle',       2, 6, TRUE,  1.00),
		('classic', 'ketchup',      1, 7, TRUE,  0.50),

		('cheeseburger', 'bun',          1, 1, FALSE, 0),
		('cheeseburger', 'patty',        1, 2, FALSE, 0),
		('cheeseburger', 'cheese_slice', 1, 3, TRUE,  4.00),
		('cheeseburger', 'lettuce',      1, 4, TRUE,  2.00),
		('cheeseburger', 'tomato_slice', 2, 5, TRUE,  1.50),
		('cheeseburger', 'ketchup',      1, 6, TRUE,  0.50),
		('cheeseburger', 'mayo',         1, 7, TRUE,  0.50),

		('double_bacon', 'bun',          1, 1, FALSE, 0),
		('double_bacon', 'patty',        2, 2, FALSE, 0),
		('double_bacon', 'cheese_slice', 2, 3, TRUE,  4.00),
		('double_bacon', 'bacon_strip',  3, 4, TRUE,  6.00),
		('double_bacon', 'onion_ring',   2, 5, TRUE,  1.50),
		('double_bacon', 'mayo',         1, 6, TRUE,  0.50)
	ON CONFLICT (recipe_id, ingredient_id) DO NOTHING;
	`

	_, err := db.Exec(seed)
	return err
}
