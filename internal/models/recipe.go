package models

import "time"

// Recipe is a read-only view of a burger recipe. Recipes are owned by the
// recipe-management collaborator; this service never writes them.
type Recipe struct {
	ID              string    `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	BasePrice       float64   `db:"base_price" json:"base_price"`
	PrepTimeSeconds int       `db:"prep_time_seconds" json:"prep_time_seconds"`
	IsAvailable     bool      `db:"is_available" json:"is_available"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// RecipeComponent is one ingredient line of a recipe.
type RecipeComponent struct {
	RecipeID     string  `db:"recipe_id" json:"recipe_id"`
	IngredientID string  `db:"ingredient_id" json:"ingredient_id"`
	Quantity     int     `db:"quantity" json:"quantity"`
	StepOrder    int     `db:"step_order" json:"step_order"`
	IsOptional   bool    `db:"is_optional" json:"is_optional"`
	ExtraCost    float64 `db:"extra_cost" json:"extra_cost"`
}

// IngredientRequirement is a resolved (ingredient, quantity) pair for one
// order after customizations are applied.
type IngredientRequirement struct {
	IngredientID string
	Quantity     int
}
