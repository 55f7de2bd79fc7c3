package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Erikli15/hamburger-machine/internal/models"
	"github.com/jmoiron/sqlx"
)

// RecipeRepository is a read-only view of recipe data, which is owned by the
// recipe-management collaborator.
type RecipeRepository interface {
	FindByID(ctx context.Context, id string) (*models.Recipe, error)
	Components(ctx context.Context, recipeID string) ([]*models.RecipeComponent, error)
}

type recipeRepository struct {
	db *sqlx.DB
}

func NewRecipeRepository(db *sqlx.DB) RecipeRepository {
	return &recipeRepository{db: db}
}

func (r *recipeRepository) FindByID(ctx context.Context, id string) (*models.Recipe, error) {
	var recipe models.Recipe
	query := `SELECT id, name, base_price, prep_time_seconds, is_available, created_at
	          FROM recipes WHERE id = $1 AND is_available`

	err := r.db.GetContext(ctx, &recipe, query, id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", models.ErrRecipeNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find recipe: %w", err)
	}

	return &recipe, nil
}

func (r *recipeRepository) Components(ctx context.Context, recipeID string) ([]*models.RecipeComponent, error) {
	var components []*models.RecipeComponent
	query := `
		SELECT recipe_id, ingredient_id, quantity, step_order, is_optional, extra_cost
		FROM recipe_components
		WHERE recipe_id = $1
		ORDER BY step_order
	`

	if err := r.db.SelectContext(ctx, &components, query, recipeID); err != nil {
		return nil, fmt.Errorf("failed to find recipe components: %w", err)
	}

	return components, nil
}
