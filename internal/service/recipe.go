package service

import (
	"fmt"

	"github.com/Erikli15/hamburger-machine/internal/models"
)

// resolveRequirements applies an order's customizations to the recipe's
// component list and returns the ingredient quantities to debit, in step
// order. A customization count overrides the component default: zero removes
// an optional ingredient, higher counts add extras. Customizations naming
// ingredients outside the recipe are rejected rather than silently dropped.
func resolveRequirements(components []*models.RecipeComponent, customizations models.Customizations) ([]models.IngredientRequirement, error) {
	byIngredient := make(map[string]*models.RecipeComponent, len(components))
	for _, c := range components {
		byIngredient[c.IngredientID] = c
	}

	for name := range customizations {
		if _, ok := byIngredient[name]; !ok {
			return nil, fmt.Errorf("%w: customization %q does not match any recipe ingredient", models.ErrUnknownIngredient, name)
		}
	}

	requirements := make([]models.IngredientRequirement, 0, len(components))
	for _, c := range components {
		quantity := c.Quantity
		if count, ok := customizations[c.IngredientID]; ok {
			if count == 0 && !c.IsOptional {
				return nil, fmt.Errorf("ingredient %s cannot be removed from this recipe", c.IngredientID)
			}
			quantity = count
		}
		if quantity <= 0 {
			continue
		}
		requirements = append(requirements, models.IngredientRequirement{
			IngredientID: c.IngredientID,
			Quantity:     quantity,
		})
	}

	return requirements, nil
}

// customizationSurcharge prices the extras above the recipe defaults.
func customizationSurcharge(components []*models.RecipeComponent, customizations models.Customizations) float64 {
	byIngredient := make(map[string]*models.RecipeComponent, len(components))
	for _, c := range components {
		byIngredient[c.IngredientID] = c
	}

	var surcharge float64
	for name, count := range customizations {
		c, ok := byIngredient[name]
		if !ok {
			continue
		}
		if extra := count - c.Quantity; extra > 0 {
			surcharge += float64(extra) * c.ExtraCost
		}
	}

	return surcharge
}
