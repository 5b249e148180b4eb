package foodlog

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
)

// FavoritesSize is the most foods FavoritesForCategory returns.
const FavoritesSize = 3

// Catalog returns the stored catalog, or the seed catalog if none is stored.
func (e *Engine) Catalog(ctx context.Context) (Catalog, error) {
	var c Catalog
	ok, err := e.load(ctx, KeyFoodMap, &c)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if !ok {
		return e.seed, nil
	}
	return c, nil
}

// ReverseIndex maps every food in the catalog to its category. It is derived
// from the catalog on each call rather than read from foodReverseMap.
func (e *Engine) ReverseIndex(ctx context.Context) (map[string]Category, error) {
	c, err := e.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return c.ReverseIndex(), nil
}

// AllFoodNames lists every food in the catalog in catalog order.
func (e *Engine) AllFoodNames(ctx context.Context) ([]string, error) {
	c, err := e.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return c.Names(), nil
}

// SearchFoods runs SearchCatalog over the catalog's food names.
func (e *Engine) SearchFoods(ctx context.Context, query string) ([]string, error) {
	if query == "" {
		return []string{}, nil
	}
	names, err := e.AllFoodNames(ctx)
	if err != nil {
		return nil, err
	}
	return SearchCatalog(query, names), nil
}

// AddCustomFood adds food to cat and rewrites both the catalog and the stored
// reverse index. A food may belong to one category only.
func (e *Engine) AddCustomFood(ctx context.Context, cat Category, food string) error {
	food = strings.TrimSpace(food)
	if food == "" {
		return ErrEmptyName
	}
	if _, ok := ParseCategory(string(cat)); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
	}

	unlock := e.locks.lock(KeyFoodMap, KeyReverseMap)
	defer unlock()

	c, err := e.Catalog(ctx)
	if err != nil {
		return err
	}
	if owner, ok := c.CategoryOf(food); ok {
		return fmt.Errorf("%w: %q is in %s", ErrFoodExists, food, owner)
	}

	c = c.with(cat, food)
	if err := e.save(ctx, KeyFoodMap, c); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	if err := e.save(ctx, KeyReverseMap, c.ReverseIndex()); err != nil {
		return fmt.Errorf("save reverse index: %w", err)
	}
	return nil
}

// FavoritesForCategory returns up to three foods from cat. Categories with
// three or fewer foods are returned whole in catalog order. Larger categories
// yield a uniformly random 3-subset, so results differ between calls.
// Unknown or empty categories yield an empty list.
func (e *Engine) FavoritesForCategory(ctx context.Context, cat Category) ([]string, error) {
	c, err := e.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	foods := c.Foods(cat)
	if foods == nil {
		return []string{}, nil
	}
	if len(foods) <= FavoritesSize {
		return foods, nil
	}
	e.shuffle(foods)
	return foods[:FavoritesSize], nil
}

// shuffle is a Fisher-Yates shuffle; every permutation is equally likely.
func (e *Engine) shuffle(s []string) {
	intN := rand.IntN
	if e.rand != nil {
		e.randMu.Lock()
		defer e.randMu.Unlock()
		intN = e.rand.IntN
	}
	for i := len(s) - 1; i > 0; i-- {
		j := intN(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

// SearchCatalog returns the names containing query, ignoring case. An empty
// query matches nothing.
func SearchCatalog(query string, names []string) []string {
	matches := []string{}
	if query == "" {
		return matches
	}
	q := strings.ToLower(query)
	for _, name := range names {
		if strings.Contains(strings.ToLower(name), q) {
			matches = append(matches, name)
		}
	}
	return matches
}
