package foodlog

import (
	"context"
	"fmt"
	"slices"
)

// Entries maps a YYYY-MM-DD day to the foods logged that day in insertion order.
type Entries map[string][]string

func (e *Engine) loadEntries(ctx context.Context) (Entries, error) {
	var entries Entries
	if _, err := e.load(ctx, KeyEntries, &entries); err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	if entries == nil {
		entries = Entries{}
	}
	return entries, nil
}

// AddEntry logs food on date. It reports false, and writes nothing, when food
// is already logged that day. Matching is exact and case-sensitive.
func (e *Engine) AddEntry(ctx context.Context, date, food string) (bool, error) {
	if _, err := ParseDay(date); err != nil {
		return false, err
	}
	if food == "" {
		return false, ErrEmptyName
	}

	unlock := e.locks.lock(KeyEntries)
	defer unlock()

	entries, err := e.loadEntries(ctx)
	if err != nil {
		return false, err
	}
	if slices.Contains(entries[date], food) {
		return false, nil
	}
	entries[date] = append(entries[date], food)
	if err := e.save(ctx, KeyEntries, entries); err != nil {
		return false, fmt.Errorf("add entry: %w", err)
	}
	return true, nil
}

// DeleteEntry removes food from date, keeping the order of the other foods.
// It reports false, and writes nothing, when food was not logged that day.
func (e *Engine) DeleteEntry(ctx context.Context, date, food string) (bool, error) {
	if _, err := ParseDay(date); err != nil {
		return false, err
	}

	unlock := e.locks.lock(KeyEntries)
	defer unlock()

	entries, err := e.loadEntries(ctx)
	if err != nil {
		return false, err
	}
	i := slices.Index(entries[date], food)
	if i < 0 {
		return false, nil
	}
	entries[date] = slices.Delete(entries[date], i, i+1)
	if err := e.save(ctx, KeyEntries, entries); err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	return true, nil
}

// EntriesForDay returns the foods logged on date in the order they were added.
func (e *Engine) EntriesForDay(ctx context.Context, date string) ([]string, error) {
	if _, err := ParseDay(date); err != nil {
		return nil, err
	}
	entries, err := e.loadEntries(ctx)
	if err != nil {
		return nil, err
	}
	foods := slices.Clone(entries[date])
	if foods == nil {
		foods = []string{}
	}
	return foods, nil
}

func (e *Engine) CountForDay(ctx context.Context, date string) (int, error) {
	foods, err := e.EntriesForDay(ctx, date)
	if err != nil {
		return 0, err
	}
	return len(foods), nil
}

// ListUniqueLast7Days returns every food logged during the seven days ending
// on asOf, each once. Foods from later days come first; within a day the log
// order is kept.
func (e *Engine) ListUniqueLast7Days(ctx context.Context, asOf string) ([]string, error) {
	days, err := window(asOf, WindowDays)
	if err != nil {
		return nil, err
	}
	entries, err := e.loadEntries(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	foods := []string{}
	for _, day := range days {
		for _, food := range entries[day] {
			if _, ok := seen[food]; ok {
				continue
			}
			seen[food] = struct{}{}
			foods = append(foods, food)
		}
	}
	return foods, nil
}

func (e *Engine) CountUniqueLast7Days(ctx context.Context, asOf string) (int, error) {
	foods, err := e.ListUniqueLast7Days(ctx, asOf)
	if err != nil {
		return 0, err
	}
	return len(foods), nil
}
