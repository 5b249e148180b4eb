package foodlog

import (
	"context"
	"fmt"
	"time"
)

// RecordCarbLapse stores the local midnight of today as the last lapse.
func (e *Engine) RecordCarbLapse(ctx context.Context, today time.Time) error {
	unlock := e.locks.lock(KeyLastCarbDate)
	defer unlock()

	if err := e.kv.Set(ctx, KeyLastCarbDate, startOfDay(today).Format(time.RFC3339)); err != nil {
		return fmt.Errorf("record carb lapse: %w", err)
	}
	return nil
}

// LastCarbLapse returns the stored lapse. ok is false if none was recorded.
func (e *Engine) LastCarbLapse(ctx context.Context) (time.Time, bool, error) {
	raw, ok, err := e.kv.Get(ctx, KeyLastCarbDate)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("load last carb date: %w", err)
	}
	if !ok {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		e.logger.Warn("corrupt stored document", "key", KeyLastCarbDate, "error", err)
		return time.Time{}, false, &CorruptStateError{Key: KeyLastCarbDate, Err: err}
	}
	return t, true, nil
}

// CarbStreakDays counts whole calendar days from the last lapse to today.
// It is 0 when no lapse was recorded or the lapse was today.
//
// Days are compared by date components, so DST changes and zone changes
// between recording and reading do not move the count.
func (e *Engine) CarbStreakDays(ctx context.Context, today time.Time) (int, error) {
	last, ok, err := e.LastCarbLapse(ctx)
	if err != nil || !ok {
		return 0, err
	}
	if isLegacyInstant(last) {
		last = last.In(today.Location())
	}
	days := civilDay(today) - civilDay(last)
	if days < 0 {
		return 0, nil
	}
	return int(days), nil
}

// isLegacyInstant matches timestamps from the older app, which stored local
// midnight as a UTC instant. A UTC value that is not itself midnight cannot
// have been written by RecordCarbLapse, so it is read in today's zone instead.
func isLegacyInstant(t time.Time) bool {
	_, offset := t.Zone()
	return offset == 0 && !t.Equal(startOfDay(t))
}
