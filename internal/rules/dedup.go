package rules

import (
	"context"
	"fmt"
	"time"
)

// AlertHistory answers whether an alert already exists for an (AUV, rule)
// pair since a given instant.
type AlertHistory interface {
	AlertExistsSince(ctx context.Context, auvID, ruleID string, since time.Time) (bool, error)
}

// Deduper gates alert creation on a sliding time window per (AUV, rule) pair.
//
// The check is point-in-time: two concurrent ingestions for the same pair can
// both pass the gate inside one window and both record an alert. The store's
// transaction does not close that race.
type Deduper struct {
	history AlertHistory
	now     func() time.Time
}

func NewDeduper(history AlertHistory) *Deduper {
	return &Deduper{history: history, now: time.Now}
}

// Permit reports whether a new alert for the pair may be created: true iff no
// prior alert exists with a creation time inside the window.
func (d *Deduper) Permit(ctx context.Context, auvID, ruleID string, window time.Duration) (bool, error) {
	windowStart := d.now().Add(-window)
	exists, err := d.history.AlertExistsSince(ctx, auvID, ruleID, windowStart)
	if err != nil {
		return false, fmt.Errorf("dedup check for %s/%s: %w", auvID, ruleID, err)
	}
	return !exists, nil
}
