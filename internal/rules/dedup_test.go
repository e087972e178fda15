package rules

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistory struct {
	lastAlert time.Time // zero means no prior alert
	err       error

	gotAUV   string
	gotRule  string
	gotSince time.Time
}

func (f *fakeHistory) AlertExistsSince(ctx context.Context, auvID, ruleID string, since time.Time) (bool, error) {
	f.gotAUV, f.gotRule, f.gotSince = auvID, ruleID, since
	if f.err != nil {
		return false, f.err
	}
	return !f.lastAlert.IsZero() && !f.lastAlert.Before(since), nil
}

func TestDeduperPermit(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		lastAlert time.Time
		window    time.Duration
		want      bool
	}{
		{"no prior alert", time.Time{}, 300 * time.Second, true},
		{"prior alert inside window", now.Add(-1 * time.Second), 300 * time.Second, false},
		{"prior alert at window boundary", now.Add(-300 * time.Second), 300 * time.Second, false},
		{"prior alert outside window", now.Add(-301 * time.Second), 300 * time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hist := &fakeHistory{lastAlert: tt.lastAlert}
			d := NewDeduper(hist)
			d.now = func() time.Time { return now }

			got, err := d.Permit(context.Background(), "AUV-001", "sediment_high", tt.window)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, "AUV-001", hist.gotAUV)
			assert.Equal(t, "sediment_high", hist.gotRule)
			assert.Equal(t, now.Add(-tt.window), hist.gotSince)
		})
	}
}

func TestDeduperHistoryError(t *testing.T) {
	d := NewDeduper(&fakeHistory{err: errors.New("timeout")})
	_, err := d.Permit(context.Background(), "AUV-001", "sediment_high", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dedup check for AUV-001/sediment_high")
}
