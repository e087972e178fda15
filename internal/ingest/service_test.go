package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auv-monitor/internal/domain"
	"auv-monitor/internal/stream"
)

type fakeStore struct {
	rules      []domain.AlertRule
	zones      []domain.Zone
	lastAlert  time.Time // zero means no prior alert for any pair
	insertErr  error
	alertErr   error
	txBegun    int
	telemetry  []*domain.TelemetryRecord
	alerts     []*domain.Alert
	historyGot []string
}

func (f *fakeStore) ActiveRules(ctx context.Context) ([]domain.AlertRule, error) {
	return f.rules, nil
}

func (f *fakeStore) ZonesByType(ctx context.Context, zoneType string) ([]domain.Zone, error) {
	return f.zones, nil
}

func (f *fakeStore) AlertExistsSince(ctx context.Context, auvID, ruleID string, since time.Time) (bool, error) {
	f.historyGot = append(f.historyGot, auvID+"/"+ruleID)
	return !f.lastAlert.IsZero() && !f.lastAlert.Before(since), nil
}

func (f *fakeStore) InsertTelemetry(ctx context.Context, rec *domain.TelemetryRecord, raw []byte) (uuid.UUID, error) {
	if f.insertErr != nil {
		return uuid.Nil, f.insertErr
	}
	f.telemetry = append(f.telemetry, rec)
	return uuid.New(), nil
}

func (f *fakeStore) InsertAlert(ctx context.Context, alert *domain.Alert) error {
	if f.alertErr != nil {
		return f.alertErr
	}
	f.alerts = append(f.alerts, alert)
	return nil
}

func (f *fakeStore) RunInTx(ctx context.Context, fn func(tx Store) error) error {
	f.txBegun++
	return fn(f)
}

type published struct {
	channel stream.Channel
	key     string
	event   any
}

type fakePublisher struct {
	events []published
}

func (f *fakePublisher) Publish(ch stream.Channel, key string, event any) {
	f.events = append(f.events, published{channel: ch, key: key, event: event})
}

func sedimentRule(dedupeSec int) domain.AlertRule {
	cfg, _ := json.Marshal(map[string]any{
		"id":                "sediment_high",
		"type":              "threshold",
		"path":              "env.sediment_mg_l",
		"operator":          ">",
		"value":             25,
		"severity":          "high",
		"dedupe_window_sec": dedupeSec,
	})
	return domain.AlertRule{ID: "sediment_high", Config: cfg, Active: true}
}

func validRecord() *domain.TelemetryRecord {
	return &domain.TelemetryRecord{
		Timestamp: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		AUVID:     "AUV-001",
		Position: domain.Position{
			Lat: -14.6572, Lng: -125.4251, DepthM: 4200, Speed: 1.2, Heading: 270,
		},
		Env: domain.Environment{
			TurbidityNTU:       3.1,
			SedimentMgL:        30,
			DissolvedOxygenMgL: 6.5,
			TemperatureC:       1.8,
		},
		Plume:   domain.Plume{ConcentrationMgL: 0.4},
		Battery: domain.Battery{LevelPct: 84, VoltageV: 47.9},
	}
}

func TestIngestGeneratesAlert(t *testing.T) {
	store := &fakeStore{rules: []domain.AlertRule{sedimentRule(300)}}
	pub := &fakePublisher{}
	svc := NewService(store, pub, slog.Default())

	res, err := svc.Ingest(context.Background(), validRecord())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, res.TelemetryID)
	assert.Equal(t, 1, res.AlertsGenerated)
	assert.Equal(t, 1, store.txBegun)
	require.Len(t, store.alerts, 1)

	alert := store.alerts[0]
	assert.Equal(t, "AUV-001", alert.AUVID)
	assert.Equal(t, "sediment_high", alert.RuleID)
	assert.Equal(t, domain.SeverityHigh, alert.Severity)
	assert.Equal(t, "env.sediment_mg_l threshold exceeded", alert.Title)
	assert.Equal(t, "env.sediment_mg_l > 25 (current: 30) at -14.6572,-125.4251", alert.Message)
	require.NotNil(t, alert.TelemetryID)
	assert.Equal(t, res.TelemetryID, *alert.TelemetryID)

	wantPayload, err := json.Marshal(validRecord())
	require.NoError(t, err)
	assert.JSONEq(t, string(wantPayload), string(alert.Payload))

	assert.Equal(t, int64(1), svc.Received.Load())
}

func TestIngestEventOrder(t *testing.T) {
	store := &fakeStore{rules: []domain.AlertRule{sedimentRule(300)}}
	pub := &fakePublisher{}
	svc := NewService(store, pub, slog.Default())

	_, err := svc.Ingest(context.Background(), validRecord())
	require.NoError(t, err)

	// The alert event goes out during the transaction, the telemetry event
	// only after commit.
	require.Len(t, pub.events, 2)
	assert.Equal(t, stream.ChannelAlert, pub.events[0].channel)
	assert.Equal(t, "AUV-001", pub.events[0].key)
	assert.Equal(t, stream.ChannelTelemetry, pub.events[1].channel)
	assert.Equal(t, "AUV-001", pub.events[1].key)

	alertEvt, ok := pub.events[0].event.(domain.AlertEvent)
	require.True(t, ok)
	assert.Equal(t, "env.sediment_mg_l threshold exceeded", alertEvt.Title)

	telEvt, ok := pub.events[1].event.(domain.TelemetryEvent)
	require.True(t, ok)
	assert.Equal(t, "AUV-001", telEvt.AUVID)
}

func TestIngestSkipsRulesWithoutDedupeWindow(t *testing.T) {
	store := &fakeStore{rules: []domain.AlertRule{sedimentRule(0)}}
	pub := &fakePublisher{}
	svc := NewService(store, pub, slog.Default())

	res, err := svc.Ingest(context.Background(), validRecord())
	require.NoError(t, err)

	// The rule triggers but no alert is ever recorded or published.
	assert.Equal(t, 0, res.AlertsGenerated)
	assert.Empty(t, store.alerts)
	assert.Empty(t, store.historyGot)
	require.Len(t, pub.events, 1)
	assert.Equal(t, stream.ChannelTelemetry, pub.events[0].channel)
}

func TestIngestDeduplicatesWithinWindow(t *testing.T) {
	store := &fakeStore{
		rules:     []domain.AlertRule{sedimentRule(300)},
		lastAlert: time.Now().Add(-10 * time.Second),
	}
	pub := &fakePublisher{}
	svc := NewService(store, pub, slog.Default())

	res, err := svc.Ingest(context.Background(), validRecord())
	require.NoError(t, err)

	assert.Equal(t, 0, res.AlertsGenerated)
	assert.Empty(t, store.alerts)
	assert.Equal(t, []string{"AUV-001/sediment_high"}, store.historyGot)

	// Telemetry itself still persists and streams.
	require.Len(t, store.telemetry, 1)
	require.Len(t, pub.events, 1)
	assert.Equal(t, stream.ChannelTelemetry, pub.events[0].channel)
}

func TestIngestPermitsAfterWindowExpired(t *testing.T) {
	store := &fakeStore{
		rules:     []domain.AlertRule{sedimentRule(300)},
		lastAlert: time.Now().Add(-301 * time.Second),
	}
	svc := NewService(store, &fakePublisher{}, slog.Default())

	res, err := svc.Ingest(context.Background(), validRecord())
	require.NoError(t, err)
	assert.Equal(t, 1, res.AlertsGenerated)
}

func TestIngestRejectsInvalidRecord(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, &fakePublisher{}, slog.Default())

	rec := validRecord()
	rec.AUVID = ""

	_, err := svc.Ingest(context.Background(), rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRecord)

	// Nothing touched the store or the streams.
	assert.Equal(t, 0, store.txBegun)
	assert.Empty(t, store.telemetry)
	assert.Equal(t, int64(0), svc.Received.Load())
}

func TestIngestPersistFailure(t *testing.T) {
	store := &fakeStore{
		rules:     []domain.AlertRule{sedimentRule(300)},
		insertErr: errors.New("disk full"),
	}
	pub := &fakePublisher{}
	svc := NewService(store, pub, slog.Default())

	_, err := svc.Ingest(context.Background(), validRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist telemetry")
	assert.Empty(t, pub.events)
	assert.Equal(t, int64(0), svc.Received.Load())
}

func TestIngestAlertPersistFailure(t *testing.T) {
	store := &fakeStore{
		rules:    []domain.AlertRule{sedimentRule(300)},
		alertErr: errors.New("constraint violation"),
	}
	svc := NewService(store, &fakePublisher{}, slog.Default())

	_, err := svc.Ingest(context.Background(), validRecord())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "persist alert for rule sediment_high")
}
