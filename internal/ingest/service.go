// Package ingest orchestrates the reading acceptance pipeline: signature
// verification, validation, metric derivation, state update, alert
// evaluation, and best-effort durable write-through.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/wildfire-telemetry-service/internal/alert"
	"github.com/couchcryptid/wildfire-telemetry-service/internal/auth"
	"github.com/couchcryptid/wildfire-telemetry-service/internal/domain"
	"github.com/couchcryptid/wildfire-telemetry-service/internal/observability"
	"github.com/couchcryptid/wildfire-telemetry-service/internal/state"
)

// asyncWriteTimeout bounds each background persistence/publish attempt so a
// hung collaborator cannot pile up goroutines forever.
const asyncWriteTimeout = 10 * time.Second

// HistoryStore is the persistence gateway: durable append of accepted
// readings and historical reads. It holds no authoritative state — the
// in-memory store and alert manager are the source of truth for serving.
type HistoryStore interface {
	Append(ctx context.Context, rec domain.HistoryRecord) error
	Recent(ctx context.Context, limit int) ([]domain.HistoryRecord, error)
}

// Publisher fans accepted readings out to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, rec domain.HistoryRecord) error
}

// Result is the caller-visible outcome of an accepted reading.
type Result struct {
	FireRiskIndex int
	Alert         *domain.Alert
}

// StatusView is the full current snapshot served by the status endpoint.
type StatusView struct {
	Nodes  map[string]domain.NodeRecord `json:"nodes"`
	Alerts []domain.Alert               `json:"alerts"`
}

// Service wires the pipeline stages together. The durable write and the
// optional publish happen on background goroutines after the in-memory
// commit; their failures are logged and counted but never fail or block the
// ingest response.
type Service struct {
	verifier  *auth.Verifier
	store     *state.Store
	alerts    *alert.Manager
	history   HistoryStore
	publisher Publisher // nil disables fan-out
	logger    *slog.Logger
	metrics   *observability.Metrics

	ready   atomic.Bool
	pending sync.WaitGroup
}

// New creates a Service. publisher may be nil.
func New(
	verifier *auth.Verifier,
	store *state.Store,
	alerts *alert.Manager,
	history HistoryStore,
	publisher Publisher,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Service {
	return &Service{
		verifier:  verifier,
		store:     store,
		alerts:    alerts,
		history:   history,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// Ingest runs one reading through the pipeline. body must be the exact raw
// bytes received on the wire — the signature is verified against them before
// any parsing. On rejection nothing is written to state or storage.
func (s *Service) Ingest(ctx context.Context, deviceID, signature string, body []byte) (Result, error) {
	start := time.Now()

	if err := s.verifier.Verify(deviceID, signature, body); err != nil {
		s.metrics.AuthFailures.WithLabelValues(authReason(err)).Inc()
		s.logger.Warn("reading rejected", "device_id", deviceID, "reason", err)
		return Result{}, err
	}

	r, err := domain.DecodeReading(body)
	if err != nil {
		s.metrics.ValidationFailures.Inc()
		s.logger.Warn("reading rejected", "device_id", deviceID, "reason", err)
		return Result{}, err
	}

	d := domain.Derive(r)

	s.store.Upsert(r, d)
	s.metrics.NodesTracked.Set(float64(s.store.Len()))

	res := Result{FireRiskIndex: d.FireRiskIndex}
	if a, raised := s.alerts.Evaluate(r, d); raised {
		res.Alert = &a
		s.metrics.AlertsCreated.WithLabelValues(string(a.Type)).Inc()
		s.logger.Info("alert raised",
			"alert_id", a.ID,
			"type", a.Type,
			"node", r.Key().String(),
			"fire_risk_index", d.FireRiskIndex,
		)
	}

	s.metrics.ReadingsAccepted.Inc()
	s.metrics.IngestDuration.Observe(time.Since(start).Seconds())
	s.ready.Store(true)

	s.logger.Debug("reading accepted",
		"device_id", deviceID,
		"node", r.Key().String(),
		"fire_risk_index", d.FireRiskIndex,
	)

	// Durability is best-effort and decoupled from the response path.
	rec := domain.ToHistoryRecord(r, d)
	s.pending.Add(1)
	go s.writeBehind(rec)

	return res, nil
}

// writeBehind performs the durable append and optional publish for one
// accepted reading. Runs outside the request context on purpose: the
// response has already been committed.
func (s *Service) writeBehind(rec domain.HistoryRecord) {
	defer s.pending.Done()

	ctx, cancel := context.WithTimeout(context.Background(), asyncWriteTimeout)
	defer cancel()

	if err := s.history.Append(ctx, rec); err != nil {
		s.metrics.PersistenceErrors.Inc()
		s.logger.Error("history append failed",
			"node", rec.ZoneID+"/"+rec.NodeID, "error", err)
	}

	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, rec); err != nil {
		s.metrics.PublishErrors.Inc()
		s.logger.Error("reading publish failed",
			"node", rec.ZoneID+"/"+rec.NodeID, "error", err)
	}
}

// Status returns the full in-memory snapshot: all node records plus the
// alert list, most recent first.
func (s *Service) Status() StatusView {
	return StatusView{
		Nodes:  s.store.Snapshot(),
		Alerts: s.alerts.List(),
	}
}

// Recent reads the most recent durable records, newest first. Unlike the
// ingest write path, read failures are surfaced to the caller.
func (s *Service) Recent(ctx context.Context, limit int) ([]domain.HistoryRecord, error) {
	return s.history.Recent(ctx, limit)
}

// Acknowledge marks an alert as acknowledged; alert.ErrNotFound for unknown ids.
func (s *Service) Acknowledge(id string) error {
	return s.alerts.Acknowledge(id)
}

// CheckReadiness reports whether the service can usefully accept traffic.
// When the history store supports pinging, an unreachable durable store marks
// the service not ready (in-memory ingest would still work, but history
// reads would fail).
func (s *Service) CheckReadiness(ctx context.Context) error {
	if p, ok := s.history.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Accepted reports whether at least one reading has been accepted.
func (s *Service) Accepted() bool {
	return s.ready.Load()
}

// Drain waits for in-flight background writes, bounded by ctx.
func (s *Service) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.New("timed out waiting for pending writes")
	}
}

// authReason maps a verification failure to its metric label.
func authReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingCredentials):
		return "missing_credentials"
	case errors.Is(err, auth.ErrUnknownDevice):
		return "unknown_device"
	case errors.Is(err, auth.ErrSignatureMismatch):
		return "signature_mismatch"
	default:
		return "other"
	}
}
