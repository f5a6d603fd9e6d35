package processor

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/luongdev/rtcqos/pkg/exporter"
	"github.com/luongdev/rtcqos/pkg/logger"
	"github.com/luongdev/rtcqos/pkg/stats"
	"github.com/luongdev/rtcqos/pkg/store"
)

// SessionProcessor ties stored captures to the extraction pipeline and the
// metrics exporter.
type SessionProcessor interface {
	// StoreLocal validates and stores the local capture of a session
	StoreLocal(ctx context.Context, sessionID string, capture *stats.RawCapture) error

	// StoreRemote validates and appends a remote capture, returning its index
	StoreRemote(ctx context.Context, sessionID string, capture *stats.RawCapture) (int, error)

	// Report runs the pipeline over the stored captures. When export is set
	// every peer's metrics are also handed to the exporter.
	Report(ctx context.Context, sessionID string, export bool) (*Report, error)

	// Delete drops the stored captures and exported series of a session
	Delete(ctx context.Context, sessionID string) error
}

// ErrEmptyCapture is returned for captures without a single poll.
var ErrEmptyCapture = errors.New("capture has no stats")

type sessionProcessor struct {
	store     store.CaptureStore
	extractor Extractor
	exporter  exporter.MetricsExporter
	filter    stats.Filter
	ttl       time.Duration
}

// NewSessionProcessor creates a session processor. filter is the allow-list
// applied to every capture; ttl bounds how long captures are kept.
func NewSessionProcessor(
	captureStore store.CaptureStore,
	extractor Extractor,
	metricsExporter exporter.MetricsExporter,
	filter stats.Filter,
	ttl time.Duration,
) SessionProcessor {
	if metricsExporter == nil {
		metricsExporter = exporter.NewNopExporter()
	}
	return &sessionProcessor{
		store:     captureStore,
		extractor: extractor,
		exporter:  metricsExporter,
		filter:    filter,
		ttl:       ttl,
	}
}

func (p *sessionProcessor) StoreLocal(ctx context.Context, sessionID string, capture *stats.RawCapture) error {
	if capture == nil || len(capture.Stats) == 0 {
		return ErrEmptyCapture
	}
	if err := p.store.SetLocal(ctx, sessionID, capture, p.ttl); err != nil {
		return errors.Wrapf(err, "store local capture of %s", sessionID)
	}

	logger.DebugWithFields(map[string]interface{}{
		"session_id": sessionID,
		"polls":      len(capture.Stats),
	}, "Stored local capture")
	return nil
}

func (p *sessionProcessor) StoreRemote(ctx context.Context, sessionID string, capture *stats.RawCapture) (int, error) {
	if capture == nil || len(capture.Stats) == 0 {
		return 0, ErrEmptyCapture
	}
	idx, err := p.store.AppendRemote(ctx, sessionID, capture, p.ttl)
	if err != nil {
		return 0, errors.Wrapf(err, "store remote capture of %s", sessionID)
	}

	logger.DebugWithFields(map[string]interface{}{
		"session_id": sessionID,
		"peer":       RemotePeerKey(idx),
		"polls":      len(capture.Stats),
	}, "Stored remote capture")
	return idx, nil
}

func (p *sessionProcessor) Report(ctx context.Context, sessionID string, export bool) (*Report, error) {
	sc, err := p.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	report := p.extractor.ExtractRaw(sc.Local, sc.Remotes, p.filter)

	logger.InfoWithFields(map[string]interface{}{
		"session_id": sessionID,
		"peers":      report.Len(),
	}, "Session report computed")

	if export {
		for _, peer := range report.Peers() {
			m, _ := report.Get(peer)
			if err := p.exporter.ExportMetrics(ctx, sessionID, peer, m); err != nil {
				logger.WarnWithFields(map[string]interface{}{
					"session_id": sessionID,
					"peer":       peer,
					"error":      err.Error(),
				}, "Failed to export peer metrics")
			}
		}
	}
	return report, nil
}

func (p *sessionProcessor) Delete(ctx context.Context, sessionID string) error {
	if err := p.store.Delete(ctx, sessionID); err != nil {
		return errors.Wrapf(err, "delete session %s", sessionID)
	}
	return p.exporter.Forget(ctx, sessionID)
}
