// Package monitoring gathers operational metrics over recent search
// sessions and publishes daily aggregates.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/convocatorias-pro/search-service/internal/db"
	"github.com/convocatorias-pro/search-service/internal/model"
	"github.com/convocatorias-pro/search-service/internal/store"
)

// MetricsSnapshot holds a point-in-time view of search health.
type MetricsSnapshot struct {
	// Session metrics (within lookback window).
	SearchTotal      int     `json:"search_total"`
	SearchCompleted  int     `json:"search_completed"`
	SearchFailed     int     `json:"search_failed"`
	SearchProcessing int     `json:"search_processing"`
	SearchFailRate   float64 `json:"search_fail_rate"`
	ResultsTotal     int     `json:"results_total"`
	AvgResults       float64 `json:"avg_results"`
	AvgProcessingMs  float64 `json:"avg_processing_ms"`
	ZeroResultRate   float64 `json:"zero_result_rate"`

	// Metadata.
	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from the session store.
type Collector struct {
	store store.Store
}

// NewCollector creates a new metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot over the given lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	snap := &MetricsSnapshot{
		LookbackHours: lookbackHours,
		CollectedAt:   time.Now().UTC(),
	}

	cutoff := time.Now().UTC().Add(-time.Duration(lookbackHours) * time.Hour)

	sessions, err := c.store.ListSessions(ctx, store.SessionFilter{Limit: 10000})
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list sessions")
	}

	var totalMs int64
	var finished int
	var zeroResult int
	for _, sess := range sessions {
		if sess.CreatedAt.Before(cutoff) {
			continue
		}
		snap.SearchTotal++
		snap.ResultsTotal += sess.ResultsCount

		switch sess.Status {
		case model.SessionCompleted:
			snap.SearchCompleted++
			if sess.ResultsCount == 0 {
				zeroResult++
			}
		case model.SessionFailed:
			snap.SearchFailed++
		case model.SessionProcessing:
			snap.SearchProcessing++
		}
		if sess.Status != model.SessionProcessing {
			finished++
			totalMs += sess.ProcessingTimeMs
		}
	}

	if finished > 0 {
		snap.SearchFailRate = float64(snap.SearchFailed) / float64(finished)
		snap.AvgProcessingMs = float64(totalMs) / float64(finished)
	}
	if snap.SearchCompleted > 0 {
		snap.AvgResults = float64(snap.ResultsTotal) / float64(snap.SearchCompleted)
		snap.ZeroResultRate = float64(zeroResult) / float64(snap.SearchCompleted)
	}

	return snap, nil
}

// metricsColumns is the column order for the daily aggregate upsert.
var metricsColumns = []string{"day", "searches", "completed", "failed", "results", "avg_processing_ms"}

// PublishDaily upserts the snapshot as today's aggregate row. Re-running on
// the same day overwrites with the newer counters.
func PublishDaily(ctx context.Context, pool db.Pool, snap *MetricsSnapshot) error {
	day := snap.CollectedAt.Truncate(24 * time.Hour)
	rows := [][]any{{
		day, snap.SearchTotal, snap.SearchCompleted, snap.SearchFailed, snap.ResultsTotal, snap.AvgProcessingMs,
	}}
	_, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        "search_metrics_daily",
		Columns:      metricsColumns,
		ConflictKeys: []string{"day"},
	}, rows)
	return eris.Wrap(err, "monitoring: publish daily metrics")
}
