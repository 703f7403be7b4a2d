package pagination

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for bruteforce lookups.
var (
	tgBruteforceLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tg_bruteforce_lookups_total",
		Help: "Total bruteforce record lookups by source and result",
	}, []string{"source", "result"})

	tgBruteforcePagesScanned = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tg_bruteforce_pages_scanned",
		Help:    "Pages requested per bruteforce lookup by source",
		Buckets: []float64{1, 2, 5, 10, 25, 50, 100},
	}, []string{"source"})
)

// FindRecord scans getRecords page by page, starting at page 1, for the
// first record whose id equals recordID.
//
// It is the slow fallback for a failed or missing single-record endpoint, so a
// warning is logged before the scan starts. The logger is taken from ctx
// (zerolog.Ctx) and defaults to the global logger.
//
// Records without an id never match, so an empty recordID is never found.
// Returns found=false when an empty page is reached without a match. Errors
// from getRecords are returned unchanged.
func FindRecord[T Identifiable](ctx context.Context, source string, getRecords PageFunc[T], recordID string) (T, bool, error) {
	logger := loggerFrom(ctx)
	logger.Warn().
		Str("source", source).
		Str("record_id", recordID).
		Msg("Direct record fetch unavailable, falling back to bruteforce scan")

	start := time.Now()
	pages := 0
	counted := func(ctx context.Context, pageNumber int) ([]T, error) {
		pages++
		return getRecords(ctx, pageNumber)
	}
	defer func() {
		tgBruteforcePagesScanned.WithLabelValues(source).Observe(float64(pages))
	}()

	seq := Documents(ctx, counted, Config[T]{
		StartPage: DefaultStartPage,
		Match: func(record T) bool {
			id := record.RecordID()
			return id != "" && id == recordID
		},
	})

	for record, err := range seq {
		if err != nil {
			tgBruteforceLookupsTotal.WithLabelValues(source, "error").Inc()
			var zero T
			return zero, false, err
		}

		tgBruteforceLookupsTotal.WithLabelValues(source, "found").Inc()
		logger.Debug().
			Str("source", source).
			Str("record_id", recordID).
			Int("pages", pages).
			Dur("duration", time.Since(start)).
			Msg("Bruteforce scan found record")
		return record, true, nil
	}

	tgBruteforceLookupsTotal.WithLabelValues(source, "not_found").Inc()
	logger.Debug().
		Str("source", source).
		Str("record_id", recordID).
		Int("pages", pages).
		Dur("duration", time.Since(start)).
		Msg("Bruteforce scan exhausted without match")

	var zero T
	return zero, false, nil
}

// loggerFrom returns the logger attached to ctx, even a disabled one.
// Without one it falls back to zerolog.DefaultContextLogger, then to the
// global logger.
func loggerFrom(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx)
	if zerolog.DefaultContextLogger == nil && l == zerolog.Ctx(context.Background()) {
		return &log.Logger
	}
	return l
}
