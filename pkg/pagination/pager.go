package pagination

import (
	"context"
	"iter"
)

// DefaultStartPage is the first page number requested when none is configured.
const DefaultStartPage = 1

// PageFunc returns one page of records for a 1-based page number.
// Calling it twice with the same page number during one walk should return
// equivalent content.
type PageFunc[T any] func(ctx context.Context, pageNumber int) ([]T, error)

// Config holds pager configuration. The zero value walks every record
// starting at page 1 and stops at the first empty page.
type Config[T any] struct {
	// StartPage is the first page number requested (default: 1)
	StartPage int

	// Exhausted reports whether paging should stop at this page.
	// The exhausting page's records are discarded.
	// Default: the page has zero records.
	Exhausted func(page []T) bool

	// Match selects the records to yield (default: all records)
	Match func(record T) bool
}

// withDefaults fills in unset fields.
func (c Config[T]) withDefaults() Config[T] {
	if c.StartPage <= 0 {
		c.StartPage = DefaultStartPage
	}
	if c.Exhausted == nil {
		c.Exhausted = func(page []T) bool { return len(page) == 0 }
	}
	if c.Match == nil {
		c.Match = func(T) bool { return true }
	}
	return c
}

// Documents returns a lazy sequence of the matching records across all pages.
//
// Pages are requested one at a time as the consumer pulls records, in strictly
// increasing page-number order starting at cfg.StartPage. If getPage fails, the
// error is yielded once with the zero value of T and the sequence ends.
// Ranging over the returned sequence again restarts from cfg.StartPage.
// Debug events go to the logger attached to ctx.
func Documents[T any](ctx context.Context, getPage PageFunc[T], cfg Config[T]) iter.Seq2[T, error] {
	cfg = cfg.withDefaults()
	logger := loggerFrom(ctx)

	return func(yield func(T, error) bool) {
		for pageNumber := cfg.StartPage; ; pageNumber++ {
			page, err := getPage(ctx, pageNumber)
			if err != nil {
				logger.Debug().
					Err(err).
					Int("page", pageNumber).
					Msg("Page fetch failed")
				var zero T
				yield(zero, err)
				return
			}

			if cfg.Exhausted(page) {
				logger.Debug().
					Int("page", pageNumber).
					Msg("Pager exhausted")
				return
			}

			for _, record := range page {
				if !cfg.Match(record) {
					continue
				}
				if !yield(record, nil) {
					return
				}
			}
		}
	}
}

// Collect drains seq into a slice. It stops at the first error and returns
// the records gathered so far together with that error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var records []T
	for record, err := range seq {
		if err != nil {
			return records, err
		}
		records = append(records, record)
	}
	return records, nil
}
