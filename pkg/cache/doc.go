// Package cache keeps TeselaGen GET responses in Redis so repeated page
// walks and lookups can be revalidated instead of downloaded again.
//
// The client only creates a Manager when it is given a Redis client. Keys
// carry the active laboratory and a fingerprint of the session token, so
// entries are never shared between labs or users:
//
//	tg:build/cli-api/aliquots:pageNumber=2:pageSize=100:lab=3:tok=9f86d081884c
//
// An entry expires at the Cache-Control max-age, else at the Expires header,
// else after DefaultTTL. no-store responses are skipped. Entries with an ETag
// or Last-Modified are revalidated; a 304 extends the entry and its body is
// served as the response.
//
// A successful POST, PUT or DELETE makes the client call Invalidate on the
// collection it touched, e.g. creating an experiment clears every cached
// page of /test/cli-api/experiments.
//
// Metrics: tg_cache_hits_total{layer}, tg_cache_misses_total,
// tg_cache_size_bytes{layer}, tg_cache_invalidations_total,
// tg_conditional_requests_total, tg_304_responses_total and
// tg_cache_errors_total{operation}.
package cache
