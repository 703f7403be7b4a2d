package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every cache key written by this package.
const KeyPrefix = "tg"

// CacheKey identifies a cached platform response.
type CacheKey struct {
	// Endpoint is the request path (e.g., "/build/cli-api/aliquots")
	Endpoint string

	// QueryParams are the request query parameters
	QueryParams url.Values

	// LabID is the active laboratory ("" for the Common lab)
	LabID string

	// Token is a fingerprint of the session token, see Fingerprint
	Token string
}

// String generates a deterministic cache key string.
// Format: tg:endpoint:query1=a,b:query2=c:lab=3:tok=abcdef012345
//
// Example:
//
//	tg:build/cli-api/aliquots:pageNumber=1:pageSize=100:lab=3:tok=9f86d081884c
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Sorted for determinism; repeated params (ids[]) keep their order.
	if len(k.QueryParams) > 0 {
		keys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, strings.Join(k.QueryParams[key], ",")))
		}
	}

	if k.LabID != "" {
		parts = append(parts, "lab="+k.LabID)
	}
	if k.Token != "" {
		parts = append(parts, "tok="+k.Token)
	}

	return strings.Join(parts, ":")
}

// Fingerprint returns a short, non-reversible digest of a session token.
// Returns "" for an empty token.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])[:12]
}
