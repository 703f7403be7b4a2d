package test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/Sternrassler/teselagen-client/internal/testutil"
	"github.com/Sternrassler/teselagen-client/pkg/client"
)

const base = "/test/cli-api"

func newTestClient(t *testing.T, mock *testutil.MockPlatform) *Client {
	t.Helper()
	cfg := client.DefaultConfig()
	cfg.HostURL = mock.URL()
	cfg.InitialBackoff = time.Millisecond
	cfg.Credentials = client.Credentials{Username: testutil.DefaultUsername, Password: testutil.DefaultPassword}

	api, err := client.New(cfg)
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	t.Cleanup(func() { api.Close() })
	return New(api)
}

func jsonHandler(v any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}
}
