package client

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Sternrassler/teselagen-client/internal/testutil"
)

func TestLogin(t *testing.T) {
	tests := []struct {
		name      string
		creds     Credentials
		expiresIn string
		wantErr   error
		wantBody  map[string]string
	}{
		{
			name:     "password",
			creds:    Credentials{Username: testutil.DefaultUsername, Password: testutil.DefaultPassword},
			wantBody: map[string]string{"username": testutil.DefaultUsername, "password": testutil.DefaultPassword, "expiresIn": "1d"},
		},
		{
			name:      "api key wins over password",
			creds:     Credentials{Username: "bot@example.com", Password: "wrong", APIKey: "api-key"},
			expiresIn: "8h",
			wantBody:  map[string]string{"username": "bot@example.com", "password": "api-key", "expiresIn": "8h"},
		},
		{
			name:    "missing password",
			creds:   Credentials{Username: testutil.DefaultUsername},
			wantErr: ErrMissingCredentials,
		},
		{
			name:    "rejected credentials",
			creds:   Credentials{Username: testutil.DefaultUsername, Password: "bad"},
			wantErr: ErrUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockPlatform()
			defer mock.Close()
			mock.Users["bot@example.com"] = "api-key"

			c, err := New(testConfig(mock))
			if err != nil {
				t.Fatal(err)
			}

			err = c.Login(context.Background(), tt.creds, tt.expiresIn)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Login() error = %v, want %v", err, tt.wantErr)
				}
				if c.Token() != "" {
					t.Error("token must stay empty after a failed login")
				}
				return
			}
			if err != nil {
				t.Fatalf("Login() error = %v", err)
			}
			if c.Token() != testutil.DefaultToken {
				t.Errorf("Token() = %q, want %q", c.Token(), testutil.DefaultToken)
			}

			reqs := mock.RequestsTo("/design/cli-api/public/auth")
			if len(reqs) != 1 {
				t.Fatalf("auth requests = %d, want 1", len(reqs))
			}
			var body map[string]string
			if err := json.Unmarshal(reqs[0].Body, &body); err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(body, tt.wantBody) {
				t.Errorf("auth body = %v, want %v", body, tt.wantBody)
			}
		})
	}
}

func TestEnsureLogin(t *testing.T) {
	mock := testutil.NewMockPlatform()
	defer mock.Close()

	cfg := testConfig(mock)
	cfg.Credentials = Credentials{Username: testutil.DefaultUsername, Password: testutil.DefaultPassword}
	c, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	info, err := c.GetAPIInfo(context.Background())
	if err != nil {
		t.Fatalf("GetAPIInfo() error = %v", err)
	}
	if info != "TeselaGen CLI API" {
		t.Errorf("GetAPIInfo() = %q", info)
	}
	if c.Token() != testutil.DefaultToken {
		t.Error("EnsureLogin should have stored the token")
	}

	// Already logged in: no second auth call.
	if _, err := c.GetAPIInfo(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := len(mock.RequestsTo("/design/cli-api/public/auth")); n != 1 {
		t.Errorf("auth requests = %d, want 1", n)
	}
}

func TestEnsureLogin_BadCredentials(t *testing.T) {
	mock := testutil.NewMockPlatform()
	defer mock.Close()

	cfg := testConfig(mock)
	cfg.Credentials = Credentials{Username: testutil.DefaultUsername, Password: "bad"}
	c, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	err = c.EnsureLogin(context.Background())
	if !errors.Is(err, ErrNotAuthenticated) || !errors.Is(err, ErrUnauthorized) {
		t.Errorf("EnsureLogin() error = %v, want ErrNotAuthenticated wrapping ErrUnauthorized", err)
	}
}

func TestLogout(t *testing.T) {
	mock := testutil.NewMockPlatform()
	defer mock.Close()

	c := newTestClient(t, mock)
	creds := Credentials{Username: testutil.DefaultUsername, Password: testutil.DefaultPassword}

	if err := c.Logout(context.Background(), creds); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if c.Token() != "" {
		t.Error("Logout() must drop the local token")
	}

	reqs := mock.RequestsTo("/design/cli-api/public/auth")
	if len(reqs) != 1 {
		t.Fatalf("auth requests = %d, want 1", len(reqs))
	}
	var body map[string]string
	json.Unmarshal(reqs[0].Body, &body)
	if body["expiresIn"] != "1s" {
		t.Errorf("expiresIn = %q, want 1s", body["expiresIn"])
	}
	if reqs[0].Header.Get(DefaultAPITokenName) != "" {
		t.Error("the short-lived token request must not carry the old token")
	}
}

func TestLogout_NoCredentials(t *testing.T) {
	mock := testutil.NewMockPlatform()
	defer mock.Close()

	c := newTestClient(t, mock)
	if err := c.Logout(context.Background(), Credentials{}); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("Logout() error = %v, want ErrMissingCredentials", err)
	}
	if c.Token() != "" {
		t.Error("token must be dropped even when logout fails")
	}
}

func TestPublicEndpoints(t *testing.T) {
	mock := testutil.NewMockPlatform()
	defer mock.Close()

	c, err := New(testConfig(mock))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	status, err := c.GetServerStatus(ctx)
	if err != nil {
		t.Fatalf("GetServerStatus() error = %v", err)
	}
	if status != "Server is up" {
		t.Errorf("GetServerStatus() = %q", status)
	}

	out, err := c.Register(ctx, "new@example.com", "pw")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if out["id"] != "1" {
		t.Errorf("Register() = %v", out)
	}
	reqs := mock.RequestsTo("/design/register")
	if len(reqs) != 1 {
		t.Fatalf("register requests = %d, want 1", len(reqs))
	}
	var body map[string]string
	json.Unmarshal(reqs[0].Body, &body)
	if body["email"] != "new@example.com" || body["passwordConfirm"] != "pw" {
		t.Errorf("register body = %v", body)
	}
}

func TestGetCurrentUser(t *testing.T) {
	mock := testutil.NewMockPlatform()
	defer mock.Close()

	c := newTestClient(t, mock)
	user, err := c.GetCurrentUser(context.Background())
	if err != nil {
		t.Fatalf("GetCurrentUser() error = %v", err)
	}
	if user["username"] != testutil.DefaultUsername {
		t.Errorf("GetCurrentUser() = %v", user)
	}
}

func TestSelectLaboratory(t *testing.T) {
	tests := []struct {
		name    string
		sel     LabSelector
		wantLab string
		wantErr error
	}{
		{name: "by name", sel: LabSelector{Name: "Strains"}, wantLab: "3"},
		{name: "by numeric id", sel: LabSelector{ID: "5"}, wantLab: "5"},
		{name: "id wins over name", sel: LabSelector{Name: "Strains", ID: "5"}, wantLab: "5"},
		{name: "common unselects", sel: LabSelector{Name: "COMMON"}, wantLab: ""},
		{name: "unknown lab", sel: LabSelector{Name: "Nope"}, wantErr: ErrLabNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockPlatform()
			defer mock.Close()
			mock.Labs = []map[string]any{
				{"id": 3, "name": "Strains"},
				{"id": "5", "name": "Enzymes"},
			}

			c := newTestClient(t, mock)
			c.labID = "1"

			_, err := c.SelectLaboratory(context.Background(), tt.sel)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("SelectLaboratory() error = %v, want %v", err, tt.wantErr)
				}
				if c.ActiveLab() != "1" {
					t.Error("a failed selection must keep the previous lab")
				}
				return
			}
			if err != nil {
				t.Fatalf("SelectLaboratory() error = %v", err)
			}
			if c.ActiveLab() != tt.wantLab {
				t.Errorf("ActiveLab() = %q, want %q", c.ActiveLab(), tt.wantLab)
			}
		})
	}
}

func TestSelectLaboratory_EmptySelector(t *testing.T) {
	c, err := New(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.SelectLaboratory(context.Background(), LabSelector{}); err == nil {
		t.Error("empty selector should fail")
	}
}

func TestLoadCredentialsFile(t *testing.T) {
	dir := t.TempDir()

	creds, err := LoadCredentialsFile(filepath.Join(dir, "missing"))
	if err != nil || !creds.IsZero() {
		t.Errorf("missing file = %+v, %v, want zero and nil", creds, err)
	}

	valid := filepath.Join(dir, ".credentials")
	os.WriteFile(valid, []byte(`{"username": "u@example.com", "password": "pw"}`), 0o600)
	creds, err = LoadCredentialsFile(valid)
	if err != nil {
		t.Fatalf("LoadCredentialsFile() error = %v", err)
	}
	if creds.Username != "u@example.com" || creds.Password != "pw" {
		t.Errorf("LoadCredentialsFile() = %+v", creds)
	}

	invalid := filepath.Join(dir, "broken")
	os.WriteFile(invalid, []byte(`{"username":`), 0o600)
	if _, err := LoadCredentialsFile(invalid); err == nil {
		t.Error("invalid JSON should fail")
	}
}
