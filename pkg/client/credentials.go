package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Credentials identify a platform user.
// APIKey is an alternative password issued by the web application.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	APIKey   string `json:"api_key,omitempty"`
}

// IsZero reports whether no credentials are set.
func (c Credentials) IsZero() bool {
	return c.Username == "" && c.Password == "" && c.APIKey == ""
}

// secret returns the API key when present, otherwise the password.
func (c Credentials) secret() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	return c.Password
}

// LoadCredentialsFile reads a JSON file of the form
// {"username": "...", "password": "..."}.
// A missing file yields zero Credentials and no error.
func LoadCredentialsFile(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Credentials{}, nil
	}
	if err != nil {
		return Credentials{}, fmt.Errorf("read credentials file: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("parse credentials file %s: %w", path, err)
	}
	return creds, nil
}
