// Package token loads the eduVULCAN credential file.
//
// The file is produced by an external login helper and looks like:
//
//	{
//	  "jwt": "...",
//	  "tenant": "warszawa",
//	  "jwt_payload": {"name": "Jan Kowalski", "uid": "...", "caps": "[\"EDUVULCAN_PREMIUM\"]"}
//	}
package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"
)

// PremiumCap is the only capability set accepted by the mobile API.
const PremiumCap = "EDUVULCAN_PREMIUM"

var (
	ErrNotFound        = errors.New("token file not found")
	ErrMissingFields   = errors.New("token file missing required fields")
	ErrPremiumRequired = errors.New("eduVULCAN premium required")
)

// Token is a validated credential.
type Token struct {
	JWT    string
	Tenant string
	Name   string
	UID    string
	Caps   []string
}

type file struct {
	JWT        string `json:"jwt"`
	Tenant     string `json:"tenant"`
	JWTPayload *struct {
		Name string          `json:"name"`
		UID  string          `json:"uid"`
		Caps json.RawMessage `json:"caps"`
	} `json:"jwt_payload"`
}

// Load reads and validates the token file at path.
func Load(path string) (*Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read token file: %w", err)
	}
	return Parse(data)
}

// Parse validates a token document.
func Parse(data []byte) (*Token, error) {
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode token file: %w", err)
	}
	if strings.TrimSpace(f.JWT) == "" || strings.TrimSpace(f.Tenant) == "" {
		return nil, fmt.Errorf("%w: jwt or tenant", ErrMissingFields)
	}
	if f.JWTPayload == nil || strings.TrimSpace(f.JWTPayload.Name) == "" || strings.TrimSpace(f.JWTPayload.UID) == "" {
		return nil, fmt.Errorf("%w: payload name or uid", ErrMissingFields)
	}
	caps, err := parseCaps(f.JWTPayload.Caps)
	if err != nil || !slices.Equal(caps, []string{PremiumCap}) {
		return nil, ErrPremiumRequired
	}
	return &Token{
		JWT:    f.JWT,
		Tenant: f.Tenant,
		Name:   f.JWTPayload.Name,
		UID:    f.JWTPayload.UID,
		Caps:   caps,
	}, nil
}

// parseCaps accepts the capability list either as a JSON array or as a
// string holding one, which is how the login helper writes it.
func parseCaps(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, errors.New("caps missing")
	}
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		raw = json.RawMessage(encoded)
	}
	var caps []string
	if err := json.Unmarshal(raw, &caps); err != nil {
		return nil, err
	}
	return caps, nil
}

// Loader loads the token from a fixed path.
type Loader struct {
	Path string
}

func (l Loader) Load() (*Token, error) {
	return Load(l.Path)
}
