package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	snapshotVersionCurrent = 2
	snapshotVersionV1      = 1
)

// CurrentSchemaVersion is the snapshot version written by [Encode].
const CurrentSchemaVersion = snapshotVersionCurrent

var (
	// ErrInvalidSnapshot is returned when a stored record cannot be decoded.
	ErrInvalidSnapshot = errors.New("invalid session snapshot")
	// ErrPartialCredentials is returned for a snapshot holding one or two of
	// the three tokens.
	ErrPartialCredentials = errors.New("partial credential bundle")
)

// legacySnapshot is the version 1 layout, written before expiry tracking.
type legacySnapshot struct {
	User            *User  `json:"user"`
	AccessToken     string `json:"accessToken"`
	RefreshToken    string `json:"refreshToken"`
	CSRFToken       string `json:"csrfToken"`
	IsAuthenticated bool   `json:"isAuthenticated"`
	IsAdmin         bool   `json:"isAdmin"`
}

type versionProbe struct {
	Version *int `json:"version"`
}

// Encode serializes s at the current schema version.
func Encode(s *Snapshot) ([]byte, error) {
	if s == nil {
		return nil, ErrInvalidSnapshot
	}
	if !s.Anonymous() && !s.Complete() {
		return nil, ErrPartialCredentials
	}

	out := *s
	out.Version = snapshotVersionCurrent
	out.ExpiresAt = out.ExpiresAt.UTC()

	return json.Marshal(&out)
}

// Decode parses a stored record, migrating older versions forward. The
// returned snapshot always has Version == CurrentSchemaVersion.
func Decode(data []byte) (*Snapshot, error) {
	if len(data) == 0 {
		return nil, ErrInvalidSnapshot
	}

	var probe versionProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	version := snapshotVersionV1
	if probe.Version != nil {
		version = *probe.Version
	}

	var s *Snapshot
	switch version {
	case snapshotVersionCurrent:
		s = &Snapshot{}
		if err := json.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
		}
	case snapshotVersionV1:
		var legacy legacySnapshot
		if err := json.Unmarshal(data, &legacy); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
		}
		s = &Snapshot{
			User:            legacy.User,
			AccessToken:     legacy.AccessToken,
			RefreshToken:    legacy.RefreshToken,
			CSRFToken:       legacy.CSRFToken,
			ExpiresAt:       time.Time{},
			IsAuthenticated: legacy.IsAuthenticated,
			IsAdmin:         legacy.IsAdmin,
		}
	default:
		return nil, fmt.Errorf("%w: unsupported session schema version %d", ErrInvalidSnapshot, version)
	}

	if !s.Anonymous() && !s.Complete() {
		return nil, ErrPartialCredentials
	}
	s.Version = snapshotVersionCurrent

	return s, nil
}
