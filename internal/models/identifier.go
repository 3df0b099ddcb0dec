package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// TempPrefix помечает временные идентификаторы при отображении
const TempPrefix = "TEMP-"

// ErrInvalidIdentifier indicates that identifier input could not be parsed
var ErrInvalidIdentifier = errors.New("invalid identifier")

// Identifier is either a local (not yet confirmed) id or a server-assigned id.
// The zero value is "no identifier".
type Identifier struct {
	local  string
	remote string
}

// Local creates an identifier for a record that exists only in the offline queue
func Local(localID string) Identifier {
	return Identifier{local: localID}
}

// Remote creates an identifier for a record acknowledged by the server
func Remote(serverID string) Identifier {
	return Identifier{remote: serverID}
}

// IsZero reports whether the identifier is unset
func (i Identifier) IsZero() bool {
	return i.local == "" && i.remote == ""
}

// IsLocal reports whether the identifier is a temporary one
func (i Identifier) IsLocal() bool {
	return i.local != ""
}

// IsRemote reports whether the identifier is a server id
func (i Identifier) IsRemote() bool {
	return i.remote != ""
}

// LocalID returns the local id or empty string
func (i Identifier) LocalID() string {
	return i.local
}

// RemoteID returns the server id or empty string
func (i Identifier) RemoteID() string {
	return i.remote
}

// String renders the identifier for display. Local ids carry TempPrefix.
// Use it for output only; dispatch on IsLocal/IsRemote instead of parsing it back.
func (i Identifier) String() string {
	switch {
	case i.local != "":
		return TempPrefix + i.local
	case i.remote != "":
		return i.remote
	default:
		return ""
	}
}

type identifierJSON struct {
	Local  string `json:"local,omitempty"`
	Remote string `json:"remote,omitempty"`
}

// MarshalJSON encodes the identifier as {"local":...} or {"remote":...}
func (i Identifier) MarshalJSON() ([]byte, error) {
	if i.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(identifierJSON{Local: i.local, Remote: i.remote})
}

// UnmarshalJSON decodes the tagged form produced by MarshalJSON
func (i *Identifier) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*i = Identifier{}
		return nil
	}

	var raw identifierJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode identifier: %w", err)
	}

	// Ровно одна из веток должна быть заполнена
	if (raw.Local == "") == (raw.Remote == "") {
		return fmt.Errorf("%w: exactly one of local/remote must be set", ErrInvalidIdentifier)
	}

	*i = Identifier{local: raw.Local, remote: raw.Remote}
	return nil
}

// ParseIdentifier parses user input (CLI arguments) into an Identifier.
// "TEMP-<id>" yields a local identifier, anything else a server id.
func ParseIdentifier(s string) (Identifier, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Identifier{}, fmt.Errorf("%w: empty", ErrInvalidIdentifier)
	}

	if strings.HasPrefix(s, TempPrefix) {
		localID := strings.TrimPrefix(s, TempPrefix)
		if localID == "" {
			return Identifier{}, fmt.Errorf("%w: empty local id", ErrInvalidIdentifier)
		}
		return Local(localID), nil
	}

	return Remote(s), nil
}
