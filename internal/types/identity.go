package types

import (
	"database/sql"
	"encoding/json"
)

// Identity scopes favorites and history to a user. The zero value is the
// shared anonymous scope used while no auth system exists; a future auth
// layer swaps in real identities without changing ledger signatures.
type Identity struct {
	id    string
	known bool
}

// Anonymous is the shared scope for requests that carry no identity.
var Anonymous = Identity{}

// NewIdentity returns the identity for the given opaque user id. An empty
// id yields the anonymous scope.
func NewIdentity(id string) Identity {
	if id == "" {
		return Anonymous
	}
	return Identity{id: id, known: true}
}

// IsAnonymous reports whether this is the shared anonymous scope.
func (i Identity) IsAnonymous() bool {
	return !i.known
}

// Value returns the opaque user id and whether one is present.
func (i Identity) Value() (string, bool) {
	return i.id, i.known
}

// NullString converts the identity for use as a nullable user_id column
// value; anonymous maps to SQL NULL.
func (i Identity) NullString() sql.NullString {
	if !i.known {
		return sql.NullString{}
	}
	return sql.NullString{String: i.id, Valid: true}
}

// String renders the identity for log output.
func (i Identity) String() string {
	if !i.known {
		return "anonymous"
	}
	return i.id
}

func (i Identity) MarshalJSON() ([]byte, error) {
	if !i.known {
		return []byte("null"), nil
	}
	return json.Marshal(i.id)
}

func (i *Identity) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*i = Anonymous
		return nil
	}
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return err
	}
	*i = NewIdentity(id)
	return nil
}
