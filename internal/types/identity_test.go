package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentity(t *testing.T) {
	t.Run("zero value is anonymous", func(t *testing.T) {
		var id Identity
		assert.True(t, id.IsAnonymous())
		assert.Equal(t, Anonymous, id)
		assert.False(t, id.NullString().Valid)
		assert.Equal(t, "anonymous", id.String())
	})

	t.Run("empty string yields the anonymous scope", func(t *testing.T) {
		assert.True(t, NewIdentity("").IsAnonymous())
	})

	t.Run("known identity round trips", func(t *testing.T) {
		id := NewIdentity("u1")
		assert.False(t, id.IsAnonymous())

		value, ok := id.Value()
		assert.True(t, ok)
		assert.Equal(t, "u1", value)

		ns := id.NullString()
		assert.True(t, ns.Valid)
		assert.Equal(t, "u1", ns.String)
	})

	t.Run("marshals anonymous as null", func(t *testing.T) {
		data, err := json.Marshal(Anonymous)
		require.NoError(t, err)
		assert.Equal(t, "null", string(data))
	})

	t.Run("unmarshals null and strings", func(t *testing.T) {
		var id Identity
		require.NoError(t, json.Unmarshal([]byte(`null`), &id))
		assert.True(t, id.IsAnonymous())

		require.NoError(t, json.Unmarshal([]byte(`"u2"`), &id))
		value, _ := id.Value()
		assert.Equal(t, "u2", value)
	})
}
