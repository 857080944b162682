package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityMetadata_ScanJSONB(t *testing.T) {
	var m ActivityMetadata
	err := m.Scan([]byte(`{"reason":"wrong_password","attempt":3}`))

	require.NoError(t, err)
	assert.Equal(t, "wrong_password", m["reason"])
	assert.Equal(t, float64(3), m["attempt"])
}

func TestActivityMetadata_ScanNil(t *testing.T) {
	var m ActivityMetadata
	err := m.Scan(nil)

	require.NoError(t, err)
	assert.NotNil(t, m)
	assert.Empty(t, m)
}

func TestActivityMetadata_ScanNonBytesRejected(t *testing.T) {
	var m ActivityMetadata
	err := m.Scan(42)

	assert.Error(t, err)
}

func TestActivityMetadata_ValueRoundTrip(t *testing.T) {
	m := ActivityMetadata{"provider": "google"}

	v, err := m.Value()
	require.NoError(t, err)

	var back ActivityMetadata
	require.NoError(t, back.Scan(v.([]byte)))
	assert.Equal(t, "google", back["provider"])
}

func TestActivityMetadata_NilValueIsSQLNull(t *testing.T) {
	var m ActivityMetadata

	v, err := m.Value()
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestActivityMetadata_JSONMarshal(t *testing.T) {
	m := ActivityMetadata{"reason": "expired"}

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `{"reason":"expired"}`, string(data))
}
