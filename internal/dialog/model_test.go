package dialog

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snap struct {
	ID    string            `json:"id"`
	Phase string            `json:"phase"`
	Sel   map[string]string `json:"sel"`
}

func TestEncodeDecode(t *testing.T) {
	p := Payload{"msg_id": 10}
	in := snap{ID: "s1", Phase: "summary", Sel: map[string]string{"size": "a"}}
	require.NoError(t, Encode(p, KeyWizard, in))

	// как после записи в базу и чтения обратно
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	var back Payload
	require.NoError(t, json.Unmarshal(raw, &back))

	var out snap
	ok, err := Decode(back, KeyWizard, &out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, in, out)

	ok, err = Decode(back, "missing", &out)
	require.NoError(t, err)
	assert.False(t, ok)

	back["bad"] = "not an object"
	_, err = Decode(back, "bad", &out)
	assert.Error(t, err)
}

func TestGetString(t *testing.T) {
	p := Payload{"a": "x", "n": 1.0}
	s, ok := GetString(p, "a")
	assert.True(t, ok)
	assert.Equal(t, "x", s)
	_, ok = GetString(p, "n")
	assert.False(t, ok)
}
