package kafka

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reindexRequest struct {
	Reason string `json:"reason"`
}

func TestEncode(t *testing.T) {
	msgs, err := encode([]Event{{Key: "run-1", Value: map[string]int{"files": 4}}})
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, []byte("run-1"), msgs[0].Key)
	assert.JSONEq(t, `{"files":4}`, string(msgs[0].Value))

	_, err = encode([]Event{{Key: "bad", Value: math.Inf(1)}})
	assert.Error(t, err)
}

func TestDecodeJSON(t *testing.T) {
	req, err := DecodeJSON[reindexRequest]([]byte(`{"reason":"release"}`))
	require.NoError(t, err)
	assert.Equal(t, "release", req.Reason)

	_, err = DecodeJSON[reindexRequest]([]byte(`{`))
	assert.Error(t, err)
}
