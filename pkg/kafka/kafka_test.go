package kafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	msgs, err := encode([]Event{
		{Key: "sentence", Value: map[string]int{"results": 3}},
		{Key: "word", Value: "tea"},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "sentence", string(msgs[0].Key))
	assert.JSONEq(t, `{"results":3}`, string(msgs[0].Value))
	assert.Equal(t, `"tea"`, string(msgs[1].Value))
}

func TestEncodeRejectsUnmarshalable(t *testing.T) {
	_, err := encode([]Event{{Key: "bad", Value: make(chan int)}})
	assert.ErrorContains(t, err, `marshaling event "bad"`)
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Query string `json:"query"`
	}
	got, err := DecodeJSON[payload]([]byte(`{"query":"yes man"}`))
	require.NoError(t, err)
	assert.Equal(t, "yes man", got.Query)

	_, err = DecodeJSON[payload]([]byte(`{`))
	assert.Error(t, err)
}

func TestPingWithoutBrokers(t *testing.T) {
	assert.ErrorContains(t, Ping(context.Background(), nil), "no kafka brokers")
}
