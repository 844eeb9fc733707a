package kafka

import (
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type update struct {
	Source string   `json:"source"`
	Items  []string `json:"items"`
}

func TestDecodeJSON(t *testing.T) {
	got, err := DecodeJSON[update]([]byte(`{"source":"apps","items":["a","b"]}`))
	require.NoError(t, err)
	assert.Equal(t, update{Source: "apps", Items: []string{"a", "b"}}, got)

	_, err = DecodeJSON[update]([]byte(`{"source":`))
	assert.ErrorContains(t, err, "decoding kafka message")
}

func TestEncode(t *testing.T) {
	msgs, err := encode([]Event{
		{Key: "apps", Value: update{Source: "apps"}},
		{Key: "web", Value: map[string]int{"n": 1}},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, []byte("apps"), msgs[0].Key)
	assert.JSONEq(t, `{"source":"apps","items":null}`, string(msgs[0].Value))
	assert.JSONEq(t, `{"n":1}`, string(msgs[1].Value))

	_, err = encode([]Event{{Key: "bad", Value: make(chan int)}})
	assert.ErrorContains(t, err, `key "bad"`)
}

func TestConsumerOptions(t *testing.T) {
	rc := kafka.ReaderConfig{GroupID: "g", StartOffset: kafka.LastOffset}
	FromBeginning()(&rc)
	WithGroupID("launchrank-catalog")(&rc)
	assert.Equal(t, kafka.FirstOffset, rc.StartOffset)
	assert.Equal(t, "launchrank-catalog", rc.GroupID)
}
