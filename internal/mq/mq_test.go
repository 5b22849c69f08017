package mq

import (
	"context"
	"testing"

	"github.com/stackit-qa/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBackend struct {
	handlers map[string][]Handler
	closed   bool
}

func (b *memoryBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	for _, h := range b.handlers[channel] {
		_ = h(ctx, Message{ID: "1", Data: data, Attributes: attrs})
	}
	return "1", nil
}

func (b *memoryBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	b.handlers[channel] = append(b.handlers[channel], handler)
	return nil
}

func (b *memoryBackend) Close() error {
	b.closed = true
	return nil
}

func TestMQDelegatesToBackend(t *testing.T) {
	ctx := context.Background()
	backend := &memoryBackend{handlers: map[string][]Handler{}}
	m := New(backend)

	var got []Message
	require.NoError(t, m.Subscribe(ctx, "events", func(ctx context.Context, msg Message) error {
		got = append(got, msg)
		return nil
	}))

	id, err := m.Publish(ctx, "events", []byte(`{}`), map[string]string{"type": "answer"})
	require.NoError(t, err)
	assert.Equal(t, "1", id)
	require.Len(t, got, 1)
	assert.Equal(t, "answer", got[0].Attributes["type"])

	require.NoError(t, m.Close())
	assert.True(t, backend.closed)
}

func TestOpenWithoutBroker(t *testing.T) {
	m, err := Open(context.Background(), config.Config{MQ: config.MQConfig{Backend: config.MQBackendNone}})
	require.NoError(t, err)
	assert.Nil(t, m)

	_, err = Open(context.Background(), config.Config{MQ: config.MQConfig{Backend: "kafka"}})
	require.Error(t, err)
}

func TestHeadersToAttributes(t *testing.T) {
	attrs := headersToAttributes(map[string]any{"type": "answer", "raw": []byte("x"), "n": 3})
	assert.Equal(t, map[string]string{"type": "answer", "raw": "x", "n": "3"}, attrs)
	assert.Nil(t, headersToAttributes(nil))
}
