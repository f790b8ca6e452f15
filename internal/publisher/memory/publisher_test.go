package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherStoresMessages(t *testing.T) {
	t.Parallel()

	pub := New()
	id1, err := pub.Publish(context.Background(), "dumps", map[string]string{"file": "dump.sql"})
	require.NoError(t, err)
	assert.Equal(t, "memory-1", id1)

	id2, err := pub.Publish(context.Background(), "dumps", "payload")
	require.NoError(t, err)
	assert.Equal(t, "memory-2", id2)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "dumps", msgs[0].Topic)
	assert.Equal(t, "payload", msgs[1].Payload)

	msgs[0].Topic = "modified"
	assert.Equal(t, "dumps", pub.Messages()[0].Topic, "Messages must return a copy")
}

func TestPublisherFailure(t *testing.T) {
	t.Parallel()

	pub := New()
	pub.Fail(assert.AnError)
	_, err := pub.Publish(context.Background(), "dumps", "payload")
	require.ErrorIs(t, err, assert.AnError)
	assert.Empty(t, pub.Messages())
}
