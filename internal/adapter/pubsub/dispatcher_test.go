package pubsub

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	err      error
	topics   []string
	messages []*message.Message
}

func (p *capturePublisher) Publish(topic string, msgs ...*message.Message) error {
	if p.err != nil {
		return p.err
	}
	for range msgs {
		p.topics = append(p.topics, topic)
	}
	p.messages = append(p.messages, msgs...)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func testDispatcher(pub message.Publisher) *EventDispatcher {
	return NewEventDispatcher(pub, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCellPersistedPublishesEnvelope(t *testing.T) {
	pub := &capturePublisher{}
	testDispatcher(pub).CellPersisted(context.Background(), 42, 1, 2, "done")

	require.Len(t, pub.messages, 1)
	assert.Equal(t, []string{TopicCellUpdated}, pub.topics)

	var env struct {
		ID      string `json:"id"`
		Source  string `json:"source"`
		TableID int64  `json:"table_id"`
		Payload struct {
			Row  int    `json:"row"`
			Col  int    `json:"col"`
			Text string `json:"text"`
		} `json:"payload"`
		Timestamp int64 `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(pub.messages[0].Payload, &env))
	assert.NotEmpty(t, env.ID)
	assert.Equal(t, "table-sync-service", env.Source)
	assert.Equal(t, int64(42), env.TableID)
	assert.Equal(t, 1, env.Payload.Row)
	assert.Equal(t, 2, env.Payload.Col)
	assert.Equal(t, "done", env.Payload.Text)
	assert.NotZero(t, env.Timestamp)
}

func TestRowsInsertedPublishesEnvelope(t *testing.T) {
	pub := &capturePublisher{}
	testDispatcher(pub).RowsInserted(context.Background(), 7, 3, 2)

	require.Len(t, pub.messages, 1)
	assert.Equal(t, []string{TopicRowsInserted}, pub.topics)

	var env struct {
		Payload struct {
			InsertionIndex int `json:"insertion_index"`
			NumRows        int `json:"num_rows"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(pub.messages[0].Payload, &env))
	assert.Equal(t, 3, env.Payload.InsertionIndex)
	assert.Equal(t, 2, env.Payload.NumRows)
}

func TestPublishFailureIsSwallowed(t *testing.T) {
	pub := &capturePublisher{err: assert.AnError}
	// Must not panic or propagate: export is best-effort.
	testDispatcher(pub).CellPersisted(context.Background(), 1, 0, 0, "x")
	assert.Empty(t, pub.messages)
}
