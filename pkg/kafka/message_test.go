package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncomingMessage_ParseSearchResult(t *testing.T) {
	t.Run("parses a result batch", func(t *testing.T) {
		msg := &IncomingMessage{
			Value: []byte(`{"task_id":"t1","project_id":"p1","entities":[{"id":"Q42","label":"Douglas Adams"}]}`),
		}

		require.NoError(t, msg.ParseSearchResult())
		require.NotNil(t, msg.SearchResult)
		assert.Equal(t, "t1", msg.SearchResult.TaskID)
		require.Len(t, msg.SearchResult.Entities, 1)
		assert.Equal(t, "Q42", msg.SearchResult.Entities[0].ID)
	})

	t.Run("invalid json", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{broken`)}
		assert.Error(t, msg.ParseSearchResult())
		assert.Nil(t, msg.SearchResult)
	})
}

func TestIncomingMessage_GetTaskID(t *testing.T) {
	t.Run("prefers the parsed payload", func(t *testing.T) {
		msg := &IncomingMessage{Key: "key-task"}
		msg.Value = []byte(`{"task_id":"t1"}`)
		require.NoError(t, msg.ParseSearchResult())
		assert.Equal(t, "t1", msg.GetTaskID())
	})

	t.Run("falls back to the message key", func(t *testing.T) {
		msg := &IncomingMessage{Key: "key-task"}
		assert.Equal(t, "key-task", msg.GetTaskID())
	})
}

func TestIncomingMessage_GetProjectID(t *testing.T) {
	msg := &IncomingMessage{Headers: map[string]string{"project_id": "p-header"}}
	assert.Equal(t, "p-header", msg.GetProjectID())
}

func TestIncomingMessage_IsSearchCompleted(t *testing.T) {
	t.Run("by header", func(t *testing.T) {
		msg := &IncomingMessage{Headers: map[string]string{"type": "search.completed"}}
		assert.True(t, msg.IsSearchCompleted())
	})

	t.Run("by payload type", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{"type":"search.completed","project_id":"p1","status":"success"}`)}
		assert.True(t, msg.IsSearchCompleted())
	})

	t.Run("search result batch is not a completion event", func(t *testing.T) {
		msg := &IncomingMessage{Value: []byte(`{"task_id":"t1","entities":[]}`)}
		assert.False(t, msg.IsSearchCompleted())
	})
}

func TestIncomingMessage_ParseSearchCompleted(t *testing.T) {
	msg := &IncomingMessage{Value: []byte(`{"type":"search.completed","project_id":"p1","status":"failed","stats":{"tasks_searched":10,"tasks_failed":2}}`)}

	evt, err := msg.ParseSearchCompleted()
	require.NoError(t, err)
	assert.Equal(t, "p1", evt.ProjectID)
	assert.Equal(t, "failed", evt.Status)
	assert.Equal(t, 10, evt.Stats.TasksSearched)
}
