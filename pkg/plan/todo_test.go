package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTodoBoard_AddAndList(t *testing.T) {
	b := NewTodoBoard()

	id1 := b.Add("elena", "确认档期")
	id2 := b.Add("sam", "审阅样片")
	assert.NotEqual(t, id1, id2)

	all := b.List()
	require.Len(t, all, 2)
	assert.Equal(t, TodoStatusPending, all[0].Status)

	assert.Len(t, b.GetByOwner("elena"), 1)
	assert.Empty(t, b.GetByOwner("wren"))
}

func TestTodoBoard_Update(t *testing.T) {
	b := NewTodoBoard()
	id := b.Add("elena", "确认档期")

	require.NoError(t, b.Update(id, TodoStatusCompleted))
	todo := b.GetByID(id)
	require.NotNil(t, todo)
	assert.Equal(t, TodoStatusCompleted, todo.Status)
	assert.NotNil(t, todo.CompletedAt)

	var notFound *NotFoundError
	assert.ErrorAs(t, b.Update("todo-99", TodoStatusCompleted), &notFound)
}

func TestTodoBoard_Remove(t *testing.T) {
	b := NewTodoBoard()
	id := b.Add("elena", "确认档期")

	require.NoError(t, b.Remove(id))
	assert.Nil(t, b.GetByID(id))
	assert.Error(t, b.Remove(id))
}

func TestTodoBoard_GetByStatus(t *testing.T) {
	b := NewTodoBoard()
	b.Add("elena", "a")
	id := b.Add("sam", "b")
	require.NoError(t, b.Update(id, TodoStatusInProgress))

	pending := b.GetByStatus(TodoStatusPending)
	require.Len(t, pending, 1)
	assert.Equal(t, "elena", pending[0].Owner)

	assert.Empty(t, b.GetByStatus(TodoStatusFailed))
}

func TestTodoBoard_Counts(t *testing.T) {
	b := NewTodoBoard()
	b.Add("elena", "a")
	id := b.Add("elena", "b")
	require.NoError(t, b.Update(id, TodoStatusInProgress))

	counts := b.Counts()
	assert.Equal(t, 1, counts[TodoStatusPending])
	assert.Equal(t, 1, counts[TodoStatusInProgress])
}
