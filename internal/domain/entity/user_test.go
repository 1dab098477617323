package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewUser_DefaultState(t *testing.T) {
	u := NewUser(1, 10)
	require.Equal(t, StateMainMenu, u.State)
	require.Equal(t, TaskClassify, u.Task)
	require.Equal(t, int64(1), u.ID)
	require.Equal(t, int64(10), u.ChatID)
}

func TestUser_SelectTask(t *testing.T) {
	u := NewUser(1, 10)
	u.SelectTask(TaskMask)
	require.Equal(t, TaskMask, u.Task)
	require.Equal(t, StateAwaitingPhoto, u.State)
}
