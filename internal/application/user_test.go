package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"cvbp/internal/domain/entity"
	"cvbp/internal/infrastructure/storage"
)

func TestUserService_SelectTaskAndCancel(t *testing.T) {
	repo := storage.NewMemoryUserRepository()
	svc := NewUserService(repo)
	ctx := context.Background()

	user, err := svc.SelectTask(ctx, 1, 10, entity.TaskDetect)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingPhoto, user.State)
	require.Equal(t, entity.TaskDetect, user.Task)

	user, err = svc.Cancel(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)
	require.Equal(t, entity.TaskDetect, user.Task)
}

func TestUserService_SetState(t *testing.T) {
	repo := storage.NewMemoryUserRepository()
	svc := NewUserService(repo)
	ctx := context.Background()

	user, err := svc.SetState(ctx, 2, 20, entity.StateProcessing)
	require.NoError(t, err)
	require.Equal(t, entity.StateProcessing, user.State)
}

func TestUserService_Forget(t *testing.T) {
	repo := storage.NewMemoryUserRepository()
	svc := NewUserService(repo)
	ctx := context.Background()

	_, err := svc.SelectTask(ctx, 3, 30, entity.TaskMask)
	require.NoError(t, err)
	require.NoError(t, svc.Forget(ctx, 3))

	user, err := svc.Get(ctx, 3, 30)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)
	require.Equal(t, entity.TaskClassify, user.Task)
}
