package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cvbp/internal/domain/entity"
	"cvbp/internal/domain/port"
	"cvbp/internal/domain/rle"
)

func TestMemoryUserRepository_GetCreatesUser(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	user, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)

	user.SelectTask(entity.TaskDetect)
	require.NoError(t, repo.Save(ctx, user))

	again, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.TaskDetect, again.Task)

	require.NoError(t, repo.Delete(ctx, 1))
	fresh, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.TaskClassify, fresh.Task)
}

func sampleDetections(t *testing.T) []entity.Detection {
	t.Helper()
	mask, err := rle.FromRows([][]uint8{{0, 1, 1}, {1, 1, 0}})
	require.NoError(t, err)
	return []entity.Detection{{
		Label: "cat",
		Score: 0.75,
		Box:   entity.BoundingBox{Left: 1, Top: 2, Right: 3, Bottom: 4},
		Mask:  mask,
	}}
}

func exerciseCache(t *testing.T, cache port.PredictionCache) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := cache.GetDetections(ctx, "missing")
	require.NoError(t, err)
	require.False(t, ok)

	dets := sampleDetections(t)
	require.NoError(t, cache.SetDetections(ctx, "mask:x", dets))
	got, ok, err := cache.GetDetections(ctx, "mask:x")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	require.Equal(t, dets[0].Box, got[0].Box)
	require.True(t, dets[0].Mask.Equal(got[0].Mask))

	cls := []entity.Classification{{Label: "tabby", Index: 281, Score: 0.9, Model: "resnet18"}}
	require.NoError(t, cache.SetClassifications(ctx, "tag:y", cls))
	gotCls, ok, err := cache.GetClassifications(ctx, "tag:y")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, cls, gotCls)
}

func TestMemoryPredictionCache(t *testing.T) {
	exerciseCache(t, NewMemoryPredictionCache())
}

func TestNopPredictionCache(t *testing.T) {
	cache := NopPredictionCache{}
	ctx := context.Background()
	require.NoError(t, cache.SetDetections(ctx, "k", sampleDetections(t)))
	_, ok, err := cache.GetDetections(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisPredictionCache(t *testing.T) {
	addr := os.Getenv("CVBP_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CVBP_TEST_REDIS_ADDR is not set")
	}

	cache := NewRedisPredictionCache(addr, "", 0, time.Minute)
	defer cache.Close()
	require.NoError(t, cache.Ping(context.Background()))

	exerciseCache(t, cache)
}
