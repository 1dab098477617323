package storage

import (
	"context"
	"slices"
	"sync"

	"cvbp/internal/domain/entity"
	"cvbp/internal/domain/port"
)

// MemoryPredictionCache кэш результатов в памяти процесса
type MemoryPredictionCache struct {
	mu              sync.RWMutex
	classifications map[string][]entity.Classification
	detections      map[string][]entity.Detection
}

// NewMemoryPredictionCache создаёт пустой кэш
func NewMemoryPredictionCache() *MemoryPredictionCache {
	return &MemoryPredictionCache{
		classifications: make(map[string][]entity.Classification),
		detections:      make(map[string][]entity.Detection),
	}
}

func (c *MemoryPredictionCache) GetClassifications(ctx context.Context, key string) ([]entity.Classification, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result, ok := c.classifications[key]
	return slices.Clone(result), ok, nil
}

func (c *MemoryPredictionCache) SetClassifications(ctx context.Context, key string, result []entity.Classification) error {
	c.mu.Lock()
	c.classifications[key] = slices.Clone(result)
	c.mu.Unlock()
	return nil
}

// GetDetections возвращает копию списка; маски неизменяемы и не копируются
func (c *MemoryPredictionCache) GetDetections(ctx context.Context, key string) ([]entity.Detection, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result, ok := c.detections[key]
	return slices.Clone(result), ok, nil
}

func (c *MemoryPredictionCache) SetDetections(ctx context.Context, key string, result []entity.Detection) error {
	c.mu.Lock()
	c.detections[key] = slices.Clone(result)
	c.mu.Unlock()
	return nil
}

func (c *MemoryPredictionCache) Close() error { return nil }

var _ port.PredictionCache = (*MemoryPredictionCache)(nil)
