package storage

import (
	"context"

	"cvbp/internal/domain/entity"
	"cvbp/internal/domain/port"
)

// NopPredictionCache ничего не хранит
type NopPredictionCache struct{}

func (NopPredictionCache) GetClassifications(context.Context, string) ([]entity.Classification, bool, error) {
	return nil, false, nil
}

func (NopPredictionCache) SetClassifications(context.Context, string, []entity.Classification) error {
	return nil
}

func (NopPredictionCache) GetDetections(context.Context, string) ([]entity.Detection, bool, error) {
	return nil, false, nil
}

func (NopPredictionCache) SetDetections(context.Context, string, []entity.Detection) error {
	return nil
}

func (NopPredictionCache) Close() error { return nil }

var _ port.PredictionCache = NopPredictionCache{}
