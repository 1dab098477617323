package port

import (
	"context"

	"cvbp/internal/domain/entity"
)

// PredictionCache кэш результатов распознавания.
// Ключ строится из задачи, модели и хэша изображения.
type PredictionCache interface {
	GetClassifications(ctx context.Context, key string) ([]entity.Classification, bool, error)
	SetClassifications(ctx context.Context, key string, result []entity.Classification) error
	GetDetections(ctx context.Context, key string) ([]entity.Detection, bool, error)
	SetDetections(ctx context.Context, key string, result []entity.Detection) error
	Close() error
}
