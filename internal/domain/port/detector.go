package port

import (
	"context"
	"image"

	"cvbp/internal/domain/entity"
)

// Classifier интерфейс классификатора изображений
type Classifier interface {
	// Classify возвращает классы изображения по убыванию уверенности
	Classify(ctx context.Context, img image.Image) ([]entity.Classification, error)

	// Close освобождает ресурсы модели
	Close() error
}

// ClassifierLoader загружает классификатор по имени модели
type ClassifierLoader interface {
	Load(name string) (Classifier, error)
}

// Detector интерфейс детектора объектов
type Detector interface {
	// Detect возвращает найденные объекты с рамками
	Detect(ctx context.Context, img image.Image) ([]entity.Detection, error)

	// Close освобождает ресурсы модели
	Close() error
}

// Segmenter интерфейс сегментатора экземпляров
type Segmenter interface {
	// Segment возвращает найденные объекты с рамками и масками
	Segment(ctx context.Context, img image.Image) ([]entity.Detection, error)

	// Close освобождает ресурсы модели
	Close() error
}
