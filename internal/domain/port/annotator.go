package port

import (
	"image"

	"cvbp/internal/domain/entity"
)

// Annotator рисует результаты поверх изображения
type Annotator interface {
	// PutLabel пишет текст по центру верхнего края
	PutLabel(img image.Image, text string) (image.Image, error)

	// DrawDetections рисует рамки, подписи и маски
	DrawDetections(img image.Image, detections []entity.Detection) (image.Image, error)
}
