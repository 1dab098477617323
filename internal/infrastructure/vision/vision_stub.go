//go:build !gocv
// +build !gocv

package vision

import (
	"context"
	"image"

	"go.uber.org/zap"

	"cvbp/internal/domain/entity"
	"cvbp/internal/domain/port"
	"cvbp/internal/infrastructure/labels"
)

// Loader заглушка загрузчика (без OpenCV).
type Loader struct{}

func NewLoader(dir string, table labels.Table, log *zap.Logger) *Loader {
	_ = dir
	_ = table
	_ = log
	return &Loader{}
}

// Load возвращает ошибку, если сборка без тега gocv.
func (l *Loader) Load(name string) (port.Classifier, error) {
	_ = name
	return nil, ErrGoCVDisabled
}

// Classifier заглушка классификатора.
type Classifier struct{}

func (c *Classifier) Classify(ctx context.Context, img image.Image) ([]entity.Classification, error) {
	return nil, ErrGoCVDisabled
}

func (c *Classifier) Close() error { return nil }

// Detector заглушка детектора.
type Detector struct{}

// NewDetector возвращает ошибку, если сборка без тега gocv.
func NewDetector(model, config string, log *zap.Logger) (*Detector, error) {
	return nil, ErrGoCVDisabled
}

func (d *Detector) Detect(ctx context.Context, img image.Image) ([]entity.Detection, error) {
	return nil, ErrGoCVDisabled
}

func (d *Detector) Close() error { return nil }

// Segmenter заглушка сегментатора.
type Segmenter struct{}

// NewSegmenter возвращает ошибку, если сборка без тега gocv.
func NewSegmenter(model, config string, threshold float32, log *zap.Logger) (*Segmenter, error) {
	return nil, ErrGoCVDisabled
}

func (s *Segmenter) Segment(ctx context.Context, img image.Image) ([]entity.Detection, error) {
	return nil, ErrGoCVDisabled
}

func (s *Segmenter) Close() error { return nil }

// Annotator заглушка рисования.
type Annotator struct{}

func NewAnnotator() *Annotator {
	return &Annotator{}
}

func (a *Annotator) PutLabel(img image.Image, text string) (image.Image, error) {
	return nil, ErrGoCVDisabled
}

func (a *Annotator) DrawDetections(img image.Image, detections []entity.Detection) (image.Image, error) {
	return nil, ErrGoCVDisabled
}

// Camera заглушка камеры.
type Camera struct{}

// OpenCamera возвращает ошибку, если сборка без тега gocv.
func OpenCamera(device string) (*Camera, error) {
	return nil, ErrGoCVDisabled
}

func (c *Camera) Read(ctx context.Context) (image.Image, error) {
	return nil, ErrGoCVDisabled
}

func (c *Camera) Close() error { return nil }

// Window заглушка окна.
type Window struct{}

func NewWindow(title string) (*Window, error) {
	return nil, ErrGoCVDisabled
}

func (w *Window) Show(img image.Image) (bool, error) {
	return false, ErrGoCVDisabled
}

func (w *Window) Close() error { return nil }
