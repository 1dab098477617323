package app

import (
	"context"
	"errors"
	"fmt"
	"image"

	"go.uber.org/zap"

	"cvbp/internal/domain/port"
)

// FrameFunc обрабатывает кадр и возвращает изображение для показа.
type FrameFunc func(ctx context.Context, frame image.Image) (image.Image, error)

// LiveService распознаёт кадры с камеры и показывает результат в окне.
type LiveService struct {
	predictions *PredictionService
	annotator   port.Annotator
	log         *zap.Logger
}

func NewLiveService(predictions *PredictionService, annotator port.Annotator, log *zap.Logger) *LiveService {
	return &LiveService{
		predictions: predictions,
		annotator:   annotator,
		log:         log.Named("live"),
	}
}

// ClassifyFrames подписывает каждый кадр лучшим классом модели.
func (s *LiveService) ClassifyFrames(model string) (FrameFunc, error) {
	if model == ModelAll {
		return nil, ErrAllModelsWithWebcam
	}
	if model == "" {
		model = DefaultClassifyModel
	}

	classifier, err := s.predictions.Classifier(model)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, frame image.Image) (image.Image, error) {
		result, err := classifier.Classify(ctx, frame)
		if err != nil {
			return nil, err
		}
		if len(result) == 0 {
			return frame, nil
		}
		top := result[0]
		return s.annotator.PutLabel(frame, fmt.Sprintf("%s (%.2f)", top.Label, top.Score))
	}, nil
}

// DetectFrames обводит найденные объекты на каждом кадре.
func (s *LiveService) DetectFrames() (FrameFunc, error) {
	if s.predictions.models.Detector == nil {
		return nil, ErrDetectorNotConfigured
	}

	return func(ctx context.Context, frame image.Image) (image.Image, error) {
		dets, err := s.predictions.DetectFrame(ctx, frame)
		if err != nil {
			return nil, err
		}
		return s.annotator.DrawDetections(frame, dets)
	}, nil
}

// Run читает кадры, пока не отменён контекст или не закрыто окно.
func (s *LiveService) Run(ctx context.Context, camera port.Camera, display port.Display, process FrameFunc) error {
	frames := 0
	defer func() {
		s.log.Info("live session finished", zap.Int("frames", frames))
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		frame, err := camera.Read(ctx)
		if errors.Is(err, port.ErrEmptyFrame) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read frame: %w", err)
		}

		out, err := process(ctx, frame)
		if err != nil {
			return fmt.Errorf("process frame: %w", err)
		}
		frames++

		closed, err := display.Show(out)
		if err != nil {
			return fmt.Errorf("show frame: %w", err)
		}
		if closed {
			return nil
		}
	}
}
