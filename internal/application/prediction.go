package app

import (
	"bytes"
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"slices"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"

	"cvbp/internal/domain/entity"
	"cvbp/internal/domain/port"
	"cvbp/internal/domain/rle"
)

const (
	DefaultClassifyModel = "resnet152"
	DefaultTagModel      = "resnet18"

	// ModelAll выбирает все известные модели классификации
	ModelAll = "all"
	// ModelList просит вывести список моделей
	ModelList = "list"
)

// ClassifierModels известные модели классификации ImageNet
var ClassifierModels = []string{
	"alexnet",
	"densenet121",
	"densenet161",
	"densenet169",
	"densenet201",
	"resnet101",
	"resnet152",
	"resnet18",
	"resnet34",
	"resnet50",
	"squeezenet1_0",
	"squeezenet1_1",
	"vgg16_bn",
	"vgg19_bn",
}

var (
	ErrUnknownModel            = errors.New("unknown model")
	ErrClassifierNotConfigured = errors.New("classifier is not configured")
	ErrDetectorNotConfigured   = errors.New("detector is not configured")
	ErrSegmenterNotConfigured  = errors.New("segmenter is not configured")
	ErrUnreadableImage         = errors.New("unreadable image")
	ErrAllModelsWithWebcam     = errors.New("cannot use all models with the webcam")
)

// SelectModels разбирает значение флага модели: пустое значение даёт модель
// по умолчанию, "all" даёт все модели, иначе одно известное имя.
func SelectModels(flag, fallback string) ([]string, error) {
	if flag == "" {
		flag = fallback
	}
	if flag == ModelAll {
		return slices.Clone(ClassifierModels), nil
	}
	if !slices.Contains(ClassifierModels, flag) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, flag)
	}
	return []string{flag}, nil
}

// Models порты моделей; любой из них может быть nil.
type Models struct {
	Classifiers port.ClassifierLoader
	Detector    port.Detector
	Segmenter   port.Segmenter
}

// Options настройки сервиса распознавания.
type Options struct {
	MinScore float64
	Workers  int
}

// Result результат обработки одного входного пути.
type Result struct {
	Path  string
	Lines []string
	Err   error
}

// Outcome результат распознавания одного изображения.
type Outcome struct {
	Image           image.Image
	Classifications []entity.Classification
	Detections      []entity.Detection
	Lines           []string
}

type PredictionService struct {
	source  port.ImageSource
	models  Models
	cache   port.PredictionCache
	filter  Postprocessor
	workers int
	log     *zap.Logger

	mu          sync.Mutex
	classifiers map[string]port.Classifier
}

// NewPredictionService создаёт сервис, который прогоняет изображения через модели.
func NewPredictionService(source port.ImageSource, models Models, cache port.PredictionCache, log *zap.Logger, opts Options) *PredictionService {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &PredictionService{
		source:      source,
		models:      models,
		cache:       cache,
		filter:      NewScoreFilter(opts.MinScore),
		workers:     workers,
		log:         log.Named("predictions"),
		classifiers: make(map[string]port.Classifier),
	}
}

// Classify классифицирует каждый путь каждой из моделей.
func (s *PredictionService) Classify(ctx context.Context, paths, models []string) ([]Result, error) {
	return s.run(ctx, entity.TaskClassify, models, paths)
}

// Tag классифицирует каждый путь моделью для тегов.
func (s *PredictionService) Tag(ctx context.Context, paths []string) ([]Result, error) {
	return s.run(ctx, entity.TaskTag, []string{DefaultTagModel}, paths)
}

// Detect ищет объекты на каждом пути.
func (s *PredictionService) Detect(ctx context.Context, paths []string) ([]Result, error) {
	return s.run(ctx, entity.TaskDetect, nil, paths)
}

// Mask ищет объекты и кодирует их маски.
func (s *PredictionService) Mask(ctx context.Context, paths []string) ([]Result, error) {
	return s.run(ctx, entity.TaskMask, nil, paths)
}

// run проверяет модели заранее, а затем обрабатывает пути параллельно.
// Ошибки отдельных путей попадают в Result.Err, порядок результатов совпадает с paths.
func (s *PredictionService) run(ctx context.Context, task entity.Task, models, paths []string) ([]Result, error) {
	if err := s.prepare(task, models); err != nil {
		return nil, err
	}

	results := make([]Result, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = s.runPath(ctx, task, models, path)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *PredictionService) runPath(ctx context.Context, task entity.Task, models []string, path string) Result {
	res := Result{Path: path}

	data, err := s.source.Open(ctx, path)
	if err != nil {
		res.Err = fmt.Errorf("%w: %w", ErrUnreadableImage, err)
		return res
	}

	if len(models) == 0 {
		models = []string{""}
	}
	for _, model := range models {
		out, err := s.Predict(ctx, task, model, data, path)
		if err != nil {
			res.Err = err
			return res
		}
		res.Lines = append(res.Lines, out.Lines...)
	}

	return res
}

func (s *PredictionService) prepare(task entity.Task, models []string) error {
	switch task {
	case entity.TaskClassify, entity.TaskTag:
		for _, name := range models {
			if _, err := s.Classifier(name); err != nil {
				return err
			}
		}
	case entity.TaskDetect:
		if s.models.Detector == nil {
			return ErrDetectorNotConfigured
		}
	case entity.TaskMask:
		if s.models.Segmenter == nil {
			return ErrSegmenterNotConfigured
		}
	}
	return nil
}

// Predict распознаёт одно изображение; name подставляется в строки вывода.
// Для detect и mask параметр model игнорируется.
func (s *PredictionService) Predict(ctx context.Context, task entity.Task, model string, data []byte, name string) (*Outcome, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadableImage, err)
	}

	out := &Outcome{Image: img}
	key := cacheKey(task, model, data)

	switch task {
	case entity.TaskClassify, entity.TaskTag:
		if model == "" {
			model = DefaultClassifyModel
			if task == entity.TaskTag {
				model = DefaultTagModel
			}
			key = cacheKey(task, model, data)
		}
		out.Classifications, err = s.classify(ctx, key, model, img)
		if err != nil {
			return nil, err
		}
		if len(out.Classifications) > 0 {
			top := out.Classifications[0]
			if task == entity.TaskTag {
				out.Lines = append(out.Lines, FormatTag(top, name))
			} else {
				out.Lines = append(out.Lines, FormatClassification(top, name))
			}
		}

	case entity.TaskDetect:
		out.Detections, err = s.detect(ctx, key, img)
		if err != nil {
			return nil, err
		}
		for _, d := range out.Detections {
			out.Lines = append(out.Lines, FormatDetection(d, name))
		}

	case entity.TaskMask:
		out.Detections, err = s.segment(ctx, key, img)
		if err != nil {
			return nil, err
		}
		for _, d := range out.Detections {
			rec, err := rle.Encode(d.Mask)
			if err != nil {
				s.log.Warn("skipping detection with invalid mask",
					zap.String("path", name), zap.String("label", d.Label), zap.Error(err))
				continue
			}
			out.Lines = append(out.Lines, FormatMask(d, rec, name))
		}

	default:
		return nil, fmt.Errorf("unsupported task %q", task)
	}

	return out, nil
}

// Classifier возвращает загруженный классификатор, загружая его при первом обращении.
func (s *PredictionService) Classifier(name string) (port.Classifier, error) {
	if s.models.Classifiers == nil {
		return nil, ErrClassifierNotConfigured
	}
	if !slices.Contains(ClassifierModels, name) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.classifiers[name]; ok {
		return c, nil
	}

	c, err := s.models.Classifiers.Load(name)
	if err != nil {
		return nil, fmt.Errorf("load classifier %s: %w", name, err)
	}
	s.classifiers[name] = c
	s.log.Debug("classifier loaded", zap.String("model", name))

	return c, nil
}

// DetectFrame ищет объекты на кадре без кэша.
func (s *PredictionService) DetectFrame(ctx context.Context, img image.Image) ([]entity.Detection, error) {
	if s.models.Detector == nil {
		return nil, ErrDetectorNotConfigured
	}
	dets, err := s.models.Detector.Detect(ctx, img)
	if err != nil {
		return nil, err
	}
	return s.filter(dets), nil
}

func (s *PredictionService) classify(ctx context.Context, key, model string, img image.Image) ([]entity.Classification, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.GetClassifications(ctx, key)
		if err != nil {
			s.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	c, err := s.Classifier(model)
	if err != nil {
		return nil, err
	}
	result, err := c.Classify(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("classify with %s: %w", model, err)
	}

	if s.cache != nil {
		if err := s.cache.SetClassifications(ctx, key, result); err != nil {
			s.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return result, nil
}

func (s *PredictionService) detect(ctx context.Context, key string, img image.Image) ([]entity.Detection, error) {
	if s.models.Detector == nil {
		return nil, ErrDetectorNotConfigured
	}
	return s.cachedDetections(ctx, key, func() ([]entity.Detection, error) {
		return s.models.Detector.Detect(ctx, img)
	})
}

func (s *PredictionService) segment(ctx context.Context, key string, img image.Image) ([]entity.Detection, error) {
	if s.models.Segmenter == nil {
		return nil, ErrSegmenterNotConfigured
	}
	return s.cachedDetections(ctx, key, func() ([]entity.Detection, error) {
		return s.models.Segmenter.Segment(ctx, img)
	})
}

func (s *PredictionService) cachedDetections(ctx context.Context, key string, infer func() ([]entity.Detection, error)) ([]entity.Detection, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.GetDetections(ctx, key)
		if err != nil {
			s.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			return s.filter(cached), nil
		}
	}

	dets, err := infer()
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetDetections(ctx, key, dets); err != nil {
			s.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return s.filter(dets), nil
}

// Close освобождает все загруженные модели.
func (s *PredictionService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	for name, c := range s.classifiers {
		err = multierr.Combine(err, c.Close())
		delete(s.classifiers, name)
	}
	if s.models.Detector != nil {
		err = multierr.Combine(err, s.models.Detector.Close())
	}
	if s.models.Segmenter != nil {
		err = multierr.Combine(err, s.models.Segmenter.Close())
	}
	return err
}

func cacheKey(task entity.Task, model string, data []byte) string {
	return fmt.Sprintf("%s:%s:%x", task, model, md5.Sum(data))
}
