package container

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"cvbp/config"
	app "cvbp/internal/application"
	"cvbp/internal/domain/port"
	"cvbp/internal/infrastructure/fetch"
	"cvbp/internal/infrastructure/labels"
	"cvbp/internal/infrastructure/storage"
	"cvbp/internal/infrastructure/vision"
)

// ErrLabels таблицу ImageNet не удалось получить.
var ErrLabels = errors.New("failed to obtain labels")

// Components что нужно собрать команде.
type Components uint8

const (
	WithClassifiers Components = 1 << iota
	WithDetector
	WithSegmenter
	WithCache
)

type Container struct {
	Source      *fetch.Source
	UserService *app.UserService
	Predictions *app.PredictionService
	Live        *app.LiveService
	Annotator   port.Annotator

	cache port.PredictionCache
	log   *zap.Logger
}

// New собирает сервисы приложения; модели загружаются только из набора need.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger, need Components) (*Container, error) {
	source := fetch.NewSource(cfg.WorkDir, log)

	var models app.Models
	if need&WithClassifiers != 0 {
		table, err := labels.LoadImageNet(ctx, source, cfg.ImageNetLabels)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLabels, err)
		}
		models.Classifiers = vision.NewLoader(cfg.ModelDir, table, log)
	}

	closeOnErr := func(err error) error {
		if models.Detector != nil {
			err = multierr.Append(err, models.Detector.Close())
		}
		if models.Segmenter != nil {
			err = multierr.Append(err, models.Segmenter.Close())
		}
		return err
	}

	if need&WithDetector != 0 {
		detector, err := vision.NewDetector(cfg.ModelPath(cfg.DetectModel), cfg.ModelPath(cfg.DetectConfig), log)
		if err != nil {
			return nil, fmt.Errorf("load detector: %w", err)
		}
		models.Detector = detector
	}
	if need&WithSegmenter != 0 {
		segmenter, err := vision.NewSegmenter(cfg.ModelPath(cfg.MaskModel), cfg.ModelPath(cfg.MaskConfig), cfg.MaskThreshold, log)
		if err != nil {
			return nil, closeOnErr(fmt.Errorf("load segmenter: %w", err))
		}
		models.Segmenter = segmenter
	}

	cache, err := newCache(ctx, cfg, need, log)
	if err != nil {
		return nil, closeOnErr(err)
	}

	annotator := vision.NewAnnotator()
	predictions := app.NewPredictionService(source, models, cache, log, app.Options{
		MinScore: cfg.MinScore,
		Workers:  cfg.Workers,
	})

	return &Container{
		Source:      source,
		UserService: app.NewUserService(storage.NewMemoryUserRepository()),
		Predictions: predictions,
		Live:        app.NewLiveService(predictions, annotator, log),
		Annotator:   annotator,
		cache:       cache,
		log:         log,
	}, nil
}

// newCache Redis, если задан адрес, иначе кэш в памяти; без WithCache кэш отключён.
func newCache(ctx context.Context, cfg *config.Config, need Components, log *zap.Logger) (port.PredictionCache, error) {
	if need&WithCache == 0 {
		return storage.NopPredictionCache{}, nil
	}
	if cfg.RedisAddr == "" {
		log.Info("using in-memory prediction cache")
		return storage.NewMemoryPredictionCache(), nil
	}

	cache := storage.NewRedisPredictionCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
	if err := cache.Ping(ctx); err != nil {
		_ = cache.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.RedisAddr, err)
	}
	log.Info("using redis prediction cache", zap.String("addr", cfg.RedisAddr))
	return cache, nil
}

// Close освобождает модели и кэш.
func (c *Container) Close() error {
	var err error
	if c.Predictions != nil {
		err = multierr.Append(err, c.Predictions.Close())
	}
	if c.cache != nil {
		err = multierr.Append(err, c.cache.Close())
	}
	return err
}
