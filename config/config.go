package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// DefaultImageNetLabels индекс классов ImageNet, который скачивается при первом запуске.
const DefaultImageNetLabels = "https://s3.amazonaws.com/deep-learning-models/image-models/imagenet_class_index.json"

// ErrTelegramTokenRequired токен обязателен только для бота.
var ErrTelegramTokenRequired = errors.New("TELEGRAM_TOKEN is required")

type Config struct {
	TelegramToken string

	ModelDir       string  `validate:"required"`
	ClassifyModel  string  `validate:"required"`
	DetectModel    string  `validate:"required"`
	DetectConfig   string  `validate:"required"`
	MaskModel      string  `validate:"required"`
	MaskConfig     string  `validate:"required"`
	ImageNetLabels string  `validate:"required"`
	MaskThreshold  float32 `validate:"gt=0,lte=1"`
	MinScore       float64 `validate:"gte=0,lte=1"`
	Workers        int     `validate:"gte=1"`
	Webcam         string  `validate:"required"`

	RedisAddr     string
	RedisPassword string
	RedisDB       int           `validate:"gte=0"`
	CacheTTL      time.Duration `validate:"gte=0"`

	LogMode string `validate:"oneof=debug release"`
	LogFile string

	BotRatePerSec float64 `validate:"gt=0"`
	WorkDir       string  `validate:"required"`
}

// Load читает конфигурацию и проверяет её.
func Load() (*Config, error) {
	cfg, err := Read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read читает .env и переменные окружения без проверки значений,
// чтобы вызывающий мог сначала применить свои переопределения.
func Read() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working dir: %w", err)
	}

	p := parser{}
	cfg := &Config{
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		ModelDir:       p.str("MODEL_DIR", "models"),
		ClassifyModel:  p.str("CLASSIFY_MODEL", "resnet152"),
		DetectModel:    p.str("DETECT_MODEL", "faster_rcnn_resnet50_coco.pb"),
		DetectConfig:   p.str("DETECT_CONFIG", "faster_rcnn_resnet50_coco.pbtxt"),
		MaskModel:      p.str("MASK_MODEL", "mask_rcnn_inception_v2_coco.pb"),
		MaskConfig:     p.str("MASK_CONFIG", "mask_rcnn_inception_v2_coco.pbtxt"),
		ImageNetLabels: p.str("IMAGENET_LABELS", DefaultImageNetLabels),
		MaskThreshold:  float32(p.float("MASK_THRESHOLD", 0.5)),
		MinScore:       p.float("MIN_SCORE", 0),
		Workers:        p.int("WORKERS", runtime.NumCPU()),
		Webcam:         p.str("WEBCAM", "0"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        p.int("REDIS_DB", 0),
		CacheTTL:       p.duration("CACHE_TTL", time.Hour),
		LogMode:        p.str("LOG_MODE", "debug"),
		LogFile:        os.Getenv("LOG_FILE"),
		BotRatePerSec:  p.float("BOT_RATE_PER_SEC", 1),
		WorkDir:        p.str("WORK_DIR", wd),
	}
	if p.err != nil {
		return nil, p.err
	}
	return cfg, nil
}

// Validate проверяет значения по тегам validate.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// RequireBot проверяет настройки, нужные только боту.
func (c *Config) RequireBot() error {
	if c.TelegramToken == "" {
		return ErrTelegramTokenRequired
	}
	return nil
}

// ModelPath относительные пути моделей считаются от ModelDir.
func (c *Config) ModelPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.ModelDir, name)
}

// parser запоминает первую ошибку разбора.
type parser struct {
	err error
}

func (p *parser) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func (p *parser) int(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return n
}

func (p *parser) float(key string, def float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return f
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := cast.ToDurationE(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return d
}

func (p *parser) fail(key string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("parse %s: %w", key, err)
	}
}
