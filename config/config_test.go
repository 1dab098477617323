package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var keys = []string{
	"TELEGRAM_TOKEN", "MODEL_DIR", "CLASSIFY_MODEL", "DETECT_MODEL", "DETECT_CONFIG",
	"MASK_MODEL", "MASK_CONFIG", "IMAGENET_LABELS", "MASK_THRESHOLD", "MIN_SCORE",
	"WORKERS", "WEBCAM", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "CACHE_TTL",
	"LOG_MODE", "LOG_FILE", "BOT_RATE_PER_SEC", "WORK_DIR",
}

// clearEnv запускает тест в пустом каталоге без .env и переменных окружения.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
	chdir(t, t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "models", cfg.ModelDir)
	require.Equal(t, "resnet152", cfg.ClassifyModel)
	require.Equal(t, DefaultImageNetLabels, cfg.ImageNetLabels)
	require.Equal(t, float32(0.5), cfg.MaskThreshold)
	require.Zero(t, cfg.MinScore)
	require.GreaterOrEqual(t, cfg.Workers, 1)
	require.Equal(t, "0", cfg.Webcam)
	require.Equal(t, time.Hour, cfg.CacheTTL)
	require.Equal(t, "debug", cfg.LogMode)
	require.Equal(t, 1.0, cfg.BotRatePerSec)
	require.NotEmpty(t, cfg.WorkDir)

	require.ErrorIs(t, cfg.RequireBot(), ErrTelegramTokenRequired)
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("MODEL_DIR", "/opt/models")
	t.Setenv("MASK_THRESHOLD", "0.7")
	t.Setenv("WORKERS", "3")
	t.Setenv("CACHE_TTL", "5m")
	t.Setenv("LOG_MODE", "release")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, float32(0.7), cfg.MaskThreshold)
	require.Equal(t, 3, cfg.Workers)
	require.Equal(t, 5*time.Minute, cfg.CacheTTL)
	require.Equal(t, "release", cfg.LogMode)
	require.NoError(t, cfg.RequireBot())

	require.Equal(t, "/opt/models/faster_rcnn_resnet50_coco.pb", cfg.ModelPath(cfg.DetectModel))
	require.Equal(t, "/abs/model.pb", cfg.ModelPath("/abs/model.pb"))
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.Unsetenv("WEBCAM"))
	require.NoError(t, os.WriteFile(filepath.Join(".", ".env"), []byte("WEBCAM=video.mp4\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "video.mp4", cfg.Webcam)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"MASK_THRESHOLD":   "0",
		"MIN_SCORE":        "1.5",
		"WORKERS":          "0",
		"LOG_MODE":         "verbose",
		"BOT_RATE_PER_SEC": "-1",
		"REDIS_DB":         "many",
		"CACHE_TTL":        "soon",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)

			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestRead_LeavesValidationToCaller(t *testing.T) {
	clearEnv(t)
	t.Setenv("WORKERS", "0")
	t.Setenv("MIN_SCORE", "2")

	cfg, err := Read()
	require.NoError(t, err)
	require.Equal(t, 0, cfg.Workers)
	require.Error(t, cfg.Validate())

	cfg.Workers = 4
	cfg.MinScore = 0.3
	require.NoError(t, cfg.Validate())

	t.Setenv("CACHE_TTL", "soon")
	_, err = Read()
	require.Error(t, err)
}
