package cli

import (
	"context"
	"io"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"cvbp/config"
	"cvbp/internal/container"
	"cvbp/internal/logger"
)

const (
	flagModelDir = "model-dir"
	flagWorkers  = "workers"
	flagMinScore = "min-score"
	flagDebug    = "debug"

	flagModel  = "model"
	flagWebcam = "webcam"
	flagShow   = "show"
)

// builder собирает контейнер для команды.
type builder func(ctx context.Context, cfg *config.Config, log *zap.Logger, need container.Components) (*container.Container, error)

// env общее состояние команд: конфигурация, логгер и потоки ввода-вывода.
type env struct {
	out    io.Writer
	errOut io.Writer
	in     io.Reader

	cfg   *config.Config
	log   *zap.Logger
	build builder
}

// NewApp возвращает CLI; строки результатов пишутся в out,
// предупреждения и логи в errOut.
func NewApp(out, errOut io.Writer, in io.Reader) *cli.App {
	return newApp(&env{out: out, errOut: errOut, in: in, build: container.New})
}

func newApp(e *env) *cli.App {
	return &cli.App{
		Name:      "cvbp",
		Usage:     "pretrained computer vision models from the command line",
		Writer:    e.out,
		ErrWriter: e.errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  flagModelDir,
				Usage: "directory with model files (overrides MODEL_DIR)",
			},
			&cli.IntFlag{
				Name:  flagWorkers,
				Usage: "number of images processed in parallel (overrides WORKERS)",
			},
			&cli.Float64Flag{
				Name:  flagMinScore,
				Usage: "drop detections below this score (overrides MIN_SCORE)",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: e.before,
		After:  e.after,
		Commands: []*cli.Command{
			{
				Name:      "classify",
				Usage:     "classify images into one of 1000 known objects",
				ArgsUsage: "[path or url...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    flagModel,
						Aliases: []string{"m"},
						Usage:   "model to use, 'list' to show models or 'all' to use every model",
					},
					webcamFlag(),
				},
				Action: e.classify,
			},
			{
				Name:      "tag",
				Usage:     "tag images with their most likely object",
				ArgsUsage: "path or url...",
				Action:    e.tag,
			},
			{
				Name:      "detect",
				Usage:     "detect objects from 90 known objects",
				ArgsUsage: "[path or url...]",
				Flags:     []cli.Flag{webcamFlag()},
				Action:    e.detect,
			},
			{
				Name:      "mask",
				Usage:     "detect objects and predict their masks",
				ArgsUsage: "path or url...",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    flagShow,
						Aliases: []string{"s"},
						Usage:   "display prediction results in image",
					},
				},
				Action: e.mask,
			},
			{
				Name:      "webcam",
				Usage:     "classify (ic) or detect objects (od) in the webcam stream",
				ArgsUsage: "ic|od",
				Flags:     []cli.Flag{webcamFlag()},
				Action:    e.webcam,
			},
			{
				Name:   "demo",
				Usage:  "webcam classification followed by webcam detection",
				Flags:  []cli.Flag{webcamFlag()},
				Action: e.demo,
			},
			{
				Name:   "bot",
				Usage:  "run the telegram bot",
				Action: e.bot,
			},
		},
	}
}

// before загружает конфигурацию и применяет глобальные флаги.
func (e *env) before(c *cli.Context) error {
	cfg, err := config.Read()
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	if c.IsSet(flagModelDir) {
		cfg.ModelDir = c.String(flagModelDir)
	}
	if c.IsSet(flagWorkers) {
		cfg.Workers = c.Int(flagWorkers)
	}
	if c.IsSet(flagMinScore) {
		cfg.MinScore = c.Float64(flagMinScore)
	}
	if c.Bool(flagDebug) {
		cfg.LogMode = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	log, err := logger.New(cfg.LogMode, cfg.LogFile)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	e.cfg = cfg
	e.log = log
	return nil
}

func (e *env) after(*cli.Context) error {
	if e.log != nil {
		_ = e.log.Sync()
	}
	return nil
}

func webcamFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    flagWebcam,
		Aliases: []string{"w"},
		Usage:   "which webcam to use (default from WEBCAM, 0)",
	}
}

func (e *env) webcamDevice(c *cli.Context) string {
	if c.IsSet(flagWebcam) {
		return c.String(flagWebcam)
	}
	return e.cfg.Webcam
}
