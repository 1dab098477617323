package cli

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	app "cvbp/internal/application"
	"cvbp/internal/api/telegram"
	"cvbp/internal/container"
	"cvbp/internal/domain/entity"
)

var errNoPaths = errors.New("at least one path or url is required")

func (e *env) classify(c *cli.Context) error {
	model := c.String(flagModel)
	if model == app.ModelList {
		for _, m := range app.ClassifierModels {
			fmt.Fprintln(e.out, m)
		}
		return nil
	}

	models, err := app.SelectModels(model, e.cfg.ClassifyModel)
	if err != nil {
		if model == "" {
			model = e.cfg.ClassifyModel
		}
		return cli.Exit(fmt.Sprintf("Selected model '%s' is not known.", model), 1)
	}

	paths := c.Args().Slice()
	if len(paths) == 0 {
		if len(models) > 1 {
			return cli.Exit("Cannot utilise all models from the webcam. Do not choose --model=all.", 1)
		}
		return e.live(c, liveClassify, models[0])
	}

	ct, err := e.container(c, container.WithClassifiers)
	if err != nil {
		return err
	}
	defer e.closeContainer(ct)

	results, err := ct.Predictions.Classify(c.Context, paths, models)
	if err != nil {
		return err
	}
	e.printResults(results)
	return nil
}

func (e *env) tag(c *cli.Context) error {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return cli.Exit(errNoPaths.Error(), 1)
	}

	ct, err := e.container(c, container.WithClassifiers)
	if err != nil {
		return err
	}
	defer e.closeContainer(ct)

	results, err := ct.Predictions.Tag(c.Context, paths)
	if err != nil {
		return err
	}
	e.printResults(results)
	return nil
}

func (e *env) detect(c *cli.Context) error {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return e.live(c, liveDetect, "")
	}

	ct, err := e.container(c, container.WithDetector)
	if err != nil {
		return err
	}
	defer e.closeContainer(ct)

	results, err := ct.Predictions.Detect(c.Context, paths)
	if err != nil {
		return err
	}
	e.printResults(results)
	return nil
}

func (e *env) mask(c *cli.Context) error {
	paths := c.Args().Slice()
	if len(paths) == 0 {
		return cli.Exit(errNoPaths.Error(), 1)
	}

	ct, err := e.container(c, container.WithSegmenter)
	if err != nil {
		return err
	}
	defer e.closeContainer(ct)

	if !c.Bool(flagShow) {
		results, err := ct.Predictions.Mask(c.Context, paths)
		if err != nil {
			return err
		}
		e.printResults(results)
		return nil
	}

	// с показом изображения обрабатываем пути по одному
	for _, path := range paths {
		data, err := ct.Source.Open(c.Context, path)
		if err != nil {
			e.printResults([]app.Result{{Path: path, Err: fmt.Errorf("%w: %w", app.ErrUnreadableImage, err)}})
			continue
		}

		out, err := ct.Predictions.Predict(c.Context, entity.TaskMask, "", data, path)
		if err != nil {
			e.printResults([]app.Result{{Path: path, Err: err}})
			continue
		}
		e.printResults([]app.Result{{Path: path, Lines: out.Lines}})

		img, err := ct.Annotator.DrawDetections(out.Image, out.Detections)
		if err != nil {
			return err
		}
		if err := e.show(c.Context, path, img); err != nil {
			return err
		}
	}
	return nil
}

func (e *env) bot(c *cli.Context) error {
	if err := e.cfg.RequireBot(); err != nil {
		return cli.Exit(err.Error(), 1)
	}

	ct, err := e.container(c, container.WithClassifiers|container.WithDetector|container.WithSegmenter|container.WithCache)
	if err != nil {
		return err
	}
	defer e.closeContainer(ct)

	bot, err := telegram.NewBot(e.cfg.TelegramToken, ct, telegram.Options{
		ClassifyModel: e.cfg.ClassifyModel,
		RatePerSec:    e.cfg.BotRatePerSec,
	}, e.log)
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	e.log.Info("bot is running")
	return bot.Run(c.Context)
}

func (e *env) container(c *cli.Context, need container.Components) (*container.Container, error) {
	ct, err := e.build(c.Context, e.cfg, e.log, need)
	if errors.Is(err, container.ErrLabels) {
		e.log.Debug("labels", zap.Error(err))
		return nil, cli.Exit("Failed to obtain labels probably because of a network connection error.", 1)
	}
	if err != nil {
		return nil, cli.Exit(err.Error(), 1)
	}
	return ct, nil
}

func (e *env) closeContainer(ct *container.Container) {
	if err := ct.Close(); err != nil {
		e.log.Warn("close", zap.Error(err))
	}
}

// printResults пишет строки в out в порядке входных путей;
// нечитаемые изображения пропускаются с предупреждением.
func (e *env) printResults(results []app.Result) {
	for _, r := range results {
		if r.Err != nil {
			if errors.Is(r.Err, app.ErrUnreadableImage) {
				fmt.Fprintf(e.errOut, "'%s' may not be an image file and will be skipped.\n", r.Path)
			} else {
				e.log.Error("prediction failed", zap.String("path", r.Path), zap.Error(r.Err))
			}
			continue
		}
		for _, line := range r.Lines {
			fmt.Fprintln(e.out, line)
		}
	}
}
