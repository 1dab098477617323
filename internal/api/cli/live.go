package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	app "cvbp/internal/application"
	"cvbp/internal/container"
	"cvbp/internal/infrastructure/vision"
)

type liveMode string

const (
	liveClassify liveMode = "ic"
	liveDetect   liveMode = "od"
)

const msgCloseWindow = "\nPress any key in the window or close it to quit."

var demoSteps = []struct {
	title string
	text  string
	mode  liveMode
}{
	{
		title: "Webcam Classification",
		text: `This demonstration will turn on your webcam (if it is accessible) and
begin classifying the primary object within the frame of the webcam. If
you have multiple webcams and the wrong one is selected, try selecting
others with --webcam=1, for example.`,
		mode: liveClassify,
	},
	{
		title: "Webcam Object Detection",
		text: `This demonstration will turn on your webcam (if it is accessible) and
begin identifying objects within the frame of the webcam.`,
		mode: liveDetect,
	},
}

func (e *env) webcam(c *cli.Context) error {
	mode := liveMode(c.Args().First())
	switch mode {
	case liveClassify:
		return e.live(c, mode, e.cfg.ClassifyModel)
	case liveDetect:
		return e.live(c, mode, "")
	default:
		return cli.Exit(fmt.Sprintf("unknown webcam mode %q, use ic or od", mode), 1)
	}
}

func (e *env) live(c *cli.Context, mode liveMode, model string) error {
	need := container.WithDetector
	if mode == liveClassify {
		need = container.WithClassifiers
	}

	ct, err := e.container(c, need)
	if err != nil {
		return err
	}
	defer e.closeContainer(ct)

	return e.runLive(c.Context, ct, e.webcamDevice(c), mode, model)
}

func (e *env) demo(c *cli.Context) error {
	ct, err := e.container(c, container.WithClassifiers|container.WithDetector)
	if err != nil {
		return err
	}
	defer e.closeContainer(ct)

	banner(e.out, "Computer Vision Best Practice",
		"This demo runs several examples of computer vision tasks. All of the\n"+
			"functionality is also available as cvbp commands.")

	reader := bufio.NewReader(e.in)
	for _, step := range demoSteps {
		fmt.Fprint(e.out, "Press Enter to continue: ")
		if _, err := reader.ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
			return err
		}

		banner(e.out, step.title, step.text)
		if err := e.runLive(c.Context, ct, e.webcamDevice(c), step.mode, app.DefaultTagModel); err != nil {
			return err
		}
		if c.Context.Err() != nil {
			return nil
		}
	}
	return nil
}

func (e *env) runLive(ctx context.Context, ct *container.Container, device string, mode liveMode, model string) error {
	var (
		process app.FrameFunc
		err     error
	)
	if mode == liveClassify {
		process, err = ct.Live.ClassifyFrames(model)
	} else {
		process, err = ct.Live.DetectFrames()
	}
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	camera, err := vision.OpenCamera(device)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Unable to load camera! %v", err), 1)
	}
	defer camera.Close()

	window, err := vision.NewWindow("cvbp " + string(mode))
	if err != nil {
		return err
	}
	defer window.Close()

	fmt.Fprintln(e.errOut, msgCloseWindow)
	return ct.Live.Run(ctx, camera, window, process)
}

// show держит изображение в окне, пока его не закроют.
func (e *env) show(ctx context.Context, title string, img image.Image) error {
	window, err := vision.NewWindow(title)
	if err != nil {
		return err
	}
	defer window.Close()

	fmt.Fprintln(e.errOut, msgCloseWindow)
	for ctx.Err() == nil {
		closed, err := window.Show(img)
		if err != nil {
			return err
		}
		if closed {
			return nil
		}
	}
	return nil
}

func banner(w io.Writer, title, text string) {
	fmt.Fprintln(w)
	color.New(color.FgCyan, color.Bold).Fprintln(w, title)
	fmt.Fprintln(w)
	fmt.Fprintln(w, text)
	fmt.Fprintln(w)
}
