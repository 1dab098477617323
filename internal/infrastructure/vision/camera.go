//go:build gocv
// +build gocv

package vision

import (
	"context"
	"fmt"
	"image"

	"go.uber.org/multierr"
	"gocv.io/x/gocv"

	"cvbp/internal/domain/port"
)

// Camera веб-камера или видеофайл.
type Camera struct {
	device  string
	capture *gocv.VideoCapture
	frame   gocv.Mat
}

// OpenCamera открывает устройство по номеру или пути.
func OpenCamera(device string) (*Camera, error) {
	capture, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("unable to load camera %s: %w", device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("unable to load camera %s", device)
	}

	return &Camera{device: device, capture: capture, frame: gocv.NewMat()}, nil
}

// Read читает кадр; пустой кадр даёт port.ErrEmptyFrame.
func (c *Camera) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ok := c.capture.Read(&c.frame); !ok {
		return nil, fmt.Errorf("cannot read webcam device: %s", c.device)
	}
	if c.frame.Empty() {
		return nil, port.ErrEmptyFrame
	}
	return c.frame.ToImage()
}

func (c *Camera) Close() error {
	return multierr.Combine(c.frame.Close(), c.capture.Close())
}

// Window окно OpenCV; нажатие клавиши или закрытие окна завершает показ.
type Window struct {
	window *gocv.Window
}

func NewWindow(title string) (*Window, error) {
	return &Window{window: gocv.NewWindow(title)}, nil
}

// Show показывает кадр и ждёт до 100 мс нажатия клавиши.
func (w *Window) Show(img image.Image) (bool, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return false, fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()

	w.window.IMShow(mat)
	if w.window.WaitKey(100) >= 0 {
		return true, nil
	}
	return !w.window.IsOpen(), nil
}

func (w *Window) Close() error {
	return w.window.Close()
}
