//go:build gocv
// +build gocv

package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"cvbp/internal/domain/entity"
)

// Annotator рисует подписи и рамки средствами OpenCV.
type Annotator struct{}

func NewAnnotator() *Annotator {
	return &Annotator{}
}

// PutLabel пишет текст по центру верхнего края.
func (a *Annotator) PutLabel(img image.Image, text string) (image.Image, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()

	size := gocv.GetTextSize(text, gocv.FontHersheySimplex, TextScale, LineWidth)
	gocv.PutText(&mat, text, labelOrigin(mat.Cols(), size), gocv.FontHersheySimplex, TextScale, TextColor, LineWidth)

	return mat.ToImage()
}

// DrawDetections закрашивает маски, затем рисует рамки с подписями.
func (a *Annotator) DrawDetections(img image.Image, detections []entity.Detection) (image.Image, error) {
	mat, err := gocv.ImageToMatRGB(tintMasks(img, detections))
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()

	for _, d := range detections {
		rect := image.Rect(d.Box.Left, d.Box.Top, d.Box.Right, d.Box.Bottom)
		gocv.Rectangle(&mat, rect, TextColor, LineWidth)

		text := fmt.Sprintf("%s %.2f", d.Label, d.Score)
		size := gocv.GetTextSize(text, gocv.FontHersheySimplex, TextScale, LineWidth)
		org := image.Pt(d.Box.Left, max(d.Box.Top-5, size.Y))
		gocv.PutText(&mat, text, org, gocv.FontHersheySimplex, TextScale, TextColor, LineWidth)
	}

	return mat.ToImage()
}
