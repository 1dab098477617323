package vision

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sort"

	"cvbp/internal/domain/entity"
	"cvbp/internal/domain/port"
)

// ErrGoCVDisabled возвращается моделями и устройствами в сборке без тега gocv.
var ErrGoCVDisabled = errors.New("gocv build tag is not enabled")

const (
	// TextScale размер шрифта подписи
	TextScale = 0.75
	// LineWidth толщина линий и текста
	LineWidth = 2
	// TopClasses сколько классов возвращает классификатор
	TopClasses = 5
)

// TextColor цвет подписей и рамок.
var TextColor = color.RGBA{G: 255, A: 255}

var maskPalette = []color.RGBA{
	{R: 255, A: 255},
	{G: 255, A: 255},
	{B: 255, A: 255},
	{R: 255, G: 255, A: 255},
	{R: 255, B: 255, A: 255},
	{G: 255, B: 255, A: 255},
}

var (
	_ port.ClassifierLoader = (*Loader)(nil)
	_ port.Classifier       = (*Classifier)(nil)
	_ port.Detector         = (*Detector)(nil)
	_ port.Segmenter        = (*Segmenter)(nil)
	_ port.Annotator        = (*Annotator)(nil)
	_ port.Camera           = (*Camera)(nil)
	_ port.Display          = (*Window)(nil)
)

// rawDetection строка выхода DetectionOutput в пикселях.
type rawDetection struct {
	row     int
	classID int
	score   float64
	box     entity.BoundingBox
}

// parseDetections разбирает строки [batch, class, score, left, top, right, bottom]
// с нормализованными координатами.
func parseDetections(data []float32, width, height int) []rawDetection {
	var out []rawDetection
	for row := 0; (row+1)*7 <= len(data); row++ {
		v := data[row*7 : row*7+7]
		if v[0] < 0 || v[2] <= 0 {
			continue
		}
		out = append(out, rawDetection{
			row:     row,
			classID: int(v[1]),
			score:   float64(v[2]),
			box: clampBox(entity.BoundingBox{
				Left:   int(math.Round(float64(v[3]) * float64(width))),
				Top:    int(math.Round(float64(v[4]) * float64(height))),
				Right:  int(math.Round(float64(v[5]) * float64(width))),
				Bottom: int(math.Round(float64(v[6]) * float64(height))),
			}, width, height),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}

func clampBox(b entity.BoundingBox, width, height int) entity.BoundingBox {
	b.Left = clamp(b.Left, 0, width)
	b.Right = clamp(b.Right, b.Left, width)
	b.Top = clamp(b.Top, 0, height)
	b.Bottom = clamp(b.Bottom, b.Top, height)
	return b
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func softmax(logits []float32) []float64 {
	if len(logits) == 0 {
		return nil
	}
	maxLogit := logits[0]
	for _, l := range logits[1:] {
		if l > maxLogit {
			maxLogit = l
		}
	}

	probs := make([]float64, len(logits))
	var total float64
	for i, l := range logits {
		probs[i] = math.Exp(float64(l - maxLogit))
		total += probs[i]
	}
	for i := range probs {
		probs[i] /= total
	}
	return probs
}

// topK индексы k наибольших значений по убыванию.
func topK(values []float64, k int) []int {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] > values[idx[b]] })
	if k < len(idx) {
		idx = idx[:k]
	}
	return idx
}

// pasteMask растягивает маску mh x mw на рамку и кладёт её в сетку height x width.
func pasteMask(probs []float32, mh, mw int, box entity.BoundingBox, height, width int) []float32 {
	out := make([]float32, height*width)
	bw, bh := box.Width(), box.Height()
	if bw <= 0 || bh <= 0 || mh <= 0 || mw <= 0 || len(probs) < mh*mw {
		return out
	}

	for y := box.Top; y < box.Bottom && y < height; y++ {
		sy := (float64(y-box.Top)+0.5)*float64(mh)/float64(bh) - 0.5
		for x := box.Left; x < box.Right && x < width; x++ {
			sx := (float64(x-box.Left)+0.5)*float64(mw)/float64(bw) - 0.5
			out[y*width+x] = bilinear(probs, mh, mw, sy, sx)
		}
	}
	return out
}

func bilinear(src []float32, h, w int, y, x float64) float32 {
	y = math.Max(0, math.Min(y, float64(h-1)))
	x = math.Max(0, math.Min(x, float64(w-1)))

	y0, x0 := int(y), int(x)
	y1, x1 := min(y0+1, h-1), min(x0+1, w-1)
	dy, dx := float32(y-float64(y0)), float32(x-float64(x0))

	top := src[y0*w+x0]*(1-dx) + src[y0*w+x1]*dx
	bottom := src[y1*w+x0]*(1-dx) + src[y1*w+x1]*dx
	return top*(1-dy) + bottom*dy
}

func toRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// tintMasks закрашивает пиксели масок полупрозрачным цветом.
// Маски другого размера пропускаются.
func tintMasks(img image.Image, detections []entity.Detection) *image.RGBA {
	out := toRGBA(img)
	w, h := out.Bounds().Dx(), out.Bounds().Dy()

	for i, d := range detections {
		m := d.Mask
		if m == nil || m.Height() != h || m.Width() != w {
			continue
		}
		tint := maskPalette[i%len(maskPalette)]
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if m.At(y, x) == 0 {
					continue
				}
				px := out.RGBAAt(x, y)
				out.SetRGBA(x, y, color.RGBA{
					R: uint8((uint16(px.R) + uint16(tint.R)) / 2),
					G: uint8((uint16(px.G) + uint16(tint.G)) / 2),
					B: uint8((uint16(px.B) + uint16(tint.B)) / 2),
					A: 255,
				})
			}
		}
	}
	return out
}

// labelOrigin точка подписи по центру верхнего края.
func labelOrigin(imageWidth int, textSize image.Point) image.Point {
	return image.Pt((imageWidth-textSize.X)/2, textSize.Y+5)
}
