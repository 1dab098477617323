//go:build gocv
// +build gocv

package vision

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"cvbp/internal/domain/entity"
	"cvbp/internal/domain/rle"
	"cvbp/internal/infrastructure/labels"
)

const (
	boxesLayer = "detection_out_final"
	masksLayer = "detection_masks"
)

// Detector детектор Faster R-CNN (граф TensorFlow) на gocv.Net.
type Detector struct {
	mu  sync.Mutex
	net gocv.Net
	log *zap.Logger
}

// NewDetector читает граф model с текстовым описанием config.
func NewDetector(model, config string, log *zap.Logger) (*Detector, error) {
	net, err := readNet(model, config)
	if err != nil {
		return nil, err
	}
	log.Named("detector").Info("model loaded", zap.String("path", model))
	return &Detector{net: net, log: log.Named("detector")}, nil
}

// Detect возвращает объекты по убыванию уверенности.
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]entity.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	blob, width, height, err := detectionBlob(img)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	d.mu.Lock()
	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	d.mu.Unlock()
	defer out.Close()

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read detections: %w", err)
	}

	raw := parseDetections(data, width, height)
	result := make([]entity.Detection, 0, len(raw))
	for _, r := range raw {
		result = append(result, entity.Detection{
			Label: labels.COCOLabel(r.classID),
			Score: r.score,
			Box:   r.box,
		})
	}
	return result, nil
}

func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}

// Segmenter сегментатор Mask R-CNN (граф TensorFlow) на gocv.Net.
type Segmenter struct {
	threshold float32

	mu  sync.Mutex
	net gocv.Net
	log *zap.Logger
}

// NewSegmenter читает граф Mask R-CNN; threshold бинаризует маски.
func NewSegmenter(model, config string, threshold float32, log *zap.Logger) (*Segmenter, error) {
	net, err := readNet(model, config)
	if err != nil {
		return nil, err
	}
	log.Named("segmenter").Info("model loaded", zap.String("path", model))
	return &Segmenter{threshold: threshold, net: net, log: log.Named("segmenter")}, nil
}

// Segment возвращает объекты с масками во весь размер изображения.
func (s *Segmenter) Segment(ctx context.Context, img image.Image) (_ []entity.Detection, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	blob, width, height, err := detectionBlob(img)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	s.mu.Lock()
	s.net.SetInput(blob, "")
	outs := s.net.ForwardLayers([]string{boxesLayer, masksLayer})
	s.mu.Unlock()
	defer func() {
		for i := range outs {
			err = multierr.Append(err, outs[i].Close())
		}
	}()

	if len(outs) != 2 {
		return nil, fmt.Errorf("mask r-cnn returned %d outputs", len(outs))
	}

	boxes, err := outs[0].DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read boxes: %w", err)
	}
	masks, err := outs[1].DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read masks: %w", err)
	}

	// detection_masks: [N, classes, mh, mw]
	size := outs[1].Size()
	if len(size) != 4 {
		return nil, fmt.Errorf("unexpected mask shape %v", size)
	}
	classes, mh, mw := size[1], size[2], size[3]

	raw := parseDetections(boxes, width, height)
	result := make([]entity.Detection, 0, len(raw))
	for _, r := range raw {
		offset := (r.row*classes + r.classID) * mh * mw
		if r.classID < 0 || r.classID >= classes || offset+mh*mw > len(masks) {
			s.log.Warn("mask is missing", zap.Int("row", r.row), zap.Int("class", r.classID))
			continue
		}

		probs := pasteMask(masks[offset:offset+mh*mw], mh, mw, r.box, height, width)
		mask, err := rle.Binarize(height, width, probs, s.threshold)
		if err != nil {
			return nil, err
		}

		result = append(result, entity.Detection{
			Label: labels.COCOLabel(r.classID),
			Score: r.score,
			Box:   r.box,
			Mask:  mask,
		})
	}
	return result, nil
}

func (s *Segmenter) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.net.Close()
}

func readNet(model, config string) (gocv.Net, error) {
	for _, path := range []string{model, config} {
		if _, err := os.Stat(path); err != nil {
			return gocv.Net{}, fmt.Errorf("model file: %w", err)
		}
	}

	net := gocv.ReadNet(model, config)
	if net.Empty() {
		return net, fmt.Errorf("failed to read model %s", model)
	}
	return net, nil
}

func detectionBlob(img image.Image) (gocv.Mat, int, int, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.Mat{}, 0, 0, fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()

	width, height := mat.Cols(), mat.Rows()
	blob := gocv.BlobFromImage(mat, 1.0, image.Pt(width, height), gocv.NewScalar(0, 0, 0, 0), true, false)
	return blob, width, height, nil
}
