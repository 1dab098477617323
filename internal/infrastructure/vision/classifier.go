//go:build gocv
// +build gocv

package vision

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"gocv.io/x/gocv"

	"cvbp/internal/domain/entity"
	"cvbp/internal/domain/port"
	"cvbp/internal/infrastructure/labels"
)

// Параметры нормализации ImageNet: (x - mean) * scale, каналы RGB.
const (
	imageNetSide  = 224
	imageNetScale = 1.0 / (0.226 * 255.0)
)

var imageNetMean = gocv.NewScalar(123.675, 116.28, 103.53, 0)

// Loader загружает ONNX-классификаторы из каталога моделей.
type Loader struct {
	dir    string
	labels labels.Table
	log    *zap.Logger
}

// NewLoader создаёт загрузчик моделей <dir>/<name>.onnx.
func NewLoader(dir string, table labels.Table, log *zap.Logger) *Loader {
	return &Loader{dir: dir, labels: table, log: log.Named("classifier")}
}

// Load читает модель с диска.
func (l *Loader) Load(name string) (port.Classifier, error) {
	path := filepath.Join(l.dir, name+".onnx")
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("classifier model %s: %w", name, err)
	}

	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		return nil, fmt.Errorf("failed to read model %s", path)
	}
	l.log.Info("model loaded", zap.String("model", name), zap.String("path", path))

	return &Classifier{name: name, labels: l.labels, net: net}, nil
}

// Classifier классификатор ImageNet на gocv.Net.
type Classifier struct {
	name   string
	labels labels.Table

	mu  sync.Mutex
	net gocv.Net
}

// Classify возвращает TopClasses классов по убыванию вероятности.
func (c *Classifier) Classify(ctx context.Context, img image.Image) ([]entity.Classification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()

	blob := gocv.BlobFromImage(mat, imageNetScale, image.Pt(imageNetSide, imageNetSide), imageNetMean, true, false)
	defer blob.Close()

	c.mu.Lock()
	c.net.SetInput(blob, "")
	out := c.net.Forward("")
	c.mu.Unlock()
	defer out.Close()

	logits, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read logits: %w", err)
	}
	probs := softmax(logits)

	result := make([]entity.Classification, 0, TopClasses)
	for _, i := range topK(probs, TopClasses) {
		result = append(result, entity.Classification{
			Label: c.labels.Lookup(i),
			Index: i,
			Score: probs[i],
			Model: c.name,
		})
	}
	return result, nil
}

func (c *Classifier) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.net.Close()
}
