package app

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync"
	"sync/atomic"
	"time"

	"cvbp/internal/domain/entity"
	"cvbp/internal/domain/port"
)

func pngBytes(w, h int) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// memSource отдаёт содержимое по пути; для отсутствующего пути возвращает ошибку чтения.
type memSource map[string][]byte

func (s memSource) Open(_ context.Context, path string) ([]byte, error) {
	data, ok := s[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return data, nil
}

type fakeClassifier struct {
	name   string
	label  string
	delay  func(img image.Image) time.Duration
	closed atomic.Bool
}

func (c *fakeClassifier) Classify(ctx context.Context, img image.Image) ([]entity.Classification, error) {
	if c.delay != nil {
		time.Sleep(c.delay(img))
	}
	return []entity.Classification{
		{Label: c.label, Index: img.Bounds().Dx(), Score: 0.87, Model: c.name},
		{Label: "other", Index: 0, Score: 0.1, Model: c.name},
	}, nil
}

func (c *fakeClassifier) Close() error {
	c.closed.Store(true)
	return nil
}

type fakeLoader struct {
	mu     sync.Mutex
	loads  map[string]int
	loaded map[string]*fakeClassifier
	delay  func(img image.Image) time.Duration
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{loads: map[string]int{}, loaded: map[string]*fakeClassifier{}}
}

func (l *fakeLoader) Load(name string) (port.Classifier, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads[name]++
	c := &fakeClassifier{name: name, label: "tabby", delay: l.delay}
	l.loaded[name] = c
	return c, nil
}

type fakeDetector struct {
	calls      atomic.Int32
	detections []entity.Detection
	closeErr   error
}

func (d *fakeDetector) Detect(context.Context, image.Image) ([]entity.Detection, error) {
	d.calls.Add(1)
	return d.detections, nil
}

func (d *fakeDetector) Segment(ctx context.Context, img image.Image) ([]entity.Detection, error) {
	return d.Detect(ctx, img)
}

func (d *fakeDetector) Close() error { return d.closeErr }

type fakeAnnotator struct {
	labels []string
	drawn  int
}

func (a *fakeAnnotator) PutLabel(img image.Image, text string) (image.Image, error) {
	a.labels = append(a.labels, text)
	return img, nil
}

func (a *fakeAnnotator) DrawDetections(img image.Image, _ []entity.Detection) (image.Image, error) {
	a.drawn++
	return img, nil
}

// scriptedCamera возвращает кадры и ошибки по очереди, затем повторяет последний кадр.
type scriptedCamera struct {
	script []error
	reads  int
}

func (c *scriptedCamera) Read(context.Context) (image.Image, error) {
	c.reads++
	if c.reads <= len(c.script) && c.script[c.reads-1] != nil {
		return nil, c.script[c.reads-1]
	}
	return image.NewRGBA(image.Rect(0, 0, 3, 3)), nil
}

func (c *scriptedCamera) Close() error { return nil }

// countingDisplay сообщает о закрытии окна после closeAfter кадров.
type countingDisplay struct {
	shown      int
	closeAfter int
}

func (d *countingDisplay) Show(image.Image) (bool, error) {
	d.shown++
	return d.shown >= d.closeAfter, nil
}

func (d *countingDisplay) Close() error { return nil }
