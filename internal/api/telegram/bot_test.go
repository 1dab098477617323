package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	app "cvbp/internal/application"
	"cvbp/internal/domain/entity"
	"cvbp/internal/domain/port"
	"cvbp/internal/infrastructure/storage"
)

type fakeAPI struct {
	mu         sync.Mutex
	sent       []tgbotapi.Chattable
	updates    chan tgbotapi.Update
	getFileErr error
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) GetFile(config tgbotapi.FileConfig) (tgbotapi.File, error) {
	if f.getFileErr != nil {
		return tgbotapi.File{}, f.getFileErr
	}
	return tgbotapi.File{FileID: config.FileID, FilePath: "photos/" + config.FileID + ".png"}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {}

func (f *fakeAPI) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeAPI) photos() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.sent {
		if _, ok := c.(tgbotapi.PhotoConfig); ok {
			n++
		}
	}
	return n
}

type pngSource struct {
	paths []string
}

func (s *pngSource) Open(_ context.Context, path string) ([]byte, error) {
	s.paths = append(s.paths, path)
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.White)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type stubClassifier struct{ name string }

func (c stubClassifier) Classify(context.Context, image.Image) ([]entity.Classification, error) {
	return []entity.Classification{{Label: "tabby", Index: 281, Score: 0.87, Model: c.name}}, nil
}

func (stubClassifier) Close() error { return nil }

type stubLoader struct{}

func (stubLoader) Load(name string) (port.Classifier, error) { return stubClassifier{name: name}, nil }

type stubAnnotator struct{}

func (stubAnnotator) PutLabel(img image.Image, _ string) (image.Image, error) { return img, nil }

func (stubAnnotator) DrawDetections(img image.Image, _ []entity.Detection) (image.Image, error) {
	return img, nil
}

func newTestBot(t *testing.T) (*Bot, *fakeAPI, *pngSource) {
	t.Helper()
	log := zaptest.NewLogger(t)
	api := &fakeAPI{updates: make(chan tgbotapi.Update, 8)}
	source := &pngSource{}
	predictions := app.NewPredictionService(source, app.Models{Classifiers: stubLoader{}}, nil, log, app.Options{Workers: 1})
	users := app.NewUserService(storage.NewMemoryUserRepository())

	bot := newBot(api, "secret", users, predictions, stubAnnotator{}, source,
		Options{ClassifyModel: "resnet18", RatePerSec: 100}, log)
	return bot, api, source
}

func command(text string) *tgbotapi.Message {
	name, _, _ := strings.Cut(text, " ")
	return &tgbotapi.Message{
		From:     &tgbotapi.User{ID: 1},
		Chat:     &tgbotapi.Chat{ID: 10},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}
}

func photo() *tgbotapi.Message {
	return &tgbotapi.Message{
		From:  &tgbotapi.User{ID: 1},
		Chat:  &tgbotapi.Chat{ID: 10},
		Photo: []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}},
	}
}

func TestBot_PhotoWithoutTask(t *testing.T) {
	bot, api, _ := newTestBot(t)

	bot.handleMessage(context.Background(), photo())

	require.Equal(t, []string{msgChooseTask}, api.texts())
}

func TestBot_ClassifyPhoto(t *testing.T) {
	bot, api, source := newTestBot(t)
	ctx := context.Background()

	bot.handleMessage(ctx, command("/classify"))
	bot.handleMessage(ctx, photo())

	texts := api.texts()
	require.Len(t, texts, 3)
	require.Contains(t, texts[0], "classify")
	require.Equal(t, msgProcessing, texts[1])
	require.Equal(t, "0.87,tabby,resnet18,large", texts[2])
	require.Equal(t, 1, api.photos())

	require.Equal(t, []string{"https://api.telegram.org/file/botsecret/photos/large.png"}, source.paths)

	user, err := bot.users.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingPhoto, user.State)
}

func TestBot_DetectWithoutDetectorReportsTraceID(t *testing.T) {
	bot, api, _ := newTestBot(t)
	ctx := context.Background()

	bot.handleMessage(ctx, command("/detect"))
	bot.handleMessage(ctx, photo())

	texts := api.texts()
	require.Len(t, texts, 3)
	require.True(t, strings.HasPrefix(texts[2], "⚠️"), texts[2])
	require.Zero(t, api.photos())
}

// brokenSource повторяет ошибку go-getter, в которой виден весь URL.
type brokenSource struct{}

func (brokenSource) Open(_ context.Context, path string) ([]byte, error) {
	return nil, fmt.Errorf("download %s: bad response code: 404", path)
}

func TestBot_DownloadFailureHidesToken(t *testing.T) {
	const token = "123456:SECRET-BOT-TOKEN"

	cases := []struct {
		name       string
		getFileErr error
	}{
		{name: "get file", getFileErr: errors.New("telegram: file is too big")},
		{name: "open", getFileErr: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			log := zap.New(core)
			api := &fakeAPI{updates: make(chan tgbotapi.Update, 1), getFileErr: tc.getFileErr}
			source := brokenSource{}
			predictions := app.NewPredictionService(source, app.Models{Classifiers: stubLoader{}}, nil, log, app.Options{Workers: 1})
			users := app.NewUserService(storage.NewMemoryUserRepository())
			bot := newBot(api, token, users, predictions, stubAnnotator{}, source,
				Options{ClassifyModel: "resnet18", RatePerSec: 100}, log)

			ctx := context.Background()
			bot.handleMessage(ctx, command("/classify"))
			bot.handleMessage(ctx, photo())

			texts := api.texts()
			require.Len(t, texts, 3)
			require.True(t, strings.HasPrefix(texts[2], "⚠️"), texts[2])

			failed := logs.FilterMessage("processing failed").All()
			require.Len(t, failed, 1)
			traceID, ok := failed[0].ContextMap()["trace_id"].(string)
			require.True(t, ok)
			require.Contains(t, texts[2], traceID)

			for _, entry := range logs.All() {
				for key, value := range entry.ContextMap() {
					require.NotContains(t, fmt.Sprint(value), token, "field %q of %q", key, entry.Message)
				}
			}
			for _, text := range texts {
				require.NotContains(t, text, token)
			}
		})
	}
}

func TestBot_Commands(t *testing.T) {
	bot, api, _ := newTestBot(t)
	ctx := context.Background()

	bot.handleMessage(ctx, command("/start"))
	bot.handleMessage(ctx, command("/help"))
	bot.handleMessage(ctx, command("/mask"))
	bot.handleMessage(ctx, command("/cancel"))
	bot.handleMessage(ctx, command("/stop"))
	bot.handleMessage(ctx, command("/unknown"))

	texts := api.texts()
	require.Equal(t, msgStart, texts[0])
	require.Equal(t, msgHelp, texts[1])
	require.Contains(t, texts[2], "mask")
	require.Equal(t, msgCancelled, texts[3])
	require.Equal(t, msgForgotten, texts[4])
	require.Equal(t, msgUnknownCommand, texts[5])
}

func TestBot_RunStopsOnCancel(t *testing.T) {
	bot, api, _ := newTestBot(t)
	ctx, cancel := context.WithCancel(context.Background())

	api.updates <- tgbotapi.Update{Message: command("/help")}
	api.updates <- tgbotapi.Update{}

	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx) }()

	require.Eventually(t, func() bool { return len(api.texts()) == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "abc", truncate("abc", 10))
	require.Equal(t, "ab", truncate("abcdef", 2))
	// "ж" занимает два байта и не режется пополам
	require.Equal(t, "a", truncate("aжb", 2))
}

func TestBot_AnnotateFitsPhoto(t *testing.T) {
	bot, _, _ := newTestBot(t)

	data, err := bot.annotate(&app.Outcome{
		Image:           image.NewRGBA(image.Rect(0, 0, 3000, 1000)),
		Classifications: []entity.Classification{{Label: "tabby", Score: 0.5}},
	})
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, MaxPhotoSide, cfg.Width)
	require.InDelta(t, 427, cfg.Height, 1)

	data, err = bot.annotate(&app.Outcome{Image: image.NewRGBA(image.Rect(0, 0, 10, 10))})
	require.NoError(t, err)
	require.Nil(t, data)
}
