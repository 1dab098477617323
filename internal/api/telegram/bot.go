package telegram

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"strings"
	"unicode/utf8"

	"github.com/disintegration/imaging"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	app "cvbp/internal/application"
	"cvbp/internal/container"
	"cvbp/internal/domain/entity"
	"cvbp/internal/domain/port"
)

const (
	// MaxMessageLength предел длины текста сообщения Telegram.
	MaxMessageLength = 4096
	// MaxPhotoSide большая сторона отправляемого фото.
	MaxPhotoSide = 1280
)

const (
	msgStart = `👋 Привет! Я распознаю объекты на фотографиях предобученными моделями.

📋 Команды:
/classify — определить, что на фото
/tag — короткий тег для фото
/detect — найти объекты и обвести их рамками
/mask — найти объекты и построить их маски
/help — справка
/cancel — отменить текущую операцию
/stop — забыть мои настройки`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Выберите задачу: /classify, /tag, /detect или /mask
2️⃣ Отправьте фото
3️⃣ Получите строки результата и фото с разметкой

Формат строк:
classify — score,label,model,file
tag — score,label,file
detect — score,label,left,top,right,bottom,file
mask — score,label,left,top,right,bottom,height,width,counts...,file`

	msgAwaitingPhoto   = "📸 Отправьте фото для задачи %s."
	msgCancelled       = "❌ Операция отменена. Выберите задачу: /classify, /tag, /detect или /mask."
	msgForgotten       = "🗑 Настройки удалены. Отправьте /start, чтобы начать заново."
	msgChooseTask      = "📋 Сначала выберите задачу: /classify, /tag, /detect или /mask."
	msgUnknownCommand  = "❓ Неизвестная команда. Используйте /help для справки."
	msgProcessing      = "⏳ Обрабатываю изображение..."
	msgNothingFound    = "🤷 Ничего не найдено."
	msgProcessingError = "⚠️ Не удалось обработать изображение. Код ошибки: %s"
)

// botAPI часть tgbotapi.BotAPI, которой пользуется бот.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFile(config tgbotapi.FileConfig) (tgbotapi.File, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Options настройки бота.
type Options struct {
	ClassifyModel string
	RatePerSec    float64
}

// Bot представляет Telegram-бота
type Bot struct {
	api   botAPI
	token string

	users       *app.UserService
	predictions *app.PredictionService
	annotator   port.Annotator
	source      port.ImageSource

	classifyModel string
	limiter       *rate.Limiter
	log           *zap.Logger
}

// NewBot создаёт нового бота
func NewBot(token string, c *container.Container, opts Options, log *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Info("authorized on account", zap.String("username", api.Self.UserName))

	return newBot(api, token, c.UserService, c.Predictions, c.Annotator, c.Source, opts, log), nil
}

func newBot(api botAPI, token string, users *app.UserService, predictions *app.PredictionService,
	annotator port.Annotator, source port.ImageSource, opts Options, log *zap.Logger) *Bot {
	return &Bot{
		api:           api,
		token:         token,
		users:         users,
		predictions:   predictions,
		annotator:     annotator,
		source:        source,
		classifyModel: opts.ClassifyModel,
		limiter:       rate.NewLimiter(rate.Limit(opts.RatePerSec), 1),
		log:           log.Named("telegram"),
	}
}

// Run запускает основной цикл обработки сообщений до отмены контекста
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}

	user, err := b.users.Get(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil {
		b.log.Error("get user", zap.Int64("user_id", msg.From.ID), zap.Error(err))
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	if len(msg.Photo) > 0 {
		if user.State != entity.StateAwaitingPhoto {
			b.sendMessage(msg.Chat.ID, msgChooseTask)
			return
		}
		b.handlePhoto(ctx, msg, user)
		return
	}

	b.sendMessage(msg.Chat.ID, msgChooseTask)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	userID, chatID := msg.From.ID, msg.Chat.ID

	switch cmd := msg.Command(); cmd {
	case "start":
		if _, err := b.users.Cancel(ctx, userID, chatID); err != nil {
			b.log.Error("reset user", zap.Error(err))
		}
		b.sendMessage(chatID, msgStart)

	case "help":
		b.sendMessage(chatID, msgHelp)

	case "classify", "tag", "detect", "mask":
		task, _ := entity.ParseTask(cmd)
		if _, err := b.users.SelectTask(ctx, userID, chatID, task); err != nil {
			b.log.Error("select task", zap.Error(err))
			return
		}
		b.sendMessage(chatID, fmt.Sprintf(msgAwaitingPhoto, task))

	case "cancel":
		if _, err := b.users.Cancel(ctx, userID, chatID); err != nil {
			b.log.Error("cancel", zap.Error(err))
		}
		b.sendMessage(chatID, msgCancelled)

	case "stop":
		if err := b.users.Forget(ctx, userID); err != nil {
			b.log.Error("forget user", zap.Error(err))
		}
		b.sendMessage(chatID, msgForgotten)

	default:
		b.sendMessage(chatID, msgUnknownCommand)
	}
}

// handlePhoto распознаёт фото выбранной задачей
func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	chatID := msg.Chat.ID
	if _, err := b.users.SetState(ctx, user.ID, chatID, entity.StateProcessing); err != nil {
		b.log.Error("set state", zap.Error(err))
	}
	defer func() {
		if _, err := b.users.SetState(ctx, user.ID, chatID, entity.StateAwaitingPhoto); err != nil {
			b.log.Error("set state", zap.Error(err))
		}
	}()

	b.sendMessage(chatID, msgProcessing)

	// Получаем файл с максимальным разрешением
	photo := msg.Photo[len(msg.Photo)-1]

	out, err := b.recognize(ctx, user.Task, photo.FileID)
	if err != nil {
		b.reportError(chatID, user, err)
		return
	}

	if len(out.Lines) == 0 {
		b.sendMessage(chatID, msgNothingFound)
	} else {
		b.sendMessage(chatID, truncate(strings.Join(out.Lines, "\n"), MaxMessageLength))
	}

	annotated, err := b.annotate(out)
	if err != nil {
		b.log.Warn("annotate result", zap.Error(err))
		return
	}
	if annotated != nil {
		b.sendPhoto(chatID, annotated)
	}
}

func (b *Bot) recognize(ctx context.Context, task entity.Task, fileID string) (*app.Outcome, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	data, err := b.downloadFile(ctx, fileID)
	if err != nil {
		return nil, err
	}

	model := ""
	if task == entity.TaskClassify {
		model = b.classifyModel
	}
	return b.predictions.Predict(ctx, task, model, data, fileID)
}

// annotate рисует рамки или подпись; nil, если рисовать нечего.
func (b *Bot) annotate(out *app.Outcome) ([]byte, error) {
	var (
		img image.Image
		err error
	)
	switch {
	case len(out.Detections) > 0:
		img, err = b.annotator.DrawDetections(out.Image, out.Detections)
	case len(out.Classifications) > 0:
		top := out.Classifications[0]
		img, err = b.annotator.PutLabel(out.Image, fmt.Sprintf("%s (%.2f)", top.Label, top.Score))
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	img = imaging.Fit(img, MaxPhotoSide, MaxPhotoSide, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (b *Bot) reportError(chatID int64, user *entity.User, err error) {
	traceID := uuid.NewString()
	b.log.Error("processing failed",
		zap.String("trace_id", traceID),
		zap.Int64("user_id", user.ID),
		zap.String("task", string(user.Task)),
		zap.Error(err))

	if errors.Is(err, context.Canceled) {
		return
	}
	b.sendMessage(chatID, fmt.Sprintf(msgProcessingError, traceID))
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	data, err := b.source.Open(ctx, file.Link(b.token))
	if err != nil {
		return nil, &tokenError{err: fmt.Errorf("download file: %w", err), token: b.token}
	}
	return data, nil
}

// tokenError вырезает токен бота из текста ошибки.
type tokenError struct {
	err   error
	token string
}

func (e *tokenError) Error() string {
	if e.token == "" {
		return e.err.Error()
	}
	return strings.ReplaceAll(e.err.Error(), e.token, "<token>")
}

func (e *tokenError) Unwrap() error { return e.err }

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) sendPhoto(chatID int64, jpegData []byte) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "result.jpg", Bytes: jpegData})
	if _, err := b.api.Send(photo); err != nil {
		b.log.Error("send photo", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// truncate обрезает текст до limit байт по границе руны.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
