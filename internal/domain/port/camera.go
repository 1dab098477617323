package port

import (
	"context"
	"errors"
	"image"
)

// ErrEmptyFrame камера вернула пустой кадр, его можно пропустить
var ErrEmptyFrame = errors.New("empty frame")

// Camera источник кадров
type Camera interface {
	// Read возвращает очередной кадр
	Read(ctx context.Context) (image.Image, error)
	Close() error
}

// Display окно для показа кадров
type Display interface {
	// Show показывает кадр и сообщает, что пользователь закрыл окно
	Show(img image.Image) (closed bool, err error)
	Close() error
}
