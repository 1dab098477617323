package port

import "context"

// ImageSource читает изображение по локальному пути или URL
type ImageSource interface {
	Open(ctx context.Context, path string) ([]byte, error)
}
