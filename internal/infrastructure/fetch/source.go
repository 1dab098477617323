package fetch

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	getter "github.com/hashicorp/go-getter"
	"go.uber.org/zap"

	"cvbp/internal/domain/port"
)

// Source читает изображения с диска или по URL.
// Относительные пути считаются от рабочего каталога вызывающего.
type Source struct {
	workDir string
	log     *zap.Logger
}

// NewSource создаёт источник с рабочим каталогом workDir.
func NewSource(workDir string, log *zap.Logger) *Source {
	return &Source{workDir: workDir, log: log.Named("fetch")}
}

// IsURL сообщает, что путь нужно скачивать.
func IsURL(path string) bool {
	u, err := url.Parse(path)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Open возвращает содержимое файла или скачанного URL.
func (s *Source) Open(ctx context.Context, path string) ([]byte, error) {
	if !IsURL(path) {
		return os.ReadFile(s.Resolve(path))
	}
	return s.download(ctx, path)
}

// Resolve приводит локальный путь к абсолютному.
func (s *Source) Resolve(path string) string {
	if filepath.IsAbs(path) || s.workDir == "" {
		return path
	}
	return filepath.Join(s.workDir, path)
}

func (s *Source) download(ctx context.Context, src string) ([]byte, error) {
	dir, err := os.MkdirTemp("", "cvbp-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	dst := filepath.Join(dir, "download")
	// пустой набор распаковщиков: байты отдаются как есть, даже для .gz и .zip
	client := &getter.Client{
		Ctx:           ctx,
		Src:           src,
		Dst:           dst,
		Pwd:           s.workDir,
		Mode:          getter.ClientModeFile,
		Decompressors: map[string]getter.Decompressor{},
	}
	if err := client.Get(); err != nil {
		return nil, redactError(err, src)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		return nil, fmt.Errorf("read download: %w", err)
	}
	s.log.Debug("downloaded", zap.String("url", Redact(src)), zap.Int("bytes", len(data)))

	return data, nil
}

// Redact оставляет от URL схему, хост и имя файла.
// Путь может содержать секреты, например токен бота Telegram.
func Redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "<redacted>"
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." {
		return u.Scheme + "://" + u.Host
	}
	return u.Scheme + "://" + u.Host + "/.../" + name
}

// redactedError прячет URL в тексте ошибки, сохраняя цепочку Unwrap.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }

func (e *redactedError) Unwrap() error { return e.err }

func redactError(err error, src string) error {
	msg := fmt.Sprintf("download %s: %v", src, err)
	safe := Redact(src)

	secrets := []string{src}
	if u, perr := url.Parse(src); perr == nil {
		secrets = append(secrets, u.String(), u.EscapedPath(), u.Path)
	}
	for _, secret := range secrets {
		if secret != "" && secret != "/" {
			msg = strings.ReplaceAll(msg, secret, "\x00")
		}
	}
	msg = strings.ReplaceAll(msg, "\x00", safe)

	return &redactedError{msg: msg, err: err}
}

var _ port.ImageSource = (*Source)(nil)
