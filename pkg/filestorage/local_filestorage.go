package filestorage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// URLPrefix - под этим путём каталог хранилища раздаётся как статика.
const URLPrefix = "/uploads/"

type FileStorageInterface interface {
	// Save возвращает относительный путь вида prefix/2006/01/02/<имя>.
	Save(file io.Reader, originalFileName string, prefix string) (filePath string, err error)
	Delete(fileURL string) error
}

type LocalFileStorage struct {
	basePath string
	now      func() time.Time
}

func NewLocalFileStorage(basePath string) (*LocalFileStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию хранилища: %w", err)
	}
	return &LocalFileStorage{basePath: basePath, now: time.Now}, nil
}

func (s *LocalFileStorage) Save(file io.Reader, originalFileName string, prefix string) (string, error) {
	now := s.now()
	ext := strings.ToLower(filepath.Ext(originalFileName))
	name := fmt.Sprintf("%s-%s%s", now.Format("2006-01-02"), uuid.New().String(), ext)

	relDir := filepath.Join(prefix, now.Format("2006/01/02"))
	if err := os.MkdirAll(filepath.Join(s.basePath, relDir), 0o755); err != nil {
		return "", fmt.Errorf("не удалось создать директорию: %w", err)
	}

	dst, err := os.Create(filepath.Join(s.basePath, relDir, name))
	if err != nil {
		return "", fmt.Errorf("не удалось создать файл: %w", err)
	}
	defer dst.Close()

	if _, err = io.Copy(dst, file); err != nil {
		return "", fmt.Errorf("не удалось записать файл: %w", err)
	}
	return filepath.ToSlash(filepath.Join(relDir, name)), nil
}

// Delete принимает URL вида /uploads/<путь>. Отсутствующий файл не считается ошибкой.
func (s *LocalFileStorage) Delete(fileURL string) error {
	rel := strings.TrimPrefix(fileURL, URLPrefix)
	if strings.Contains(rel, "..") {
		return fmt.Errorf("недопустимый путь: %s", fileURL)
	}
	err := os.Remove(filepath.Join(s.basePath, filepath.FromSlash(rel)))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
