package validation

import (
	"fmt"
	"io"
	"net/http"

	"tramite-system/config"
	"tramite-system/pkg/constants"
	apperrors "tramite-system/pkg/errors"
)

// ValidateFile проверяет размер и тип содержимого по первым 512 байтам и возвращает MIME-тип.
// После проверки курсор file возвращается в начало.
func ValidateFile(size int64, file io.ReadSeeker, uc constants.UploadContext) (string, error) {
	rules, err := config.RulesFor(uc)
	if err != nil {
		return "", err
	}

	if limit := rules.MaxBytes(); limit > 0 && size > limit {
		return "", apperrors.NewInvalidInputError("размер файла (%.2f MB) превышает лимит в %d MB", float64(size)/(1<<20), rules.MaxSizeMB)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("ошибка чтения файла: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("ошибка обработки файла: %w", err)
	}

	mimeType := http.DetectContentType(head[:n])
	if !rules.Accepts(mimeType) {
		return "", apperrors.NewInvalidInputError("недопустимый формат файла: %s", mimeType)
	}
	return mimeType, nil
}
