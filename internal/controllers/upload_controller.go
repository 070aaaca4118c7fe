package controllers

import (
	"fmt"
	"mime/multipart"
	"sort"

	"go.uber.org/zap"

	"tramite-system/config"
	"tramite-system/internal/entities"
	"tramite-system/pkg/constants"
	"tramite-system/pkg/filestorage"
	"tramite-system/pkg/validation"
)

// documentUploader проверяет и сохраняет файлы документов трамита.
type documentUploader struct {
	fileStorage filestorage.FileStorageInterface
	logger      *zap.Logger
}

func newDocumentUploader(fileStorage filestorage.FileStorageInterface, logger *zap.Logger) *documentUploader {
	return &documentUploader{fileStorage: fileStorage, logger: logger}
}

func (u *documentUploader) store(fileHeader *multipart.FileHeader) (entities.FileRef, error) {
	uploadContext := constants.UploadContextTramiteDocument
	rules, err := config.RulesFor(uploadContext)
	if err != nil {
		return entities.FileRef{}, err
	}

	src, err := fileHeader.Open()
	if err != nil {
		return entities.FileRef{}, fmt.Errorf("не удалось открыть файл: %w", err)
	}
	defer src.Close()

	mime, err := validation.ValidateFile(fileHeader.Size, src, uploadContext)
	if err != nil {
		return entities.FileRef{}, err
	}

	path, err := u.fileStorage.Save(src, fileHeader.Filename, rules.Dir)
	if err != nil {
		return entities.FileRef{}, fmt.Errorf("не удалось сохранить файл: %w", err)
	}

	return entities.FileRef{
		NombreArchivo: fileHeader.Filename,
		URL:           filestorage.URLPrefix + path,
		TipoMime:      mime,
		TamanoBytes:   fileHeader.Size,
	}, nil
}

// storeAll сохраняет по одному файлу на поле формы; имя поля - логическое имя документа.
// При ошибке уже сохранённые файлы удаляются.
func (u *documentUploader) storeAll(files map[string][]*multipart.FileHeader) (map[string]entities.FileRef, error) {
	names := make([]string, 0, len(files))
	for name, headers := range files {
		if len(headers) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	refs := make(map[string]entities.FileRef, len(names))
	for _, name := range names {
		ref, err := u.store(files[name][0])
		if err != nil {
			u.discard(refs)
			return nil, fmt.Errorf("документ '%s': %w", name, err)
		}
		refs[name] = ref
	}
	return refs, nil
}

func (u *documentUploader) discard(refs map[string]entities.FileRef) {
	for _, ref := range refs {
		if err := u.fileStorage.Delete(ref.URL); err != nil {
			u.logger.Warn("Не удалось удалить файл", zap.String("url", ref.URL), zap.Error(err))
		}
	}
}
