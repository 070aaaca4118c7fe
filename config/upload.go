package config

import (
	"fmt"
	"slices"

	"tramite-system/pkg/constants"
)

// UploadRules - что принимается в конкретном контексте загрузки и куда это складывается.
type UploadRules struct {
	AllowedMimeTypes []string
	MaxSizeMB        int64
	Dir              string
}

// Принимаются только сканы и фото документов.
var uploadRules = map[constants.UploadContext]UploadRules{
	constants.UploadContextTramiteDocument: {
		AllowedMimeTypes: []string{"application/pdf", "image/jpeg", "image/png", "image/webp"},
		MaxSizeMB:        20,
		Dir:              "tramites",
	},
}

func RulesFor(uc constants.UploadContext) (UploadRules, error) {
	rules, ok := uploadRules[uc]
	if !ok {
		return UploadRules{}, fmt.Errorf("неизвестный контекст загрузки '%s'", uc)
	}
	return rules, nil
}

// MaxBytes - 0 означает без ограничения.
func (r UploadRules) MaxBytes() int64 { return r.MaxSizeMB << 20 }

func (r UploadRules) Accepts(mime string) bool { return slices.Contains(r.AllowedMimeTypes, mime) }
