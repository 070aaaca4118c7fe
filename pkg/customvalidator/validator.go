package customvalidator

import (
	"regexp"

	"github.com/go-playground/validator/v10"

	"tramite-system/internal/entities"
)

var phoneRegex = regexp.MustCompile(`^\+?[0-9 ()-]{6,32}$`)

// RegisterCustomValidations регистрирует правила, которые используются в тегах DTO.
func RegisterCustomValidations(v *validator.Validate) error {
	if err := v.RegisterValidation("tramite_estado", isTramiteEstado); err != nil {
		return err
	}
	if err := v.RegisterValidation("comentario_tipo", isComentarioTipo); err != nil {
		return err
	}
	if err := v.RegisterValidation("canal", isCanal); err != nil {
		return err
	}
	if err := v.RegisterValidation("telefono", isPhone); err != nil {
		return err
	}
	return nil
}

func isTramiteEstado(fl validator.FieldLevel) bool {
	return entities.Estado(fl.Field().String()).Valid()
}

func isComentarioTipo(fl validator.FieldLevel) bool {
	return entities.ComentarioTipo(fl.Field().String()).Valid()
}

func isCanal(fl validator.FieldLevel) bool {
	return entities.Canal(fl.Field().String()).Valid()
}

func isPhone(fl validator.FieldLevel) bool {
	return phoneRegex.MatchString(fl.Field().String())
}
