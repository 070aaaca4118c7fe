package entities

import (
	"github.com/google/uuid"

	"tramite-system/pkg/constants"
)

// Actor - пользователь, от имени которого выполняется операция. Ядро доверяет id и роли,
// пришедшим от вызывающей стороны.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// IsStaff - административный персонал (administrativo, supervisor).
func (a Actor) IsStaff() bool {
	return a.Role == constants.RoleAdministrativo || a.Role == constants.RoleSupervisor
}
