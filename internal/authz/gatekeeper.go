package authz

import (
	"tramite-system/internal/entities"
)

// Gatekeeper держит таблицу прав ролей и отвечает на вопрос "может ли actor".
type Gatekeeper struct {
	roles map[string]map[string]bool
}

func NewGatekeeper() *Gatekeeper {
	return &Gatekeeper{roles: DefaultRolePermissions()}
}

// Can - target может быть nil (проверка только права) или *entities.Tramite.
func (g *Gatekeeper) Can(actor entities.Actor, permission string, target interface{}) bool {
	return CanDo(permission, Context{
		Actor:       actor,
		Permissions: g.roles[actor.Role],
		Target:      target,
	})
}
