package authz

import (
	"tramite-system/internal/entities"
)

type Context struct {
	Actor             entities.Actor
	Permissions       map[string]bool
	Target            interface{}
	CurrentPermission string
}

func (c *Context) HasPermission(permission string) bool {
	if c.Permissions == nil {
		return false
	}
	return c.Permissions[permission]
}

// canAccessTramite - scope:all видит всё, scope:own только свои и назначенные ему трамиты.
func canAccessTramite(ctx Context, target *entities.Tramite) bool {
	if ctx.HasPermission(ScopeAll) {
		return true
	}
	if ctx.HasPermission(ScopeOwn) {
		isOwner := target.UsuarioID == ctx.Actor.ID
		isAssignee := target.AsignadoA.Valid && target.AsignadoA.UUID == ctx.Actor.ID
		return isOwner || isAssignee
	}
	return false
}

func CanDo(permission string, ctx Context) bool {
	// 1. Фиксация права
	ctx.CurrentPermission = permission

	// 2. Superuser
	if ctx.HasPermission(Superuser) {
		return true
	}

	// 3. Есть ли право вообще (RBAC)
	if !ctx.HasPermission(permission) {
		return false
	}

	// 4. Без цели - разрешено (например создание)
	if ctx.Target == nil {
		return true
	}

	// 5. Проверка цели (ABAC)
	switch target := ctx.Target.(type) {
	case *entities.Tramite:
		return canAccessTramite(ctx, target)
	}

	return true
}
