// internal/authz/permissions.go
package authz

import "tramite-system/pkg/constants"

// --- СПИСОК ВСЕХ ПЕРМИШЕНОВ В СИСТЕМЕ ---

const (
	// Глобальные
	Superuser = "superuser"

	// Трамиты
	TramitesCreate          = "tramites:create"
	TramitesView            = "tramites:view"
	TramitesSearch          = "tramites:search"
	TramitesTransition      = "tramites:transition"
	TramitesComment         = "tramites:comment"
	TramitesCommentsPrivate = "tramites:comments:private"
	DocumentsUpload         = "tramites:documents:upload"
	DocumentsRequest        = "tramites:documents:request"

	// Аналитика
	AnalyticsView   = "analytics:view"
	AnalyticsManage = "analytics:manage"

	// Модификаторы Области (Scopes)
	ScopeOwn = "scope:own"
	ScopeAll = "scope:all"
)

func permissionSet(perms ...string) map[string]bool {
	set := make(map[string]bool, len(perms))
	for _, p := range perms {
		set[p] = true
	}
	return set
}

// DefaultRolePermissions - права ролей из токена. Роль вне таблицы не получает ничего.
func DefaultRolePermissions() map[string]map[string]bool {
	return map[string]map[string]bool{
		constants.RoleCiudadano: permissionSet(
			TramitesCreate, TramitesView, TramitesComment, DocumentsUpload,
			ScopeOwn,
		),
		constants.RoleAdministrativo: permissionSet(
			TramitesCreate, TramitesView, TramitesSearch, TramitesTransition,
			TramitesComment, TramitesCommentsPrivate, DocumentsUpload, DocumentsRequest,
			AnalyticsView, AnalyticsManage,
			ScopeAll,
		),
		constants.RoleSupervisor: permissionSet(Superuser, ScopeAll),
	}
}
