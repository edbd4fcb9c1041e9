package access

import (
	"fmt"

	apperrors "github.com/assessly/assessment-api/internal/pkg/errors"
)

// Role — закрытое перечисление ролей пользователя.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleEducator Role = "educator"
	RoleStudent  Role = "student"
)

// ParseRole приводит строку из claims к известной роли.
// Неизвестная роль трактуется как student (минимум прав).
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin, RoleEducator, RoleStudent:
		return Role(s)
	default:
		return RoleStudent
	}
}

// IsAdmin проверяет, входит ли роль в админ-эквивалентный набор.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// CreatorRoles — роли, которым разрешено создавать пулы и анкеты.
var CreatorRoles = []Role{RoleAdmin, RoleEducator}

// Authorize — единственный предикат авторизации движка. Без побочных эффектов.
// Разрешает, если вызывающий владеет ресурсом, имеет админ-эквивалентную роль
// или (для операций создания) его роль входит в requiredRoles.
//
// actingUserID == 0 означает неаутентифицированного вызывающего → ErrUnauthenticated.
// Аутентифицированный, но не владелец/не админ → ErrForbidden.
func Authorize(resourceOwnerID, actingUserID uint, actingRole Role, requiredRoles []Role) error {
	if actingUserID == 0 {
		return fmt.Errorf("%w: missing identity", apperrors.ErrUnauthenticated)
	}

	if actingRole.IsAdmin() {
		return nil
	}

	if resourceOwnerID != 0 && resourceOwnerID == actingUserID {
		return nil
	}

	for _, role := range requiredRoles {
		if actingRole == role {
			return nil
		}
	}

	return fmt.Errorf("%w: user %d is not the owner and lacks required role", apperrors.ErrForbidden, actingUserID)
}

// AuthorizeOwner — сокращение для мутаций, где допустимы только владелец и админ.
func AuthorizeOwner(resourceOwnerID, actingUserID uint, actingRole Role) error {
	return Authorize(resourceOwnerID, actingUserID, actingRole, nil)
}

// AuthorizeCreation — сокращение для операций создания (владельца ещё нет).
func AuthorizeCreation(actingUserID uint, actingRole Role) error {
	return Authorize(0, actingUserID, actingRole, CreatorRoles)
}
