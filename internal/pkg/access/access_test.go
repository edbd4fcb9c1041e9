package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/assessly/assessment-api/internal/pkg/errors"
)

func TestAuthorize_Owner(t *testing.T) {
	err := Authorize(42, 42, RoleStudent, nil)
	assert.NoError(t, err)
}

func TestAuthorize_Admin(t *testing.T) {
	// Админ проходит даже не будучи владельцем
	err := Authorize(42, 7, RoleAdmin, nil)
	assert.NoError(t, err)
}

func TestAuthorize_Unauthenticated(t *testing.T) {
	err := Authorize(42, 0, RoleStudent, nil)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}

func TestAuthorize_ForbiddenNonOwner(t *testing.T) {
	err := Authorize(42, 7, RoleStudent, nil)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestAuthorize_CreationRoles(t *testing.T) {
	assert.NoError(t, AuthorizeCreation(7, RoleEducator))
	assert.NoError(t, AuthorizeCreation(7, RoleAdmin))
	assert.ErrorIs(t, AuthorizeCreation(7, RoleStudent), apperrors.ErrForbidden)
	assert.ErrorIs(t, AuthorizeCreation(0, RoleEducator), apperrors.ErrUnauthenticated)
}

func TestParseRole_UnknownFallsBackToStudent(t *testing.T) {
	assert.Equal(t, RoleStudent, ParseRole("superuser"))
	assert.Equal(t, RoleAdmin, ParseRole("admin"))
}
