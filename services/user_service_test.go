package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/tablebook/models"
)

const strongPassword = "Secret#123"

func TestRegister(t *testing.T) {
	e := newTestEnv(t)

	u, err := e.svc.Users.Register(e.ctx, RegisterInput{Name: "Alice", Email: " Alice@Example.com ", Password: strongPassword})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.Equal(t, models.RoleUser, u.Role)
	assert.NotEqual(t, strongPassword, u.PasswordDigest)

	_, err = e.svc.Users.Register(e.ctx, RegisterInput{Name: "Alice Two", Email: "ALICE@example.com", Password: strongPassword})
	errs := requireValidation(t, err)
	assert.Equal(t, []string{MsgEmailTaken}, errs.On("email"))
}

func TestRegisterValidation(t *testing.T) {
	e := newTestEnv(t)
	cases := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"blank name", RegisterInput{Email: "a@example.com", Password: strongPassword}, "name"},
		{"short name", RegisterInput{Name: "A", Email: "a@example.com", Password: strongPassword}, "name"},
		{"html name", RegisterInput{Name: "<b>Al</b>", Email: "a@example.com", Password: strongPassword}, "name"},
		{"bad email", RegisterInput{Name: "Al", Email: "not-an-email", Password: strongPassword}, "email"},
		{"short password", RegisterInput{Name: "Al", Email: "a@example.com", Password: "Ab1!"}, "password"},
		{"weak password", RegisterInput{Name: "Al", Email: "a@example.com", Password: "password"}, "password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.svc.Users.Register(e.ctx, tc.in)
			errs := requireValidation(t, err)
			assert.Len(t, errs.On(tc.field), 1)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.svc.Users.Register(e.ctx, RegisterInput{Name: "Bob", Email: "bob@example.com", Password: strongPassword})
	require.NoError(t, err)

	u, err := e.svc.Users.Authenticate(e.ctx, "BOB@example.com", strongPassword)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", u.Email)

	_, err = e.svc.Users.Authenticate(e.ctx, "bob@example.com", "Wrong#123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = e.svc.Users.Authenticate(e.ctx, "nobody@example.com", strongPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUpdateUser(t *testing.T) {
	e := newTestEnv(t)
	u, other, admin := e.user(models.RoleUser), e.user(models.RoleUser), e.user(models.RoleAdmin)

	name := "Renamed"
	updated, err := e.svc.Users.Update(e.ctx, actorOf(u), u.ID, UserPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)

	_, err = e.svc.Users.Update(e.ctx, actorOf(other), u.ID, UserPatch{Name: &name})
	assert.ErrorIs(t, err, ErrNotAuthorized)

	taken := other.Email
	_, err = e.svc.Users.Update(e.ctx, actorOf(admin), u.ID, UserPatch{Email: &taken})
	errs := requireValidation(t, err)
	assert.Equal(t, []string{MsgEmailTaken}, errs.On("email"))

	password := "Changed#456"
	_, err = e.svc.Users.Update(e.ctx, actorOf(u), u.ID, UserPatch{Password: &password})
	require.NoError(t, err)
	_, err = e.svc.Users.Authenticate(e.ctx, u.Email, password)
	assert.NoError(t, err)
}

// Scenario E
func TestSoleAdminCannotDemoteThemself(t *testing.T) {
	e := newTestEnv(t)
	admin := e.user(models.RoleAdmin)

	_, err := e.svc.Users.ChangeRole(e.ctx, actorOf(admin), admin.ID, models.RoleUser)
	denial := requireDenied(t, err)
	assert.Equal(t, "role", denial.Field)
	assert.Equal(t, MsgLastAdminRole, denial.Reason)

	got, err := e.svc.Users.Get(e.ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, got.Role)
}

func TestChangeRoleWithAnotherAdmin(t *testing.T) {
	e := newTestEnv(t)
	a1, a2, u := e.user(models.RoleAdmin), e.user(models.RoleAdmin), e.user(models.RoleUser)

	_, err := e.svc.Users.ChangeRole(e.ctx, actorOf(u), u.ID, models.RoleAdmin)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	demoted, err := e.svc.Users.ChangeRole(e.ctx, actorOf(a1), a1.ID, models.RoleUser)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, demoted.Role)

	// a2 is now the only admin
	_, err = e.svc.Users.ChangeRole(e.ctx, actorOf(a2), a2.ID, models.RoleUser)
	requireDenied(t, err)

	promoted, err := e.svc.Users.ChangeRole(e.ctx, actorOf(a2), u.ID, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, promoted.Role)
}

func TestDestroyUser(t *testing.T) {
	e := newTestEnv(t)
	admin, u := e.user(models.RoleAdmin), e.user(models.RoleUser)
	table := e.table(4)
	e.insertReservation(u, table, e.slot(table, tomorrow, "18:00", "19:00"), models.ReservationPending)

	err := e.svc.Users.Destroy(e.ctx, actorOf(admin), admin.ID)
	assert.Equal(t, MsgLastAdminDestroy, requireDenied(t, err).Reason)

	other := e.user(models.RoleUser)
	assert.ErrorIs(t, e.svc.Users.Destroy(e.ctx, actorOf(other), u.ID), ErrNotAuthorized)

	require.NoError(t, e.svc.Users.Destroy(e.ctx, actorOf(u), u.ID))
	_, err = e.svc.Users.Get(e.ctx, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var n int64
	e.db.Model(&models.Reservation{}).Where("user_id = ?", u.ID).Count(&n)
	assert.Zero(t, n)
}

func TestLastAdminGuards(t *testing.T) {
	admin := models.User{Role: models.RoleAdmin}
	user := models.User{Role: models.RoleUser}

	assert.False(t, CanChangeRole(admin, models.RoleUser, 0))
	assert.True(t, CanChangeRole(admin, models.RoleUser, 1))
	assert.True(t, CanChangeRole(admin, models.RoleAdmin, 0))
	assert.True(t, CanChangeRole(user, models.RoleAdmin, 0))

	assert.False(t, CanDestroy(admin, 0))
	assert.True(t, CanDestroy(admin, 1))
	assert.True(t, CanDestroy(user, 0))
}
