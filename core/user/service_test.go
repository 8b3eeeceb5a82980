package user_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssriya/grader/core"
	"github.com/ssriya/grader/core/user"
	inmemdb "github.com/ssriya/grader/storage/database/inmem"
	testutil "github.com/ssriya/grader/tests"
)

func newService() *user.Service {
	return user.NewService(inmemdb.NewUserRepository(inmemdb.Open()))
}

func TestService_Signup(t *testing.T) {
	ctx := context.Background()
	validate, _ := testutil.NewValidator()
	svc := newService()

	valid := user.NewUser{
		Name:            " Alice Smith ",
		Email:           "Alice@Example.com",
		Password:        "passw0rd!",
		PasswordConfirm: "passw0rd!",
		Account:         "student",
	}
	usr, err := svc.Signup(ctx, validate, valid)
	require.NoError(t, err)
	assert.Equal(t, "Alice Smith", usr.Name)
	assert.Equal(t, "alice@example.com", usr.Email)
	assert.True(t, usr.IsStudent())
	assert.False(t, usr.IsTeacher())

	tests := []struct {
		name      string
		modify    func(nu *user.NewUser)
		wantField string
	}{
		{"duplicate email", func(nu *user.NewUser) {}, "email"},
		{"blank name", func(nu *user.NewUser) { nu.Email = "a@b.co"; nu.Name = "   " }, "name"},
		{"bad email", func(nu *user.NewUser) { nu.Email = "not-an-email" }, "email"},
		{"password mismatch", func(nu *user.NewUser) { nu.Email = "a@b.co"; nu.PasswordConfirm = "other" }, "password_confirm"},
		{"short password", func(nu *user.NewUser) {
			nu.Email = "a@b.co"
			nu.Password, nu.PasswordConfirm = "abc1", "abc1"
		}, "password"},
		{"numeric password", func(nu *user.NewUser) {
			nu.Email = "a@b.co"
			nu.Password, nu.PasswordConfirm = "12345678", "12345678"
		}, "password"},
		{"unknown account", func(nu *user.NewUser) { nu.Email = "a@b.co"; nu.Account = "admin" }, "account"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := valid
			tt.modify(&nu)
			_, err := svc.Signup(ctx, validate, nu)
			if err == nil {
				t.Fatalf("Signup() error = nil, want error on %q", tt.wantField)
			}
			if got := errorFields(err); !contains(got, tt.wantField) {
				t.Errorf("Signup() error fields = %v, want %q", got, tt.wantField)
			}
		})
	}
}

func errorFields(err error) []string {
	var fields []string
	switch e := err.(type) {
	case validator.ValidationErrors:
		for _, fe := range e {
			fields = append(fields, fe.Field())
		}
	case *core.ValidationError:
		for _, fe := range e.Fields {
			fields = append(fields, fe.Field)
		}
	}
	return fields
}

func contains(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}

func TestService_Authenticate(t *testing.T) {
	ctx := context.Background()
	repo := inmemdb.NewUserRepository(inmemdb.Open())
	svc := user.NewService(repo)
	usr := testutil.CreateUser(t, repo, "Ms. Johnson", "teacher@demo", "demo-pass", user.RoleTeacher)

	tests := []struct {
		name    string
		email   string
		pwd     string
		wantErr error
	}{
		{"ok", "teacher@demo", "demo-pass", nil},
		{"case insensitive email", " Teacher@Demo ", "demo-pass", nil},
		{"wrong password", "teacher@demo", "nope", user.ErrInvalidCredentials},
		{"unknown email", "ghost@demo", "demo-pass", user.ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Authenticate(ctx, tt.email, tt.pwd)
			if err != tt.wantErr {
				t.Fatalf("Authenticate() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && got.ID != usr.ID {
				t.Errorf("Authenticate() = %v, want %v", got.ID, usr.ID)
			}
		})
	}
}

func TestService_SetPasswordAndSave(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	usr, err := svc.Save(ctx, user.User{Name: "Bob Wilson", Email: " BOB@demo ", Roles: []string{user.RoleStudent}})
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.Equal(t, "bob@demo", usr.Email)

	usr, err = svc.SetPassword(ctx, usr, "n3w-password")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "bob@demo", "n3w-password")
	assert.NoError(t, err)

	usr.AddRole(user.RoleAdmin)
	usr.AddRole(user.RoleAdmin)
	usr, err = svc.Save(ctx, usr)
	require.NoError(t, err)
	assert.Equal(t, []string{user.RoleStudent, user.RoleAdmin}, usr.Roles)

	none, err := svc.QueryByIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, none)
}
