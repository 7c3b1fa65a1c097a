package sqlxrepos

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/included-edu/included/core/user"
	testutil "github.com/included-edu/included/tests"
)

func TestUserRepository(t *testing.T) {
	db := testutil.PrepareDB(t, testutil.NewConfig(t))
	repo := NewUserRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, repo, "Alice", "alice", "alice@example.com", "Passw0rd!", []string{user.RoleTeacher}, true)
	bob := testutil.CreateUser(t, repo, "Bob", "", "bob@example.com", "", nil, true)
	_ = testutil.CreateUser(t, repo, "Carol", "carol", "", "", nil, false)

	t.Run("GetUser", func(t *testing.T) {
		tests := []struct {
			name    string
			filter  user.GetFilter
			wantID  string
			wantErr error
		}{
			{name: "by id", filter: user.GetFilter{ID: alice.ID}, wantID: alice.ID},
			{name: "by username", filter: user.GetFilter{Username: "alice"}, wantID: alice.ID},
			{name: "by email", filter: user.GetFilter{Email: "bob@example.com"}, wantID: bob.ID},
			{name: "username or email: username", filter: user.GetFilter{UsernameOrEmail: []string{"alice"}}, wantID: alice.ID},
			{name: "username or email: email", filter: user.GetFilter{UsernameOrEmail: []string{"bob@example.com"}}, wantID: bob.ID},
			{name: "invalid id", filter: user.GetFilter{ID: "42"}, wantErr: user.ErrNotFound},
			{name: "unknown username", filter: user.GetFilter{Username: "dave"}, wantErr: user.ErrNotFound},
			{name: "empty filter", filter: user.GetFilter{}, wantErr: user.ErrNotFound},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				usr, err := repo.GetUser(ctx, tc.filter)
				if tc.wantErr != nil {
					assert.Equal(t, tc.wantErr, err)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, tc.wantID, usr.ID)
			})
		}
	})

	t.Run("empty username and email are stored as NULL", func(t *testing.T) {
		usr, err := repo.GetUser(ctx, user.GetFilter{ID: bob.ID})
		require.NoError(t, err)
		assert.Equal(t, "", usr.Username)
		assert.Equal(t, []string{}, []string(usr.Roles))
		assert.Nil(t, usr.LastLogin)
	})

	t.Run("password and roles round trip", func(t *testing.T) {
		usr, err := repo.GetUser(ctx, user.GetFilter{ID: alice.ID})
		require.NoError(t, err)
		assert.NoError(t, usr.CheckPassword("Passw0rd!"))
		assert.True(t, usr.IsTeacher())
		assert.True(t, usr.IsActive)
	})

	t.Run("CheckUsernameUniqueness", func(t *testing.T) {
		tests := []struct {
			name     string
			username string
			email    string
			excluded []user.User
			wantErr  error
		}{
			{name: "taken username", username: "alice", wantErr: user.ErrUserExists},
			{name: "taken email", email: "bob@example.com", wantErr: user.ErrUserExists},
			{name: "free", username: "dave", email: "dave@example.com"},
			{name: "excluded owner", username: "alice", email: "alice@example.com", excluded: []user.User{alice}},
			{name: "nothing to check"},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				err := repo.CheckUsernameUniqueness(ctx, tc.username, tc.email, tc.excluded)
				assert.Equal(t, tc.wantErr, err)
			})
		}
	})

	t.Run("CreateUser duplicate", func(t *testing.T) {
		_, err := repo.CreateUser(ctx, user.User{Name: "Alice 2", Username: "alice"})
		assert.Equal(t, user.ErrUserExists, err)
	})

	t.Run("UpdateUser", func(t *testing.T) {
		svc := user.NewService(repo)
		usr, err := svc.SetLastLogin(ctx, alice)
		require.NoError(t, err)

		got, err := repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
		require.NoError(t, err)
		require.NotNil(t, got.LastLogin)
		assert.WithinDuration(t, *usr.LastLogin, *got.LastLogin, 0)

		_, err = repo.UpdateUser(ctx, user.User{ID: "00000000-0000-0000-0000-000000000000", Name: "ghost"})
		assert.Equal(t, user.ErrNotFound, err)
	})
}
