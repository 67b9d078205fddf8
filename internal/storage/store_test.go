package storage

import (
	"context"
	"testing"

	"github.com/contesthub/contesthub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type rawSetter func(key, value string)

func storesUnderTest(t *testing.T) map[string]func(t *testing.T) (Store, rawSetter) {
	t.Helper()
	return map[string]func(t *testing.T) (Store, rawSetter){
		"memory": func(t *testing.T) (Store, rawSetter) {
			s := NewMemoryStore()
			return s, s.Set
		},
		"sqlite": func(t *testing.T) (Store, rawSetter) {
			s, err := NewSQLiteStore(context.Background(), ":memory:", zap.NewNop())
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s, func(key, value string) {
				require.NoError(t, s.setRaw(context.Background(), key, value))
			}
		},
	}
}

func testUser() models.User {
	return models.User{
		ID:       "uid-1",
		Name:     "John",
		Email:    "john@example.com",
		PhotoURL: "https://example.com/john.png",
		Role:     models.RoleUser,
	}
}

func TestStore_LoadEmpty(t *testing.T) {
	for name, build := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			s, _ := build(t)

			rec, err := s.Load(context.Background())
			require.NoError(t, err)
			assert.Nil(t, rec)

			token, err := s.Token(context.Background())
			require.NoError(t, err)
			assert.Empty(t, token)
		})
	}
}

func TestStore_SaveLoadClear(t *testing.T) {
	for name, build := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			s, _ := build(t)
			ctx := context.Background()

			require.NoError(t, s.Save(ctx, Record{Token: "tok-1", User: testUser()}))

			rec, err := s.Load(ctx)
			require.NoError(t, err)
			require.NotNil(t, rec)
			assert.Equal(t, "tok-1", rec.Token)
			assert.Equal(t, testUser(), rec.User)

			token, err := s.Token(ctx)
			require.NoError(t, err)
			assert.Equal(t, "tok-1", token)

			require.NoError(t, s.Save(ctx, Record{Token: "tok-2", User: testUser()}))
			token, err = s.Token(ctx)
			require.NoError(t, err)
			assert.Equal(t, "tok-2", token)

			require.NoError(t, s.Clear(ctx))
			rec, err = s.Load(ctx)
			require.NoError(t, err)
			assert.Nil(t, rec)
		})
	}
}

func TestStore_SaveRejectsHalfRecord(t *testing.T) {
	for name, build := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			s, _ := build(t)
			ctx := context.Background()

			err := s.Save(ctx, Record{Token: "", User: testUser()})
			assert.ErrorIs(t, err, ErrIncompleteRecord)

			err = s.Save(ctx, Record{Token: "tok", User: models.User{}})
			assert.ErrorIs(t, err, ErrIncompleteRecord)

			rec, err := s.Load(ctx)
			require.NoError(t, err)
			assert.Nil(t, rec)
		})
	}
}

func TestStore_LoadRepairsTornRecord(t *testing.T) {
	cases := map[string]struct{ key, value string }{
		"dangling token": {KeyToken, "tok-1"},
		"dangling user":  {KeyUser, `{"id":"uid-1"}`},
	}

	for name, build := range storesUnderTest(t) {
		for caseName, tc := range cases {
			t.Run(name+"/"+caseName, func(t *testing.T) {
				s, set := build(t)
				ctx := context.Background()
				set(tc.key, tc.value)

				rec, err := s.Load(ctx)
				require.NoError(t, err)
				assert.Nil(t, rec)

				// repaired: a subsequent load sees nothing left behind
				set(KeyToken, "tok-2")
				rec, err = s.Load(ctx)
				require.NoError(t, err)
				assert.Nil(t, rec)
			})
		}
	}
}

func TestStore_LoadRepairsUndecodableUser(t *testing.T) {
	s := NewMemoryStore()
	s.Set(KeyToken, "tok")
	s.Set(KeyUser, "{not json")

	rec, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.False(t, s.Has(KeyToken))
	assert.False(t, s.Has(KeyUser))
}

func TestSQLiteStore_RefreshTokenCache(t *testing.T) {
	s, err := NewSQLiteStore(context.Background(), ":memory:", zap.NewNop())
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	token, err := s.LoadRefreshToken(ctx, "firebase")
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, s.SaveRefreshToken(ctx, "firebase", "refresh-1"))
	require.NoError(t, s.SaveRefreshToken(ctx, "firebase", "refresh-2"))

	token, err = s.LoadRefreshToken(ctx, "firebase")
	require.NoError(t, err)
	assert.Equal(t, "refresh-2", token)

	require.NoError(t, s.ClearRefreshToken(ctx, "firebase"))
	token, err = s.LoadRefreshToken(ctx, "firebase")
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := t.TempDir() + "/session.db"
	ctx := context.Background()

	s, err := NewSQLiteStore(ctx, path, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, Record{Token: "tok-1", User: testUser()}))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(ctx, path, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	rec, err := reopened.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "john@example.com", rec.User.Email)
}
