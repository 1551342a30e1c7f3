package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbyiringiro/saccoflow/internal/model"
	"github.com/kbyiringiro/saccoflow/internal/service"
)

func seedDirectory(t *testing.T, store *SQLiteStorage) {
	t.Helper()
	ctx := context.Background()

	groups := []model.Group{
		{ID: "grp-7", SaccoID: "sacco-1", Code: "GRP7", Name: "Abadahemuka", Status: model.GroupActive},
		{ID: "grp-8", SaccoID: "sacco-1", Code: "GRP8", Name: "Twisungane", Status: model.GroupInactive},
		{ID: "grp-9", SaccoID: "sacco-2", Code: "GRP7", Name: "Urumuri", Status: model.GroupActive},
	}
	require.NoError(t, store.SaveGroups(ctx, groups))

	members := []model.Member{
		{ID: "m-1", SaccoID: "sacco-1", GroupID: "grp-7", FullName: "Alice Mukamana", MemberCode: "M004", MSISDN: "+250788123456"},
		{ID: "m-2", SaccoID: "sacco-1", GroupID: "grp-8", FullName: "Bob Niyonzima", MemberCode: "M011", MSISDN: "+250722000111"},
		{ID: "m-3", SaccoID: "sacco-2", GroupID: "grp-9", FullName: "Alice Uwase", MemberCode: "M020", MSISDN: "+250733999888"},
	}
	require.NoError(t, store.SaveMembers(ctx, members))
}

func TestSearchMembers(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	seedDirectory(t, store)
	ctx := context.Background()

	t.Run("matches by name within tenant", func(t *testing.T) {
		got, err := store.SearchMembers(ctx, service.MemberSearch{Term: "Alice", SaccoID: "sacco-1", Limit: 8})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "m-1", got[0].ID)
		assert.Equal(t, "Abadahemuka", got[0].GroupName)
	})

	t.Run("matches by msisdn", func(t *testing.T) {
		got, err := store.SearchMembers(ctx, service.MemberSearch{Term: "788123", SaccoID: "sacco-1", Limit: 8})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "m-1", got[0].ID)
	})

	t.Run("matches by member code", func(t *testing.T) {
		got, err := store.SearchMembers(ctx, service.MemberSearch{Term: "M011", SaccoID: "sacco-1", Limit: 8})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "m-2", got[0].ID)
	})

	t.Run("group scope narrows the search", func(t *testing.T) {
		got, err := store.SearchMembers(ctx, service.MemberSearch{Term: "M0", GroupID: "grp-7", Limit: 8})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "m-1", got[0].ID)
	})

	t.Run("wildcards match literally", func(t *testing.T) {
		got, err := store.SearchMembers(ctx, service.MemberSearch{Term: "%", SaccoID: "sacco-1", Limit: 8})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("limit caps results", func(t *testing.T) {
		got, err := store.SearchMembers(ctx, service.MemberSearch{Term: "M0", SaccoID: "sacco-1", Limit: 1})
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("empty term rejected", func(t *testing.T) {
		_, err := store.SearchMembers(ctx, service.MemberSearch{Term: "  ", SaccoID: "sacco-1"})
		assert.ErrorIs(t, err, ErrEmptyString)
	})
}

func TestGetGroupsByCode(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	seedDirectory(t, store)
	ctx := context.Background()

	t.Run("scoped to tenant and status", func(t *testing.T) {
		got, err := store.GetGroupsByCode(ctx, "GRP7", model.GroupActive, "sacco-1")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "grp-7", got[0].ID)
	})

	t.Run("inactive groups excluded", func(t *testing.T) {
		got, err := store.GetGroupsByCode(ctx, "GRP8", model.GroupActive, "sacco-1")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("other tenant invisible", func(t *testing.T) {
		got, err := store.GetGroupsByCode(ctx, "GRP7", model.GroupActive, "sacco-2")
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "grp-9", got[0].ID)
	})
}

func TestSaveMembersUpsert(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	seedDirectory(t, store)
	ctx := context.Background()

	update := []model.Member{
		{ID: "m-1", SaccoID: "sacco-1", GroupID: "grp-8", FullName: "Alice Mukamana", MemberCode: "M004", MSISDN: "+250788999999"},
	}
	require.NoError(t, store.SaveMembers(ctx, update))

	got, err := store.SearchMembers(ctx, service.MemberSearch{Term: "Mukamana", SaccoID: "sacco-1", Limit: 8})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "grp-8", got[0].GroupID)
	assert.Equal(t, "+250788999999", got[0].MSISDN)
}

func TestEscapeLikeStorage(t *testing.T) {
	assert.Equal(t, `\%`, escapeLike(`%`))
	assert.Equal(t, `\_`, escapeLike(`_`))
	assert.Equal(t, `\\`, escapeLike(`\`))
	assert.Equal(t, `plain`, escapeLike(`plain`))
}
