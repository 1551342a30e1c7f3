package recon

import (
	"context"
	"errors"
	"testing"

	"github.com/kbyiringiro/saccoflow/internal/model"
	"github.com/kbyiringiro/saccoflow/internal/service"
	"github.com/kbyiringiro/saccoflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDirectory struct {
	searchErr error
	lastQuery *service.MemberSearch
	members   []model.Member
}

func (f *fakeDirectory) SearchMembers(_ context.Context, search service.MemberSearch) ([]model.Member, error) {
	f.lastQuery = &search
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.members, nil
}

func (f *fakeDirectory) GetGroupsByCode(context.Context, string, model.GroupStatus, string) ([]model.Group, error) {
	return nil, nil
}

func (f *fakeDirectory) SaveGroups(context.Context, []model.Group) error   { return nil }
func (f *fakeDirectory) SaveMembers(context.Context, []model.Member) error { return nil }

func TestResolverSearchTerm(t *testing.T) {
	resolver := NewResolver(&fakeDirectory{}, "sacco-1")

	tests := []struct {
		name    string
		payment model.Payment
		want    string
	}{
		{
			name:    "clean msisdn wins",
			payment: model.Payment{MSISDN: "+250 788 123 456", Reference: "SACCO1.GRP7.M004"},
			want:    "+250788123456",
		},
		{
			name:    "masked msisdn falls back to member code",
			payment: model.Payment{MSISDN: "2507****456", Reference: "SACCO1.GRP7.M004"},
			want:    "M004",
		},
		{
			name:    "short msisdn falls back to member code",
			payment: model.Payment{MSISDN: "12345", Reference: "SACCO1.GRP7.M004"},
			want:    "M004",
		},
		{
			name:    "no msisdn and short reference yields empty",
			payment: model.Payment{Reference: "SACCO1.GRP7"},
			want:    "",
		},
		{
			name:    "nothing to search",
			payment: model.Payment{},
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolver.SearchTerm(tt.payment))
		})
	}
}

func TestResolverResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("scopes to group when payment has one", func(t *testing.T) {
		directory := &fakeDirectory{members: []model.Member{{ID: "m-1", FullName: "Alice"}}}
		resolver := NewResolver(directory, "sacco-1")

		payment := model.Payment{MSISDN: "+250788123456", GroupID: "grp-1"}
		members, term, err := resolver.Resolve(ctx, payment)

		require.NoError(t, err)
		assert.Equal(t, "+250788123456", term)
		assert.Len(t, members, 1)
		require.NotNil(t, directory.lastQuery)
		assert.Equal(t, "grp-1", directory.lastQuery.GroupID)
		assert.Equal(t, "sacco-1", directory.lastQuery.SaccoID)
		assert.Equal(t, candidatePageSize, directory.lastQuery.Limit)
	})

	t.Run("tenant scope when no group", func(t *testing.T) {
		directory := &fakeDirectory{}
		resolver := NewResolver(directory, "sacco-1")

		_, _, err := resolver.Resolve(ctx, model.Payment{MSISDN: "+250788123456"})

		require.NoError(t, err)
		assert.Empty(t, directory.lastQuery.GroupID)
		assert.Equal(t, "sacco-1", directory.lastQuery.SaccoID)
	})

	t.Run("empty term skips the store", func(t *testing.T) {
		directory := &fakeDirectory{}
		resolver := NewResolver(directory, "sacco-1")

		members, term, err := resolver.Resolve(ctx, model.Payment{})

		require.NoError(t, err)
		assert.Empty(t, term)
		assert.Empty(t, members)
		assert.Nil(t, directory.lastQuery)
	})

	t.Run("query error yields empty set and error", func(t *testing.T) {
		directory := &fakeDirectory{searchErr: errors.New("directory offline")}
		resolver := NewResolver(directory, "sacco-1")

		members, _, err := resolver.Resolve(ctx, model.Payment{MSISDN: "+250788123456"})

		assert.Error(t, err)
		assert.Empty(t, members)
	})

	t.Run("term reaches the store unescaped", func(t *testing.T) {
		// LIKE escaping is the storage layer's job; escaping here too would
		// double the backslashes and break literal matches.
		directory := &fakeDirectory{}
		resolver := NewResolver(directory, "sacco-1")

		_, err := resolver.Search(ctx, model.Payment{}, "50%_a")

		require.NoError(t, err)
		assert.Equal(t, "50%_a", directory.lastQuery.Term)
	})
}

func TestResolverAgainstDatabase(t *testing.T) {
	db := testutil.SetupTestDB(t)
	db.SeedDirectory(
		[]model.Group{{ID: "grp-7", SaccoID: "sacco-1", Code: "GRP7", Name: "Abadahigwa", Status: model.GroupActive}},
		[]model.Member{
			{ID: "mem-1", SaccoID: "sacco-1", GroupID: "grp-7", FullName: "Mukamana Chantal", MemberCode: "M_004", MSISDN: "+250788123456"},
			{ID: "mem-2", SaccoID: "sacco-1", GroupID: "grp-7", FullName: "Niyonzima Eric", MemberCode: "M014", MSISDN: "+250722000111"},
		},
	)
	resolver := NewResolver(db.Storage, "sacco-1")

	// A member code with an underscore must match literally, not as a LIKE
	// wildcard.
	payment := model.Payment{MSISDN: "2507****456", Reference: "SACCO1.GRP7.M_004"}
	members, term, err := resolver.Resolve(context.Background(), payment)

	require.NoError(t, err)
	assert.Equal(t, "M_004", term)
	require.Len(t, members, 1)
	assert.Equal(t, "mem-1", members[0].ID)
}
