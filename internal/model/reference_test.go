package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReference(t *testing.T) {
	tests := []struct {
		name           string
		raw            string
		wantErr        error
		wantGroupCode  string
		wantMemberCode string
	}{
		{
			name:           "full reference",
			raw:            "SACCO1.GRP7.M004",
			wantGroupCode:  "GRP7",
			wantMemberCode: "M004",
		},
		{
			name:    "empty reference",
			raw:     "",
			wantErr: ErrEmptyReference,
		},
		{
			name:    "whitespace only",
			raw:     "   ",
			wantErr: ErrEmptyReference,
		},
		{
			name:    "too few segments",
			raw:     "SACCO1.GRP7",
			wantErr: ErrShortReference,
		},
		{
			name:           "case preserved",
			raw:            "sacco1.grp7.m004",
			wantGroupCode:  "grp7",
			wantMemberCode: "m004",
		},
		{
			name:           "extra segments keep positional meaning",
			raw:            "SACCO1.GRP7.M004.EXTRA",
			wantGroupCode:  "GRP7",
			wantMemberCode: "M004",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseReference(tt.raw)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantGroupCode, ref.GroupCode())
			assert.Equal(t, tt.wantMemberCode, ref.MemberCode())
		})
	}
}

func TestMemberCodeHint(t *testing.T) {
	assert.Equal(t, "M004", MemberCodeHint("SACCO1.GRP7.M004"))
	assert.Empty(t, MemberCodeHint("SACCO1.GRP7"))
	assert.Empty(t, MemberCodeHint(""))
}
