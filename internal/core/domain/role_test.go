package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole_Satisfies(t *testing.T) {
	tests := []struct {
		have     Role
		required Role
		want     bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleManager, RoleAdmin, false},
		{RoleTechnicien, RoleAdmin, false},
		{RoleClient, RoleAdmin, false},
		{RoleClient, RoleClient, true},
		{RoleTechnicien, RoleClient, true},
		{RoleManager, RoleClient, true},
		{RoleAdmin, RoleClient, true},
		{RoleClient, RoleTechnicien, false},
		{RoleManager, RoleTechnicien, true},
		{Role("superuser"), RoleClient, false},
		{RoleAdmin, Role("superuser"), false},
		{Role(""), Role(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.have)+"->"+string(tt.required), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.have.Satisfies(tt.required))
		})
	}
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("technicien")
	require.NoError(t, err)
	assert.Equal(t, RoleTechnicien, r)

	_, err = ParseRole("Admin")
	assert.Error(t, err)

	_, err = ParseRole("")
	assert.Error(t, err)
}

func TestRole_RankUnknown(t *testing.T) {
	_, ok := Role("guest").Rank()
	assert.False(t, ok)

	rank, ok := RoleManager.Rank()
	assert.True(t, ok)
	assert.Equal(t, 3, rank)
}

func TestNewUser_NomComplet(t *testing.T) {
	u := NewUser(&UserRow{ID: 7, Username: "alice", FirstName: "Alice", LastName: "Martin", Role: "manager"})
	assert.Equal(t, "Alice Martin", u.NomComplet)
	assert.Equal(t, RoleManager, u.Role)

	u = NewUser(&UserRow{ID: 8, Username: "bob", FirstName: "Bob"})
	assert.Equal(t, "Bob", u.NomComplet)
}
