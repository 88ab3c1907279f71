package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectStatus_Valid(t *testing.T) {
	for _, s := range []ProjectStatus{StatusDraft, StatusActive, StatusCompleted, StatusRejected} {
		assert.True(t, s.Valid(), s)
	}
	for _, s := range []ProjectStatus{"", "ACTIVE", "paused"} {
		assert.False(t, s.Valid(), s)
	}
}

func TestRole(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.True(t, RoleUser.Valid())
	assert.False(t, Role("admin ").Valid())

	assert.True(t, (&User{Role: RoleAdmin}).IsAdmin())
	assert.False(t, (&User{Name: "admin", Role: RoleUser}).IsAdmin())
	assert.False(t, (*User)(nil).IsAdmin())
}

func TestUser_JSONHidesSecrets(t *testing.T) {
	b, err := json.Marshal(User{ID: 1, Email: "a@example.com", PasswordHash: "$argon2id$...", GoogleID: "g-1"})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "argon2id")
	assert.NotContains(t, string(b), "g-1")
}

func TestAmountsMarshalAsStrings(t *testing.T) {
	b, err := json.Marshal(FundedProject{ID: 1, CurrentAmount: decimal.RequireFromString("250.00"), GoalAmount: decimal.NewFromInt(1000)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"title":"","currentAmount":"250","goalAmount":"1000"}`, string(b))
}
