package users_test

import (
	"testing"

	"github.com/jrsteele09/beetrack-client/users"
	"github.com/stretchr/testify/require"
)

func TestEvaluatePassword(t *testing.T) {
	tests := []struct {
		password string
		valid    bool
		score    int
		label    string
	}{
		{password: "", valid: false, score: 0, label: "Weak"},
		{password: "abc", valid: false, score: 0, label: "Weak"},
		{password: "abcdefgh", valid: false, score: 1, label: "Weak"},
		{password: "Abcdefg1", valid: false, score: 3, label: "Good"},
		{password: "Abcdef1!", valid: true, score: 4, label: "Strong"},
		{password: "Abcdefgh12!x", valid: true, score: 4, label: "Strong"},
		{password: "Aa1!Aa1!", valid: true, score: 4, label: "Strong"},
	}

	for _, tc := range tests {
		eval := users.EvaluatePassword(tc.password)
		require.Equal(t, tc.valid, eval.Valid, tc.password)
		require.Equal(t, tc.score, eval.Strength.Score, tc.password)
		require.Equal(t, tc.label, eval.Strength.Label, tc.password)
	}
}

func TestValidatePasswordStrength(t *testing.T) {
	require.NoError(t, users.ValidatePasswordStrength("Str0ng!Pass"))

	err := users.ValidatePasswordStrength("weak")
	require.Error(t, err)
	require.Contains(t, err.Error(), "at least 8 characters")
	require.Contains(t, err.Error(), "an uppercase letter")
	require.NotContains(t, err.Error(), "a lowercase letter")

	err = users.ValidatePasswordStrength("aaaaaaaa")
	require.Error(t, err)
	require.Contains(t, err.Error(), "a symbol")
	require.Contains(t, err.Error(), "at least 4 different characters")
}
