package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{in: "user", want: RoleUser, ok: true},
		{in: " Assistant ", want: RoleAssistant, ok: true},
		{in: "USER", want: RoleUser, ok: true},
		{in: "system", ok: false},
		{in: "", ok: false},
	}
	for _, tt := range tests {
		got, ok := ParseRole(tt.in)
		require.Equal(t, tt.ok, ok, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}
}
