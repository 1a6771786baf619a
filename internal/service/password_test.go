package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		name     string
		password string
		wantErr  string
	}{
		{"accepts strong password", "Str0ng!pass", ""},
		{"rejects short password", "weak", "8 characters"},
		{"rejects missing uppercase", "str0ng!pass", "uppercase"},
		{"rejects missing lowercase", "STR0NG!PASS", "lowercase"},
		{"rejects missing digit", "Strong!pass", "digit"},
		{"rejects missing special", "Str0ngpass", "special"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validatePassword(tc.password)
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
