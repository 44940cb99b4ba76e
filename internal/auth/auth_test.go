package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc", "abc", false},
		{"Bearer   abc  ", "abc", false},
		{"", "", true},
		{"Basic abc", "", true},
		{"Bearer ", "", true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest("POST", "/rpc", nil)
		if tt.header != "" {
			r.Header.Set("Authorization", tt.header)
		}
		got, err := ExtractBearerToken(r)
		if tt.wantErr {
			assert.Error(t, err, tt.header)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestAuthenticateAndScopes(t *testing.T) {
	tokens := []TokenConfig{
		{Name: "reader", Token: "r-token", Scopes: []string{ScopeRead}},
		{Name: "writer", Token: "w-token", Scopes: []string{" rpc:rw "}},
		{Name: "admin", Token: "a-token", Scopes: []string{ScopeAdmin}},
	}

	_, ok := Authenticate("nope", tokens)
	assert.False(t, ok)
	_, ok = Authenticate("", []TokenConfig{{Token: ""}})
	assert.False(t, ok, "empty tokens never match")

	reader, ok := Authenticate("r-token", tokens)
	require.True(t, ok)
	assert.Equal(t, "reader", reader.Name)
	assert.True(t, CanInvoke(reader, false))
	assert.False(t, CanInvoke(reader, true))

	writer, _ := Authenticate("w-token", tokens)
	assert.True(t, CanInvoke(writer, false), "write implies read")
	assert.True(t, CanInvoke(writer, true))

	admin, _ := Authenticate("a-token", tokens)
	assert.True(t, CanInvoke(admin, true))
	assert.True(t, HasAnyScope(admin, "anything"))
}

func TestValidScope(t *testing.T) {
	assert.True(t, ValidScope(ScopeRead))
	assert.False(t, ValidScope("jobs:rw"))
}
