package v1

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header http.Header
		want   string
		wantOK bool
	}{
		{"canonical", http.Header{"Authorization": {"Bearer abc123"}}, "abc123", true},
		{"lowercase key and scheme", http.Header{"authorization": {"bearer abc123"}}, "abc123", true},
		{"upper scheme", http.Header{"AUTHORIZATION": {"BEARER abc123"}}, "abc123", true},
		{"surrounding spaces", http.Header{"Authorization": {"  Bearer   abc123  "}}, "abc123", true},
		{"missing", http.Header{}, "", false},
		{"nil header", nil, "", false},
		{"basic scheme", http.Header{"Authorization": {"Basic dXNlcjpwdw=="}}, "", false},
		{"scheme only", http.Header{"Authorization": {"Bearer"}}, "", false},
		{"scheme with blank token", http.Header{"Authorization": {"Bearer    "}}, "", false},
		{"two tokens", http.Header{"Authorization": {"Bearer abc def"}}, "", false},
		{"no separator", http.Header{"Authorization": {"Bearerabc"}}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := bearerToken(tt.header)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWellFormedToken(t *testing.T) {
	tok, err := newRandomHex()
	assert.NoError(t, err)
	assert.Len(t, tok, 64)
	assert.True(t, wellFormedToken(tok))

	assert.False(t, wellFormedToken(""))
	assert.False(t, wellFormedToken(tok[:63]))
	assert.False(t, wellFormedToken(tok[:63]+"z"))
	assert.False(t, wellFormedToken(tok+"00"))
}
