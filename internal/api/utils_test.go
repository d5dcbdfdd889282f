package api

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, body string, dst interface{}) error {
	t.Helper()
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/", strings.NewReader(body))
	return DecodeJSONBody(w, r, dst)
}

func TestDecodeJSONBody(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	var p payload
	require.NoError(t, decode(t, `{"name":"ok"}`, &p))
	assert.Equal(t, "ok", p.Name)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown field", `{"nmae":"typo"}`, `unknown key "nmae"`},
		{"empty body", ``, "must not be empty"},
		{"trailing value", `{"name":"a"}{"name":"b"}`, "single JSON value"},
		{"wrong type", `{"name":7}`, `incorrect JSON type for field "name"`},
		{"malformed", `{"name":`, "badly-formed JSON"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var p payload
			err := decode(t, tc.body, &p)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestVerifyAudience(t *testing.T) {
	aud := jwt.ClaimStrings{"dateai-client", "mobile"}

	assert.True(t, VerifyAudience(aud, "dateai-client"))
	assert.True(t, VerifyAudience(nil, ""), "no expectation always passes")
	assert.False(t, VerifyAudience(aud, "other"))
	assert.False(t, VerifyAudience(nil, "dateai-client"))
}
