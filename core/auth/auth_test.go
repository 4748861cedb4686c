package auth

import (
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/hesabu/core"
)

func TestAuthenticate(t *testing.T) {
	conf := core.NewTestConfig()
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	_, err = Authenticate("", "s3cret", conf)
	assert.Equal(t, ErrNotConfigured, err)

	conf.Auth.InstructorPasswordHash = hash

	tests := []struct {
		name     string
		user     string
		pwd      string
		wantName string
		wantErr  error
	}{
		{name: "wrong password", pwd: "nope", wantErr: ErrAuthenticationFailed},
		{name: "empty password", wantErr: ErrAuthenticationFailed},
		{name: "default name", pwd: "s3cret", wantName: RoleInstructor},
		{name: "named", user: "mrs k", pwd: "s3cret", wantName: "mrs k"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := Authenticate(tt.user, tt.pwd, conf)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, claims.Name)
			assert.True(t, claims.IsInstructor())
			assert.Equal(t, core.Person{ID: tt.wantName, Username: tt.wantName}, claims.Person())
		})
	}
}

func TestGenerateToken(t *testing.T) {
	conf := core.NewTestConfig()
	now := time.Now().Add(-time.Minute)
	nowFunc = func() time.Time { return now }
	defer func() { nowFunc = time.Now }() // reset

	ss, err := GenerateToken(NewInstructorClaims("mrs k", conf), conf.SecretKey)
	require.NoError(t, err)

	claims := new(Claims)
	token, err := jwt.ParseWithClaims(ss, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(conf.SecretKey), nil
	})
	require.NoError(t, err)
	assert.True(t, token.Valid)
	assert.Equal(t, "mrs k", claims.Subject)
	assert.Equal(t, now.Add(time.Hour).Unix(), claims.ExpiresAt)
	assert.True(t, claims.IsInstructor())

	_, err = jwt.ParseWithClaims(ss, new(Claims), func(*jwt.Token) (interface{}, error) {
		return []byte("other"), nil
	})
	assert.Error(t, err)
}
