package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/hesabu/apps/api/echo"
	"github.com/trezcool/hesabu/core/auth"
)

func Test_authApi_login(t *testing.T) {
	app := setup(t)
	path := "/v1/auth/login"

	tests := []httpTest{
		{
			name: "password required", method: http.MethodPost, path: path, body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"password": "this field is required"}),
		},
		{
			name: "wrong password", method: http.MethodPost, path: path, body: []byte(`{"password": "nope"}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{name: "logged in", method: http.MethodPost, path: path, body: []byte(`{"name": "Mrs K", "password": "` + instructorPassword + `"}`), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}

	rec := app.do(tests[2])
	var res echoapi.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	claims := new(auth.Claims)
	_, err := jwt.ParseWithClaims(res.Token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(app.conf.SecretKey), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Mrs K", claims.Name)
	assert.True(t, claims.IsInstructor())

	// the token opens the instructor endpoints
	rec = app.do(httpTest{method: http.MethodPost, path: "/v1/assignments", token: res.Token})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func Test_instructorMiddleware(t *testing.T) {
	app := setup(t)

	claims := auth.NewInstructorClaims("learner", app.conf)
	claims.Roles = nil
	token, err := auth.GenerateToken(claims, app.conf.SecretKey)
	require.NoError(t, err)

	tt := httpTest{
		method: http.MethodPost, path: "/v1/assignments", token: token, wantCode: http.StatusForbidden,
		wantData: marchallObj(t, httpErr{Error: "permission denied"}),
	}
	checkCodeAndData(t, tt, app.do(tt))
}
