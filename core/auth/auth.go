package auth

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/hesabu/core"
)

const (
	RoleInstructor = "instructor"

	audience = "Instructors"
)

var (
	// errors
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrNotConfigured        = errors.New("instructor password not configured")

	SigningMethod = jwt.SigningMethodHS256

	nowFunc = time.Now // mockable
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Name  string   `json:"name,omitempty"`
	Roles []string `json:"roles,omitempty"`
}

func (c Claims) IsInstructor() bool {
	for _, r := range c.Roles {
		if r == RoleInstructor {
			return true
		}
	}
	return false
}

// Person identifies the bearer in logs.
func (c Claims) Person() core.Person {
	return core.Person{ID: c.Subject, Username: c.Name}
}

func NewInstructorClaims(name string, conf *core.Config) *Claims {
	now := nowFunc()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   name,
			Audience:  audience,
			ExpiresAt: now.Add(conf.Auth.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Name:  name,
		Roles: []string{RoleInstructor},
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(claims *Claims, secretKey string) (string, error) {
	token := jwt.NewWithClaims(SigningMethod, claims)
	ss, err := token.SignedString([]byte(secretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func HashPassword(pwd string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hashing password")
	}
	return string(hash), nil
}

// Authenticate checks `pwd` against the configured instructor password hash.
func Authenticate(name, pwd string, conf *core.Config) (*Claims, error) {
	if conf.Auth.InstructorPasswordHash == "" {
		return nil, ErrNotConfigured
	}
	if err := bcrypt.CompareHashAndPassword([]byte(conf.Auth.InstructorPasswordHash), []byte(pwd)); err != nil {
		return nil, ErrAuthenticationFailed
	}
	if name == "" {
		name = RoleInstructor
	}
	return NewInstructorClaims(name, conf), nil
}
