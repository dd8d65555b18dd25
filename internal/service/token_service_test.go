package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/turma-scheduler/internal/models"
	"github.com/noah-isme/turma-scheduler/pkg/config"
	appErrors "github.com/noah-isme/turma-scheduler/pkg/errors"
)

func signToken(t *testing.T, method jwt.SigningMethod, secret interface{}, claims models.JWTClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func teacherClaims(expires time.Time) models.JWTClaims {
	return models.JWTClaims{
		UserID: "teacher-t",
		Role:   models.RoleTeacher,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "identity",
			Audience:  jwt.ClaimStrings{"scheduler"},
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
}

func TestTokenServiceValidate(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "secret", Issuer: "identity", Audience: "scheduler"})

	claims, err := svc.ValidateToken(signToken(t, jwt.SigningMethodHS256, []byte("secret"), teacherClaims(time.Now().Add(time.Hour))))
	require.NoError(t, err)
	assert.Equal(t, "teacher-t", claims.SubjectID())
	assert.Equal(t, models.RoleTeacher, claims.Role)
	assert.False(t, claims.IsAdmin())
}

func TestTokenServiceRejects(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "secret", Issuer: "identity", Audience: "scheduler"})
	valid := teacherClaims(time.Now().Add(time.Hour))

	wrongIssuer := valid
	wrongIssuer.Issuer = "someone-else"
	noRole := valid
	noRole.Role = ""
	noSubject := valid
	noSubject.UserID = ""

	cases := map[string]string{
		"expired":      signToken(t, jwt.SigningMethodHS256, []byte("secret"), teacherClaims(time.Now().Add(-time.Minute))),
		"wrong secret": signToken(t, jwt.SigningMethodHS256, []byte("other"), valid),
		"wrong alg":    signToken(t, jwt.SigningMethodHS512, []byte("secret"), valid),
		"issuer":       signToken(t, jwt.SigningMethodHS256, []byte("secret"), wrongIssuer),
		"no role":      signToken(t, jwt.SigningMethodHS256, []byte("secret"), noRole),
		"no subject":   signToken(t, jwt.SigningMethodHS256, []byte("secret"), noSubject),
		"garbage":      "not-a-token",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(token)
			requireCode(t, err, appErrors.ErrUnauthorized)
		})
	}
}

func TestTokenServiceSubjectFallback(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "secret"})
	claims := models.JWTClaims{Role: models.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{Subject: "admin-1"}}

	parsed, err := svc.ValidateToken(signToken(t, jwt.SigningMethodHS256, []byte("secret"), claims))
	require.NoError(t, err)
	assert.Equal(t, "admin-1", parsed.SubjectID())
	assert.True(t, parsed.IsAdmin())
}
