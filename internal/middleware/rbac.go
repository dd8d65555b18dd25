package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/turma-scheduler/internal/models"
	appErrors "github.com/noah-isme/turma-scheduler/pkg/errors"
	"github.com/noah-isme/turma-scheduler/pkg/response"
)

// RoleSelf lets a caller through when the teacher targeted by the request is the caller.
const RoleSelf = "SELF"

// RBAC enforces role-based access control for routes.
// SELF compares the token subject with the teacherId path or query parameter.
func RBAC(allowed ...string) gin.HandlerFunc {
	allowSelf := false
	allowedRoles := make(map[models.UserRole]struct{}, len(allowed))
	for _, a := range allowed {
		if a == RoleSelf {
			allowSelf = true
			continue
		}
		allowedRoles[models.UserRole(a)] = struct{}{}
	}

	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowedRoles[claims.Role]; ok {
			c.Next()
			return
		}

		if allowSelf && claims.Role == models.RoleTeacher {
			if target := TargetTeacherID(c); target != "" && target == claims.SubjectID() {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRoles is a helper that accepts a list of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}

// TargetTeacherID reads the teacher a request is about from the path or query string.
func TargetTeacherID(c *gin.Context) string {
	if id := strings.TrimSpace(c.Param("teacherId")); id != "" {
		return id
	}
	return strings.TrimSpace(c.Query("teacherId"))
}

// CanActForTeacher reports whether the caller may read or write data owned by teacherID.
func CanActForTeacher(claims *models.JWTClaims, teacherID string) bool {
	if claims.IsAdmin() {
		return true
	}
	return claims != nil && claims.Role == models.RoleTeacher && teacherID != "" && claims.SubjectID() == teacherID
}
