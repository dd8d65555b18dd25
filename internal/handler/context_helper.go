package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/turma-scheduler/internal/middleware"
	"github.com/noah-isme/turma-scheduler/internal/models"
	appErrors "github.com/noah-isme/turma-scheduler/pkg/errors"
	"github.com/noah-isme/turma-scheduler/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.Claims(c)
}

// bindJSON decodes the body and writes a 422 on malformed input.
func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message))
		return false
	}
	return true
}

func bindQuery(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindQuery(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message))
		return false
	}
	return true
}

// requireTeacherAccess rejects callers that may not act for teacherID.
func requireTeacherAccess(c *gin.Context, teacherID string) bool {
	if middleware.CanActForTeacher(claimsFromContext(c), teacherID) {
		return true
	}
	response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "teachers may only manage their own availability"))
	return false
}
