package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/turma-scheduler/internal/middleware"
	"github.com/noah-isme/turma-scheduler/internal/models"
)

// Handlers groups the API handlers mounted under the API prefix.
type Handlers struct {
	Availability *AvailabilityHandler
	Suggestions  *SuggestionHandler
	Bookings     *BookingHandler
	Progress     *ProgressHandler
}

// RegisterRoutes mounts the scheduling API. authn must place verified claims on the context.
func RegisterRoutes(api *gin.RouterGroup, h Handlers, authn gin.HandlerFunc) {
	admins := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin)
	anyone := middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin, models.RoleTeacher)

	secured := api.Group("")
	secured.Use(authn, middleware.WithResponseMeta())

	secured.POST("/availability", anyone, h.Availability.Set)
	secured.GET("/availability", middleware.RBAC(string(models.RoleAdmin), string(models.RoleSuperAdmin), middleware.RoleSelf), h.Availability.List)

	secured.GET("/suggestions", admins, h.Suggestions.List)
	secured.GET("/progress", admins, h.Progress.Get)

	bookings := secured.Group("/bookings", admins)
	bookings.GET("", h.Bookings.List)
	bookings.GET("/export", h.Bookings.Export)
	bookings.POST("", h.Bookings.Create)
	bookings.PUT("/:id", h.Bookings.Update)
	bookings.DELETE("/:id", h.Bookings.Delete)
}
