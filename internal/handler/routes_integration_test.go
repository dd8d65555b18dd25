package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/turma-scheduler/internal/dto"
	internalmiddleware "github.com/noah-isme/turma-scheduler/internal/middleware"
	"github.com/noah-isme/turma-scheduler/internal/models"
	"github.com/noah-isme/turma-scheduler/internal/service"
)

func TestSchedulingRoutesIntegration(t *testing.T) {
	router := buildSchedulingRouter()

	cases := []struct {
		name   string
		method string
		target string
		body   string
		role   models.UserRole
		want   int
	}{
		{"bookings without token", http.MethodGet, "/api/v1/bookings?start=a&end=b", "", "", http.StatusUnauthorized},
		{"bookings as admin", http.MethodGet, "/api/v1/bookings?start=a&end=b", "", models.RoleAdmin, http.StatusOK},
		{"bookings as teacher", http.MethodGet, "/api/v1/bookings?start=a&end=b", "", models.RoleTeacher, http.StatusForbidden},
		{"create booking as superadmin", http.MethodPost, "/api/v1/bookings", `{"cohortId":"c1"}`, models.RoleSuperAdmin, http.StatusOK},
		{"update booking as teacher", http.MethodPut, "/api/v1/bookings/e1", `{"roomId":"r4"}`, models.RoleTeacher, http.StatusForbidden},
		{"delete booking as admin", http.MethodDelete, "/api/v1/bookings/e1", "", models.RoleAdmin, http.StatusOK},
		{"export as admin", http.MethodGet, "/api/v1/bookings/export?format=csv&start=a&end=b", "", models.RoleAdmin, http.StatusOK},
		{"suggestions as teacher", http.MethodGet, "/api/v1/suggestions?cohortId=c1", "", models.RoleTeacher, http.StatusForbidden},
		{"suggestions as admin", http.MethodGet, "/api/v1/suggestions?cohortId=c1", "", models.RoleAdmin, http.StatusOK},
		{"progress as admin", http.MethodGet, "/api/v1/progress?cohortId=c1", "", models.RoleAdmin, http.StatusOK},
		{"own availability", http.MethodGet, "/api/v1/availability?teacherId=test-user&start=a&end=b", "", models.RoleTeacher, http.StatusOK},
		{"foreign availability", http.MethodGet, "/api/v1/availability?teacherId=other&start=a&end=b", "", models.RoleTeacher, http.StatusForbidden},
		{"set own availability", http.MethodPost, "/api/v1/availability", `{"teacherId":"test-user","hour":"2026-02-10T09:00:00","available":true}`, models.RoleTeacher, http.StatusOK},
		{"set foreign availability", http.MethodPost, "/api/v1/availability", `{"teacherId":"other","hour":"2026-02-10T09:00:00","available":true}`, models.RoleTeacher, http.StatusForbidden},
		{"set availability as admin", http.MethodPost, "/api/v1/availability", `{"teacherId":"other","hour":"2026-02-10T09:00:00","available":true}`, models.RoleAdmin, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, _ := http.NewRequest(tc.method, tc.target, bytes.NewBufferString(tc.body))
			req.Header.Set("Content-Type", "application/json")
			if tc.role != "" {
				req.Header.Set("X-Test-Role", string(tc.role))
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			require.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}
}

func buildSchedulingRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	testAuth := func(c *gin.Context) {
		if role := c.GetHeader("X-Test-Role"); role != "" {
			c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{
				UserID: "test-user",
				Role:   models.UserRole(role),
			})
		}
		c.Next()
	}

	exporter := &exporterMock{file: &service.ExportFile{Filename: "t.csv", ContentType: "text/csv", Payload: []byte("Hour\n")}}
	RegisterRoutes(router.Group("/api/v1"), Handlers{
		Availability: NewAvailabilityHandler(&availabilityServiceMock{}),
		Suggestions:  NewSuggestionHandler(&suggestionServiceMock{items: []dto.Suggestion{}}),
		Bookings:     NewBookingHandler(&bookingServiceMock{result: &dto.BookingResult{}}, exporter),
		Progress:     NewProgressHandler(&progressServiceMock{report: &dto.CohortProgress{CohortID: "c1"}}),
	}, testAuth)
	return router
}
