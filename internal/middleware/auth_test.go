package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-records-api/internal/models"
	appErrors "github.com/noah-isme/campus-records-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return s.claims, nil
}

func protectedRouter(claims *models.JWTClaims, guards ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers := append([]gin.HandlerFunc{JWT(stubValidator{claims: claims})}, guards...)
	handlers = append(handlers, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/students/:id", handlers...)
	return router
}

func serve(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestJWTRejectsMissingAndMalformedHeaders(t *testing.T) {
	router := protectedRouter(&models.JWTClaims{UserID: "S1", Role: models.RoleStudent})

	for _, header := range []string{"", "good", "Basic good", "Bearer bad"} {
		if rec := serve(router, "/students/S1", header); rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: unexpected status %d", header, rec.Code)
		}
	}
	if rec := serve(router, "/students/S1", "Bearer good"); rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestRBACAllowsRolesAndSelf(t *testing.T) {
	cases := []struct {
		name   string
		claims *models.JWTClaims
		path   string
		want   int
	}{
		{"admin allowed", &models.JWTClaims{UserID: "a", Role: models.RoleAdmin2}, "/students/S1", http.StatusNoContent},
		{"self allowed", &models.JWTClaims{UserID: "S1", Role: models.RoleStudent}, "/students/S1", http.StatusNoContent},
		{"other student forbidden", &models.JWTClaims{UserID: "S2", Role: models.RoleStudent}, "/students/S1", http.StatusForbidden},
		{"parent forbidden", &models.JWTClaims{UserID: "P1", Role: models.RoleParent}, "/students/S1", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := protectedRouter(tc.claims, RBAC(string(models.RoleAdmin1), string(models.RoleAdmin2), Self))
			if rec := serve(router, tc.path, "Bearer good"); rec.Code != tc.want {
				t.Fatalf("unexpected status: %d", rec.Code)
			}
		})
	}
}

func TestRBACWithoutClaimsIsUnauthorized(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/", RequireRoles(models.RoleAdmin1), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	if rec := serve(router, "/", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

type fixedProbe bool

func (p fixedProbe) RemoteUsable() bool { return bool(p) }

func TestPersistenceModeTagsResponses(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for probe, want := range map[fixedProbe]string{true: PersistenceRemote, false: PersistenceFallback} {
		router := gin.New()
		router.Use(PersistenceMode(probe))
		router.GET("/", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"meta": ExtractMeta(c)})
		})

		rec := serve(router, "/", "")
		var body struct {
			Meta map[string]interface{} `json:"meta"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Meta[persistenceKey] != want {
			t.Fatalf("unexpected persistence mode: %v", body.Meta[persistenceKey])
		}
	}
}
