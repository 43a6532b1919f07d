package httpkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"property_portal_backend/platform/apperr"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

type jwtConfig struct{}

func (jwtConfig) GetJWTAccessSecret() string { return testSecret }

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func newTestEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthRequired(jwtConfig{}), func(c *gin.Context) {
		id := MustGetIdentity(c)
		OK(c, gin.H{"user": id.UserID(), "role": id.Role(), "team": id.TeamID()})
	})
	r.GET("/staff", AuthRequired(jwtConfig{}), RequireRole("manager", "admin"), func(c *gin.Context) {
		OK(c, nil)
	})
	r.GET("/conflict", func(c *gin.Context) {
		HandleError(c, apperr.IllegalTransition("cannot approve"))
	})
	r.GET("/internal", func(c *gin.Context) {
		HandleError(c, apperr.Internal("pq: connection refused"))
	})
	return r
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Result {
	t.Helper()
	var res Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return res
}

func TestAuthRequiredSetsIdentity(t *testing.T) {
	userID, teamID := uuid.New(), uuid.New()
	token := signToken(t, jwt.MapClaims{
		"sub":     userID.String(),
		"role":    "manager",
		"team_id": teamID.String(),
		"type":    "access",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	newTestEngine().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	res := decode(t, w)
	data := res.Data.(map[string]interface{})
	if !res.Success || data["role"] != "manager" || data["team"] != teamID.String() {
		t.Fatalf("unexpected identity: %+v", res)
	}
}

func TestAuthRequiredRejectsBadTokens(t *testing.T) {
	cases := map[string]string{
		"missing": "",
		"garbage": "Bearer not-a-token",
		"refresh": "Bearer " + signToken(t, jwt.MapClaims{"sub": uuid.NewString(), "role": "tenant", "type": "refresh"}),
		"no role": "Bearer " + signToken(t, jwt.MapClaims{"sub": uuid.NewString(), "type": "access"}),
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			newTestEngine().ServeHTTP(w, req)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", w.Code)
			}
			if decode(t, w).Code != "unauthorized" {
				t.Fatalf("expected unauthorized code, got %s", w.Body.String())
			}
		})
	}
}

func TestRequireRoleForbidsOtherRoles(t *testing.T) {
	token := signToken(t, jwt.MapClaims{"sub": uuid.NewString(), "role": "tenant", "type": "access"})
	req := httptest.NewRequest(http.MethodGet, "/staff", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	newTestEngine().ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestHandleErrorWritesEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	newTestEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/conflict", nil))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	res := decode(t, w)
	if res.Success || res.Code != "illegal_transition" || res.Error != "cannot approve" {
		t.Fatalf("unexpected envelope: %+v", res)
	}

	w = httptest.NewRecorder()
	newTestEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal", nil))
	if w.Code != http.StatusInternalServerError || decode(t, w).Error != msgInternalError {
		t.Fatalf("internal details leaked: %s", w.Body.String())
	}
}
