package middleware

import (
	"context"
	"errors"
	"fincra-wisdom/internal/model"
	"fincra-wisdom/pkg/token"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProfiles map[string]*model.User

func (s stubProfiles) GetProfile(ctx context.Context, email string) (*model.User, error) {
	if u, ok := s[email]; ok {
		return u, nil
	}
	return nil, errors.New("not found")
}

type stubBlacklist struct {
	revoked map[string]bool
	err     error
}

func (s stubBlacklist) IsBlacklisted(ctx context.Context, tok string) (bool, error) {
	return s.revoked[tok], s.err
}

func newRouter(jwt *token.JWTManager, users stubProfiles, bl stubBlacklist) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/me", AuthMiddleware(jwt, users, bl), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"email": CurrentUser(c).Email})
	})
	r.GET("/admin", AuthMiddleware(jwt, users, bl), AdminAuthMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func get(r *gin.Engine, path, tok string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	jwt := token.NewJWTManager("test-secret", 1, 7)
	users := stubProfiles{
		"amaka@fincra.com": {ID: 2, Email: "amaka@fincra.com", Role: model.RoleUser},
		"ada@fincra.com":   {ID: 1, Email: "ada@fincra.com", Role: model.RoleAdmin},
		"root@fincra.com":  {ID: 3, Email: "root@fincra.com", Role: model.RoleSuperAdmin},
		"gone@fincra.com":  {ID: 4, Email: "gone@fincra.com", Role: model.RoleUser, IsBlocked: true},
	}

	userTok, err := jwt.GenerateToken(2, "amaka@fincra.com", model.RoleUser)
	require.NoError(t, err)
	adminTok, err := jwt.GenerateToken(1, "ada@fincra.com", model.RoleAdmin)
	require.NoError(t, err)
	rootTok, err := jwt.GenerateToken(3, "root@fincra.com", model.RoleSuperAdmin)
	require.NoError(t, err)
	blockedTok, err := jwt.GenerateToken(4, "gone@fincra.com", model.RoleUser)
	require.NoError(t, err)
	refreshTok, err := jwt.GenerateRefreshToken(2, "amaka@fincra.com", model.RoleUser)
	require.NoError(t, err)
	unknownTok, err := jwt.GenerateToken(9, "ghost@fincra.com", model.RoleUser)
	require.NoError(t, err)
	revokedTok, err := jwt.GenerateToken(2, "amaka@fincra.com", model.RoleUser)
	require.NoError(t, err)

	r := newRouter(jwt, users, stubBlacklist{revoked: map[string]bool{revokedTok: true}})

	tests := []struct {
		name   string
		path   string
		token  string
		status int
	}{
		{"missing token", "/me", "", http.StatusUnauthorized},
		{"garbage token", "/me", "not-a-jwt", http.StatusUnauthorized},
		{"refresh token rejected", "/me", refreshTok, http.StatusUnauthorized},
		{"revoked token", "/me", revokedTok, http.StatusUnauthorized},
		{"unknown user", "/me", unknownTok, http.StatusUnauthorized},
		{"blocked user", "/me", blockedTok, http.StatusForbidden},
		{"valid user", "/me", userTok, http.StatusOK},
		{"user on admin route", "/admin", userTok, http.StatusForbidden},
		{"admin on admin route", "/admin", adminTok, http.StatusNoContent},
		{"superadmin on admin route", "/admin", rootTok, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(r, tt.path, tt.token)
			assert.Equal(t, tt.status, w.Code)
			if tt.status >= 400 {
				assert.Contains(t, w.Body.String(), `"success":false`)
			}
		})
	}
}

func TestAuthMiddlewareBlacklistError(t *testing.T) {
	jwt := token.NewJWTManager("test-secret", 1, 7)
	tok, err := jwt.GenerateToken(2, "amaka@fincra.com", model.RoleUser)
	require.NoError(t, err)
	r := newRouter(jwt, stubProfiles{}, stubBlacklist{err: errors.New("redis down")})

	w := get(r, "/me", tok)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAdminAuthWithoutUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", AdminAuthMiddleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := get(r, "/admin", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
