package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/FacundoCanepa/tiopelotte-pedidos-api/configs"
	"github.com/FacundoCanepa/tiopelotte-pedidos-api/internal/adapter/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func securityConfig() configs.Config {
	var cfg configs.Config
	cfg.Security.JWTSecret = "test-secret"
	cfg.Security.Issuer = "pedidos-api"
	cfg.Security.Audience = "pedidos-clients"
	cfg.Security.TTL = 15 * time.Minute
	return cfg
}

func tokenRouter(cfg configs.Config) *gin.Engine {
	th := NewTokenHandler(cfg)
	authz := middleware.NewAuthz(cfg)
	r := gin.New()
	r.POST("/v1/token", th.IssueToken)
	r.GET("/v1/admin/orders", authz.Require("orders.read"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func postForm(r *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIssueToken_AndUseIt(t *testing.T) {
	cfg := securityConfig()
	r := tokenRouter(cfg)

	w := postForm(r, "/v1/token", url.Values{
		"client_id":     {"admin-dashboard"},
		"client_secret": {"admin-dashboard-secret"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decodeJSON(t, w)
	assert.Equal(t, "Bearer", resp["token_type"])
	assert.EqualValues(t, 900, resp["expires_in"])
	token, _ := resp["access_token"].(string)
	require.NotEmpty(t, token)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIssueToken_BadCredentials(t *testing.T) {
	r := tokenRouter(securityConfig())

	cases := []url.Values{
		{"client_id": {"admin-dashboard"}, "client_secret": {"wrong"}},
		{"client_id": {"unknown"}, "client_secret": {"whatever"}},
		{"client_id": {"admin-dashboard"}},
		{},
	}
	for _, form := range cases {
		w := postForm(r, "/v1/token", form)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
}

func TestAdminRoute_RejectsMissingOrBadToken(t *testing.T) {
	r := tokenRouter(securityConfig())

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/orders", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminRoute_RejectsTokenFromOtherIssuer(t *testing.T) {
	issuing := securityConfig()
	issuing.Security.Issuer = "someone-else"
	issuer := tokenRouter(issuing)

	w := postForm(issuer, "/v1/token", url.Values{
		"client_id":     {"admin-dashboard"},
		"client_secret": {"admin-dashboard-secret"},
	})
	require.Equal(t, http.StatusOK, w.Code)
	token, _ := decodeJSON(t, w)["access_token"].(string)

	r := tokenRouter(securityConfig())
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
