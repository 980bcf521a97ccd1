package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/tahfidz-api/internal/middleware"
	"github.com/noah-isme/tahfidz-api/internal/models"
)

type fakeDashboardSrv struct {
	adminResp   *models.AdminDashboard
	adminErr    error
	adminHit    bool
	musyrifResp *models.MusyrifDashboard
	musyrifHit  bool
	waliResp    *models.WaliDashboard
	waliErr     error
	lastMusyrif string
	lastWali    string
}

func (f *fakeDashboardSrv) Admin(context.Context) (*models.AdminDashboard, bool, error) {
	return f.adminResp, f.adminHit, f.adminErr
}

func (f *fakeDashboardSrv) Musyrif(_ context.Context, musyrifUserID string) (*models.MusyrifDashboard, bool, error) {
	f.lastMusyrif = musyrifUserID
	return f.musyrifResp, f.musyrifHit, nil
}

func (f *fakeDashboardSrv) Wali(_ context.Context, waliUserID string) (*models.WaliDashboard, bool, error) {
	f.lastWali = waliUserID
	return f.waliResp, false, f.waliErr
}

func TestDashboardHandlerAdminSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&fakeDashboardSrv{
		adminResp: &models.AdminDashboard{ActiveSantri: 42, GeneratedAt: time.Now().UTC()},
		adminHit:  true,
	}, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/admin", nil)

	handler.Admin(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Equal(t, float64(42), envelope.Data["active_santri"])
}

func TestDashboardHandlerAdminFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&fakeDashboardSrv{adminErr: errors.New("boom")}, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/admin", nil)

	handler.Admin(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestDashboardHandlerMusyrifRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDashboardHandler(&fakeDashboardSrv{}, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/musyrif", nil)

	handler.Musyrif(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardHandlerMusyrifUsesClaimUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeDashboardSrv{musyrifResp: &models.MusyrifDashboard{}, musyrifHit: false}
	handler := NewDashboardHandler(srv, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/musyrif", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "musyrif-1"})

	handler.Musyrif(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "musyrif-1", srv.lastMusyrif)
	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	assert.Equal(t, false, envelope.Meta["cache_hit"])
}

func TestDashboardHandlerWaliUsesClaimUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeDashboardSrv{waliResp: &models.WaliDashboard{}}
	handler := NewDashboardHandler(srv, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/dashboard/wali", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "wali-1"})

	handler.Wali(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "wali-1", srv.lastWali)
}

type responseEnvelope struct {
	Data map[string]interface{} `json:"data"`
	Meta map[string]interface{} `json:"meta"`
}
