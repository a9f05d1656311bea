package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qs3c/resv_go_server/config"
	"github.com/qs3c/resv_go_server/internal/api/middleware"
	"github.com/qs3c/resv_go_server/internal/model"
	"github.com/qs3c/resv_go_server/internal/pkg/jwt"
	"github.com/qs3c/resv_go_server/internal/pkg/response"
	"github.com/qs3c/resv_go_server/internal/pkg/schedule"
	"github.com/qs3c/resv_go_server/internal/pkg/ws"
	"github.com/qs3c/resv_go_server/internal/repository"
	"github.com/qs3c/resv_go_server/internal/service"
	"github.com/qs3c/resv_go_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiEnv struct {
	engine *gin.Engine
	db     *gorm.DB
	token  string
	cfg    *config.Config
}

func setupAPI(t *testing.T) *apiEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret", ExpireHours: 24},
		Bot: config.BotConfig{
			OwnerChatID: 9001,
			Dashboard: config.DashboardConfig{
				Username:     "admin",
				PasswordHash: string(hash),
			},
		},
		Slots: config.SlotsConfig{
			Timezone:   "UTC",
			Times:      []string{"20:30", "21:00", "21:30", "22:00", "22:30", "23:00"},
			Cutoff:     "23:00",
			DailyLimit: 4,
		},
	}

	sched, err := schedule.New(&cfg.Slots)
	require.NoError(t, err)

	verifRepo := repository.NewVerificationRepository(db)
	users := service.NewUserService(repository.NewUserRepository(db), repository.NewStatsRepository(db))
	booking := service.NewBookingService(repository.NewReservationRepository(db), verifRepo, sched, cfg, nil)
	verifications := service.NewVerificationService(verifRepo)
	discounts := service.NewDiscountService(repository.NewDiscountRepository(db))
	payments := service.NewPaymentService(
		repository.NewPaymentRepository(db), booking, verifications, discounts, nil)

	authHandler := NewAuthHandler(cfg)
	adminHandler := NewAdminHandler(users, booking, payments, verifications, discounts)
	wsHandler := NewWebSocketHandler(ws.NewHub(), cfg.JWT.Secret)

	// 与生产路由同构的最小测试路由
	engine := gin.New()
	api := engine.Group("/api/v1")
	api.GET("/ws", wsHandler.Handle)
	api.POST("/auth/login", authHandler.Login)

	admin := api.Group("")
	admin.Use(middleware.Auth(cfg.JWT.Secret))
	admin.GET("/stats", adminHandler.Stats)
	admin.GET("/availability", adminHandler.Availability)
	admin.GET("/payments/pending", adminHandler.PendingPayments)
	admin.POST("/payments/:id/decision", adminHandler.DecidePayment)
	admin.GET("/verifications/pending", adminHandler.PendingVerifications)
	admin.POST("/verifications/:id/decision", adminHandler.DecideVerification)
	admin.GET("/discounts", adminHandler.ListDiscounts)
	admin.POST("/discounts", adminHandler.CreateDiscount)
	admin.DELETE("/discounts/:code", adminHandler.DeactivateDiscount)

	token, err := jwt.GenerateToken(9001, cfg.JWT.Secret, 24)
	require.NoError(t, err)

	return &apiEnv{engine: engine, db: db, token: token, cfg: cfg}
}

func (e *apiEnv) request(t *testing.T, method, path string, body interface{}, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestLogin(t *testing.T) {
	env := setupAPI(t)

	w := env.request(t, "POST", "/api/v1/auth/login",
		gin.H{"username": "admin", "password": "secret"}, false)

	resp := decode(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, data["token"])
}

func TestLogin_WrongPassword(t *testing.T) {
	env := setupAPI(t)

	w := env.request(t, "POST", "/api/v1/auth/login",
		gin.H{"username": "admin", "password": "wrong"}, false)
	assert.Equal(t, response.CodeAuthFailed, decode(t, w).Code)

	w = env.request(t, "POST", "/api/v1/auth/login",
		gin.H{"username": "other", "password": "secret"}, false)
	assert.Equal(t, response.CodeAuthFailed, decode(t, w).Code)
}

func TestLogin_MissingFields(t *testing.T) {
	env := setupAPI(t)

	w := env.request(t, "POST", "/api/v1/auth/login", gin.H{"username": "admin"}, false)
	assert.Equal(t, response.CodeParamError, decode(t, w).Code)
}

func TestAdmin_RequiresAuth(t *testing.T) {
	env := setupAPI(t)

	w := env.request(t, "GET", "/api/v1/stats", nil, false)
	assert.Equal(t, response.CodeAuthFailed, decode(t, w).Code)
}

func TestStats(t *testing.T) {
	env := setupAPI(t)
	testutil.TestUser(t, env.db)
	testutil.TestUser(t, env.db)

	w := env.request(t, "GET", "/api/v1/stats", nil, true)
	resp := decode(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(2), data["total_users"])
}

func TestAvailability(t *testing.T) {
	env := setupAPI(t)

	w := env.request(t, "GET", "/api/v1/availability?date=2025-04-07", nil, true)
	resp := decode(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	data := resp.Data.(map[string]interface{})
	slots := data["slots"].([]interface{})
	assert.Len(t, slots, 6)
	assert.Equal(t, float64(4), data["daily_limit"])
}

func TestAvailability_BadDate(t *testing.T) {
	env := setupAPI(t)

	w := env.request(t, "GET", "/api/v1/availability?date=07/04/2025", nil, true)
	assert.Equal(t, response.CodeParamError, decode(t, w).Code)
}

func TestDecidePayment_Approve(t *testing.T) {
	env := setupAPI(t)

	user := testutil.TestUser(t, env.db)
	testutil.TestVerifiedCard(t, env.db, user.ID, "6037991234567890")
	res := testutil.TestReservation(t, env.db, user.ID,
		time.Date(2025, 4, 7, 20, 30, 0, 0, time.UTC))
	pay := testutil.TestPayment(t, env.db, res.ID, user.ID)

	w := env.request(t, "GET", "/api/v1/payments/pending", nil, true)
	resp := decode(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.Len(t, resp.Data.([]interface{}), 1)

	w = env.request(t, "POST", fmt.Sprintf("/api/v1/payments/%d/decision", pay.ID),
		gin.H{"decision": "approve"}, true)
	require.Equal(t, response.CodeSuccess, decode(t, w).Code)

	got, err := repository.NewReservationRepository(env.db).GetByID(res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationBooked, got.Status)

	// 重复裁决
	w = env.request(t, "POST", fmt.Sprintf("/api/v1/payments/%d/decision", pay.ID),
		gin.H{"decision": "reject", "reason": "x"}, true)
	assert.Equal(t, response.CodeAlreadyReviewed, decode(t, w).Code)
}

func TestDecidePayment_RejectNeedsReason(t *testing.T) {
	env := setupAPI(t)

	user := testutil.TestUser(t, env.db)
	res := testutil.TestReservation(t, env.db, user.ID,
		time.Date(2025, 4, 7, 21, 0, 0, 0, time.UTC))
	pay := testutil.TestPayment(t, env.db, res.ID, user.ID)

	w := env.request(t, "POST", fmt.Sprintf("/api/v1/payments/%d/decision", pay.ID),
		gin.H{"decision": "reject"}, true)
	assert.Equal(t, response.CodeParamError, decode(t, w).Code)

	w = env.request(t, "POST", fmt.Sprintf("/api/v1/payments/%d/decision", pay.ID),
		gin.H{"decision": "reject", "reason": "回执无法核对"}, true)
	require.Equal(t, response.CodeSuccess, decode(t, w).Code)

	got, err := repository.NewReservationRepository(env.db).GetByID(res.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationCancelled, got.Status)
}

func TestDecidePayment_NotFound(t *testing.T) {
	env := setupAPI(t)

	w := env.request(t, "POST", "/api/v1/payments/99999/decision",
		gin.H{"decision": "approve"}, true)
	assert.Equal(t, response.CodeResourceNotFound, decode(t, w).Code)
}

func TestDecideVerification(t *testing.T) {
	env := setupAPI(t)

	user := testutil.TestUser(t, env.db)
	req := testutil.TestVerification(t, env.db, user.ID)

	w := env.request(t, "POST", fmt.Sprintf("/api/v1/verifications/%d/decision", req.ID),
		gin.H{"decision": "approve"}, true)
	require.Equal(t, response.CodeSuccess, decode(t, w).Code)

	card, err := repository.NewVerificationRepository(env.db).VerifiedCard(user.ID)
	require.NoError(t, err)
	assert.Equal(t, req.CardNumber, card.CardNumber)
}

func TestDecideVerification_BadReason(t *testing.T) {
	env := setupAPI(t)

	user := testutil.TestUser(t, env.db)
	req := testutil.TestVerification(t, env.db, user.ID)

	w := env.request(t, "POST", fmt.Sprintf("/api/v1/verifications/%d/decision", req.ID),
		gin.H{"decision": "reject", "reason": "whatever"}, true)
	assert.Equal(t, response.CodeParamError, decode(t, w).Code)

	w = env.request(t, "POST", fmt.Sprintf("/api/v1/verifications/%d/decision", req.ID),
		gin.H{"decision": "reject", "reason": service.RejectReasonIncomplete}, true)
	require.Equal(t, response.CodeSuccess, decode(t, w).Code)

	got, err := repository.NewVerificationRepository(env.db).GetByID(req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReviewRejected, got.Status)
}

func TestDiscountCRUD(t *testing.T) {
	env := setupAPI(t)

	w := env.request(t, "POST", "/api/v1/discounts",
		gin.H{"code": "Spring20", "percent": 20, "max_uses": 5, "validity": "30d"}, true)
	require.Equal(t, response.CodeSuccess, decode(t, w).Code)

	// 重复创建
	w = env.request(t, "POST", "/api/v1/discounts",
		gin.H{"code": "spring20", "percent": 10, "max_uses": 1, "validity": "1d"}, true)
	assert.Equal(t, response.CodeConflict, decode(t, w).Code)

	// 有效期格式错误
	w = env.request(t, "POST", "/api/v1/discounts",
		gin.H{"code": "other", "percent": 10, "max_uses": 1, "validity": "soon"}, true)
	assert.Equal(t, response.CodeParamError, decode(t, w).Code)

	w = env.request(t, "GET", "/api/v1/discounts", nil, true)
	resp := decode(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)
	require.Len(t, resp.Data.([]interface{}), 1)

	w = env.request(t, "DELETE", "/api/v1/discounts/spring20", nil, true)
	require.Equal(t, response.CodeSuccess, decode(t, w).Code)

	dc, err := repository.NewDiscountRepository(env.db).GetByCode("spring20")
	require.NoError(t, err)
	assert.False(t, dc.IsActive)
}
