package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"smartplant/internal/config"
	"smartplant/internal/domain/model"
	"smartplant/internal/handler"
	"smartplant/internal/infra/db"
	"smartplant/internal/infra/events"
	"smartplant/internal/infra/llm"
	infraRepo "smartplant/internal/infra/repository"
	"smartplant/internal/server"
	"smartplant/internal/usecase"
	auth "smartplant/internal/usecase/auth_usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// =====================
// fakes
// =====================

type nopMailer struct{}

func (nopMailer) Send(context.Context, string, string, string) error { return nil }

// 常に同じOTP
type staticCode string

func (s staticCode) NewCode() (string, error) { return string(s), nil }

type echoCompleter struct{}

func (echoCompleter) Complete(_ context.Context, _ string, _ []llm.Message, msg string) (string, error) {
	return "re: " + msg, nil
}
func (echoCompleter) Model() string        { return "test-model" }
func (echoCompleter) Temperature() float64 { return 0.7 }

type staticClassifier map[string]float64

func (s staticClassifier) Classify(context.Context, string, []byte) (map[string]float64, error) {
	return s, nil
}

// =====================
// app
// =====================

type testApp struct {
	t   *testing.T
	e   *echo.Echo
	gdb *gorm.DB
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	gdb, err := db.OpenSQLite("srv" + uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	cfg := config.Config{
		FEURL:          "http://fe.test",
		JWTSecret:      "test-secret",
		RateLimitRPS:   1000,
		RateLimitBurst: 1000,
	}
	zl := zap.NewNop()

	userRepo := infraRepo.NewUserGormRepository(gdb)
	productRepo := infraRepo.NewProductGormRepository(gdb)
	cartRepo := infraRepo.NewCartGormRepository(gdb)
	orderRepo := infraRepo.NewOrderGormRepository(gdb)
	addressRepo := infraRepo.NewAddressGormRepository(gdb)
	txm := infraRepo.NewTxManagerGorm(gdb)
	issuer := auth.NewJWTIssuer(cfg.JWTSecret, 15*time.Minute)
	var publisher events.OrderPublisher = events.NoopPublisher{}

	otpUC := usecase.NewOTPUsecase(txm, userRepo, staticCode("123456"), nopMailer{}, cfg.FEURL, zl)
	authUC := usecase.NewAuthUsecase(
		txm, userRepo,
		infraRepo.NewRefreshTokenRepository(gdb),
		infraRepo.NewPasswordResetGormRepository(gdb),
		auth.NewBcryptPasswordHasher(4), auth.NewBcryptPasswordVerifier(),
		issuer, auth.UUIDGenerator{}, auth.SystemClock{},
		otpUC, nopMailer{}, nil,
		usecase.AuthConfig{RefreshTTL: time.Hour, PasswordResetTTL: time.Hour, FEURL: cfg.FEURL},
		zl,
	)

	h := server.Handlers{
		Auth:       handler.NewAuthHandler(authUC),
		AdminUser:  handler.NewAdminUserHandler(authUC),
		Address:    handler.NewAddressHandler(usecase.NewAddressUsecase(addressRepo)),
		Product:    handler.NewProductHandler(usecase.NewProductUsecase(txm, infraRepo.NewCategoryGormRepository(gdb), productRepo)),
		Cart:       handler.NewCartHandler(usecase.NewCartUsecase(cartRepo, cartRepo, productRepo)),
		Order:      handler.NewOrderHandler(usecase.NewOrderUsecase(txm, orderRepo, addressRepo, publisher, zl)),
		AdminOrder: handler.NewAdminOrderHandler(usecase.NewAdminOrderUsecase(txm, orderRepo, publisher, zl)),
		AdminAudit: handler.NewAdminAuditHandler(usecase.NewAuditLogUsecase(infraRepo.NewAuditLogGormRepository(gdb))),
		Plant:      handler.NewPlantHandler(usecase.NewPlantUsecase(infraRepo.NewPlantGormRepository(gdb), nil, zl)),
		Chat: handler.NewChatHandler(usecase.NewChatUsecase(
			infraRepo.NewConversationGormRepository(gdb),
			infraRepo.NewChatMessageGormRepository(gdb),
			echoCompleter{}, zl,
		)),
		Disease: handler.NewDiseaseHandler(usecase.NewDiseaseUsecase(staticClassifier{"healthy": 0.2, "rust": 0.8}, zl)),
	}

	e := server.New(cfg, zl)
	server.RegisterRoutes(e, cfg, zl, h, server.Guards{Parser: issuer, Users: userRepo})

	return &testApp{t: t, e: e, gdb: gdb}
}

func (a *testApp) do(method, path, bearer string, body interface{}) (*httptest.ResponseRecorder, []byte) {
	a.t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec, rec.Body.Bytes()
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(b, &v), string(b))
	return v
}

type errorBody struct {
	Error     string `json:"error"`
	ProductID *int64 `json:"product_id"`
}

type loginBody struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    struct {
		ID   int64  `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
}

// 登録→OTP確認→ログインまで通してaccessを返す
func (a *testApp) signup(email string) loginBody {
	a.t.Helper()

	rec, b := a.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email": email, "username": email, "password": "password123", "password2": "password123",
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, string(b))

	rec, b = a.do(http.MethodPost, "/auth/verify", "", map[string]string{"email": email, "otp": "123456"})
	require.Equal(a.t, http.StatusOK, rec.Code, string(b))

	return a.login(email)
}

func (a *testApp) login(email string) loginBody {
	a.t.Helper()
	rec, b := a.do(http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": "password123"})
	require.Equal(a.t, http.StatusOK, rec.Code, string(b))
	return decode[loginBody](a.t, b)
}

// スタッフ権限を付けて再ログイン
func (a *testApp) staff(email string) loginBody {
	a.t.Helper()
	a.signup(email)
	require.NoError(a.t, a.gdb.Model(&model.User{}).Where("email = ?", email).Update("is_staff", true).Error)
	return a.login(email)
}

// =====================
// tests
// =====================

func TestServer_Healthz(t *testing.T) {
	app := newTestApp(t)
	rec, b := app.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, string(b))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

// 認証付きグループの下なので、未ログインは401、ログイン済みなら404
func TestServer_UnknownRoute_JSONError(t *testing.T) {
	app := newTestApp(t)

	rec, _ := app.do(http.MethodGet, "/nothing-here", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	user := app.signup("a@example.com")
	rec, b := app.do(http.MethodGet, "/nothing-here", user.Access, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotEmpty(t, decode[errorBody](t, b).Error)
}

func TestServer_AuthFlow(t *testing.T) {
	app := newTestApp(t)

	// 未確認ではログインできない
	rec, _ := app.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email": "a@example.com", "username": "a", "password": "password123", "password2": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, _ = app.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "a@example.com", "password": "password123"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// バリデーション
	rec, b := app.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email": "b@example.com", "username": "b", "password": "password123", "password2": "different1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, string(b))

	rec, _ = app.do(http.MethodPost, "/auth/verify", "", map[string]string{"email": "a@example.com", "otp": "000000"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = app.do(http.MethodPost, "/auth/verify", "", map[string]string{"email": "a@example.com", "otp": "123456"})
	require.Equal(t, http.StatusOK, rec.Code)

	lb := app.login("a@example.com")
	assert.NotEmpty(t, lb.Access)
	assert.NotEmpty(t, lb.Refresh)
	assert.Equal(t, "USER", lb.User.Role)

	rec, b = app.do(http.MethodGet, "/auth/me", lb.Access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(b), "a@example.com")

	// refreshはローテーション
	rec, b = app.do(http.MethodPost, "/auth/token/refresh", "", map[string]string{"refresh": lb.Refresh})
	require.Equal(t, http.StatusOK, rec.Code, string(b))
	rotated := decode[loginBody](t, b)
	assert.NotEqual(t, lb.Refresh, rotated.Refresh)

	// 使い回しは401
	rec, _ = app.do(http.MethodPost, "/auth/token/refresh", "", map[string]string{"refresh": lb.Refresh})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = app.do(http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_ForceLogout_InvalidatesAccessToken(t *testing.T) {
	app := newTestApp(t)
	user := app.signup("u@example.com")
	admin := app.staff("admin@example.com")

	// USERは管理APIに入れない
	rec, _ := app.do(http.MethodPost, fmt.Sprintf("/admin/users/%d/force-logout", admin.User.ID), user.Access, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, b := app.do(http.MethodPost, fmt.Sprintf("/admin/users/%d/force-logout", user.User.ID), admin.Access, nil)
	require.Equal(t, http.StatusOK, rec.Code, string(b))

	rec, _ = app.do(http.MethodGet, "/auth/me", user.Access, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type productBody struct {
	ID    int64  `json:"id"`
	Slug  string `json:"slug"`
	Stock int64  `json:"stock"`
}

type orderBody struct {
	ID         int64  `json:"id"`
	Status     string `json:"status"`
	TotalPrice int64  `json:"total_price"`
}

func TestServer_StoreCheckoutFlow(t *testing.T) {
	app := newTestApp(t)
	admin := app.staff("admin@example.com")
	user := app.signup("buyer@example.com")

	// カタログ作成はスタッフのみ
	rec, _ := app.do(http.MethodPost, "/store/categories", user.Access, map[string]string{"name": "Indoor"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = app.do(http.MethodPost, "/store/categories", "", map[string]string{"name": "Indoor"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, b := app.do(http.MethodPost, "/store/categories", admin.Access, map[string]string{"name": "Indoor"})
	require.Equal(t, http.StatusCreated, rec.Code, string(b))
	cat := decode[struct {
		ID int64 `json:"id"`
	}](t, b)

	rec, b = app.do(http.MethodPost, "/store/products", admin.Access, map[string]interface{}{
		"category_id": cat.ID, "name": "Monstera Deliciosa", "price": 2500, "stock": 3,
	})
	require.Equal(t, http.StatusCreated, rec.Code, string(b))
	p := decode[productBody](t, b)
	assert.Equal(t, "monstera-deliciosa", p.Slug)

	// 公開一覧は匿名で見られる
	rec, b = app.do(http.MethodGet, "/store/products?category=indoor", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(b), "monstera-deliciosa")

	// 数量0の明示は400。省略時だけ1になる
	rec, b = app.do(http.MethodPost, "/store/cart/0/add_item", user.Access, map[string]int64{"product": p.ID, "quantity": 0})
	require.Equal(t, http.StatusBadRequest, rec.Code, string(b))

	rec, b = app.do(http.MethodPost, "/store/cart/0/add_item", user.Access, map[string]int64{"product": p.ID, "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code, string(b))

	// 在庫を1に落とすと不足
	rec, b = app.do(http.MethodPut, "/store/products/"+p.Slug+"/stock", admin.Access, map[string]interface{}{"stock": 1, "reason": "damaged"})
	require.Equal(t, http.StatusOK, rec.Code, string(b))

	rec, b = app.do(http.MethodPost, "/store/orders", user.Access, map[string]string{"shipping_address": "1-2-3 Tokyo"})
	require.Equal(t, http.StatusBadRequest, rec.Code, string(b))
	eb := decode[errorBody](t, b)
	require.NotNil(t, eb.ProductID)
	assert.Equal(t, p.ID, *eb.ProductID)

	rec, _ = app.do(http.MethodPut, "/store/products/"+p.Slug+"/stock", admin.Access, map[string]interface{}{"stock": 3, "reason": "restock"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, b = app.do(http.MethodPost, "/store/orders", user.Access, map[string]string{"shipping_address": "1-2-3 Tokyo"})
	require.Equal(t, http.StatusCreated, rec.Code, string(b))
	o := decode[orderBody](t, b)
	assert.Equal(t, "pending", o.Status)
	assert.Equal(t, int64(5000), o.TotalPrice)

	// カートは空
	rec, b = app.do(http.MethodGet, "/store/cart", user.Access, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(0), decode[struct {
		TotalPrice int64 `json:"total_price"`
	}](t, b).TotalPrice)

	// 他人の注文は見えない
	other := app.signup("other@example.com")
	rec, _ = app.do(http.MethodGet, fmt.Sprintf("/store/orders/%d", o.ID), other.Access, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// 管理者がキャンセルすると在庫が戻る
	rec, b = app.do(http.MethodPut, fmt.Sprintf("/admin/orders/%d/status", o.ID), admin.Access, map[string]string{"status": "cancelled"})
	require.Equal(t, http.StatusOK, rec.Code, string(b))

	rec, b = app.do(http.MethodGet, "/store/products/"+p.Slug, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(3), decode[productBody](t, b).Stock)

	rec, _ = app.do(http.MethodPut, fmt.Sprintf("/admin/orders/%d/status", o.ID), admin.Access, map[string]string{"status": "shipped"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = app.do(http.MethodGet, "/admin/orders?status=cancelled", admin.Access, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// 在庫変更2回 + キャンセル1回
	rec, b = app.do(http.MethodGet, "/admin/audit-logs?actor_user_id="+fmt.Sprint(admin.User.ID), admin.Access, nil)
	require.Equal(t, http.StatusOK, rec.Code, string(b))
	assert.Equal(t, int64(3), decode[struct {
		Total int64 `json:"total"`
	}](t, b).Total)

	rec, _ = app.do(http.MethodGet, "/admin/audit-logs?resource_id=abc", admin.Access, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = app.do(http.MethodGet, "/admin/audit-logs", user.Access, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestServer_Checkout_ConcurrentLastUnit(t *testing.T) {
	app := newTestApp(t)
	admin := app.staff("admin@example.com")

	rec, b := app.do(http.MethodPost, "/store/categories", admin.Access, map[string]string{"name": "Cacti"})
	require.Equal(t, http.StatusCreated, rec.Code, string(b))
	cat := decode[struct {
		ID int64 `json:"id"`
	}](t, b)
	rec, b = app.do(http.MethodPost, "/store/products", admin.Access, map[string]interface{}{
		"category_id": cat.ID, "name": "Golden Barrel", "price": 1200, "stock": 1,
	})
	require.Equal(t, http.StatusCreated, rec.Code, string(b))
	p := decode[productBody](t, b)

	buyers := []loginBody{app.signup("x@example.com"), app.signup("y@example.com")}
	for _, u := range buyers {
		rec, b := app.do(http.MethodPost, "/store/cart/0/add_item", u.Access, map[string]int64{"product": p.ID})
		require.Equal(t, http.StatusOK, rec.Code, string(b))
	}

	codes := make([]int, len(buyers))
	var wg sync.WaitGroup
	for i, u := range buyers {
		wg.Add(1)
		go func(i int, access string) {
			defer wg.Done()
			rec, _ := app.do(http.MethodPost, "/store/orders", access, map[string]string{"shipping_address": "somewhere"})
			codes[i] = rec.Code
		}(i, u.Access)
	}
	wg.Wait()

	assert.ElementsMatch(t, []int{http.StatusCreated, http.StatusBadRequest}, codes)

	var stock int64
	require.NoError(t, app.gdb.Model(&model.Product{}).Select("stock").Where("id = ?", p.ID).Scan(&stock).Error)
	assert.Equal(t, int64(0), stock)
}

func TestServer_PlantsAndChat(t *testing.T) {
	app := newTestApp(t)
	user := app.signup("grower@example.com")
	other := app.signup("other@example.com")

	rec, b := app.do(http.MethodPost, "/plants", user.Access, map[string]string{"name": "Fern", "description": "Nephrolepis"})
	require.Equal(t, http.StatusCreated, rec.Code, string(b))
	plant := decode[struct {
		ID int64 `json:"id"`
	}](t, b)

	rec, _ = app.do(http.MethodGet, fmt.Sprintf("/plants/%d", plant.ID), other.Access, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, b = app.do(http.MethodPost, fmt.Sprintf("/plants/%d/add_care_routine", plant.ID), user.Access, map[string]string{
		"task": "watering", "frequency": "weekly",
	})
	assert.Equal(t, http.StatusCreated, rec.Code, string(b))

	// S3未設定の画像アップロードは503
	rec, _ = app.do(http.MethodPost, fmt.Sprintf("/plants/%d/image", plant.ID), user.Access, nil)
	assert.Contains(t, []int{http.StatusBadRequest, http.StatusServiceUnavailable}, rec.Code)

	rec, b = app.do(http.MethodPost, "/chat/conversations", user.Access, map[string]string{})
	require.Equal(t, http.StatusCreated, rec.Code, string(b))
	conv := decode[struct {
		ID int64 `json:"id"`
	}](t, b)

	rec, b = app.do(http.MethodPost, fmt.Sprintf("/chat/conversations/%d/messages", conv.ID), user.Access, map[string]string{"message": "why are leaves yellow?"})
	require.Equal(t, http.StatusCreated, rec.Code, string(b))
	assert.Contains(t, string(b), "re: why are leaves yellow?")

	rec, _ = app.do(http.MethodGet, fmt.Sprintf("/chat/conversations/%d/messages", conv.ID), other.Access, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
