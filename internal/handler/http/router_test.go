package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/utafrali/ordercore/internal/auth"
	"github.com/utafrali/ordercore/internal/domain"
	"github.com/utafrali/ordercore/internal/event"
	"github.com/utafrali/ordercore/internal/idempotency"
	"github.com/utafrali/ordercore/internal/repository/memory"
	"github.com/utafrali/ordercore/internal/service"
	"github.com/utafrali/ordercore/pkg/health"
	"github.com/utafrali/ordercore/pkg/httputil"
	"github.com/utafrali/ordercore/pkg/middleware"
)

const (
	mario   = "5b7c1a52-8d8e-4b55-9a53-0d6a7c0f3a01"
	luigi   = "5b7c1a52-8d8e-4b55-9a53-0d6a7c0f3a02"
	boss    = "5b7c1a52-8d8e-4b55-9a53-0d6a7c0f3a03"
	lamp    = "8e1f4c3b-2a6d-4e8f-b1c7-3d9a5e2f6b01"
	missing = "8e1f4c3b-2a6d-4e8f-b1c7-3d9a5e2f6bff"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// --- Test Helpers ---

type testEnv struct {
	router http.Handler
	store  *memory.Store
	jwt    *auth.JWTManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	jwt := auth.NewJWTManager("test-secret", time.Hour)
	reg := prometheus.NewRegistry()

	ctx := context.Background()
	for _, c := range []domain.Client{
		{ID: mario, Email: "mario@example.it", Role: domain.RoleCustomer, Active: true},
		{ID: luigi, Email: "luigi@example.it", Role: domain.RoleCustomer, Active: true},
		{ID: boss, Email: "boss@example.it", Role: domain.RoleAdmin, Active: true},
	} {
		c := c
		require.NoError(t, store.Clients().Create(ctx, &c))
	}
	require.NoError(t, store.Products().Create(ctx, &domain.Product{
		ID: lamp, Name: "Lamp", SKU: "LMP-1", Price: decimal.RequireFromString("30.00"), AvailableQuantity: 10, Active: true,
	}))

	router := NewRouter(RouterDeps{
		Orders:         service.NewOrderService(store, event.Nop{}, service.NewOrderMetrics(reg), quiet),
		Catalog:        service.NewCatalogService(store, quiet),
		Clients:        service.NewClientService(store.Clients(), jwt, bcrypt.MinCost, []string{"boss@example.it"}, quiet),
		Tokens:         jwt.Validator(),
		Health:         health.NewHandler(),
		Metrics:        middleware.NewHTTPMetrics(reg, "order-service"),
		Gatherer:       reg,
		Idempotency:    idempotency.NewMemoryStore(),
		IdempotencyTTL: time.Hour,
		CORS:           middleware.CORSConfig{AllowedOrigins: []string{"*"}},
		Logger:         quiet,
	})
	return &testEnv{router: router, store: store, jwt: jwt}
}

func (e *testEnv) token(t *testing.T, clientID, role string) string {
	t.Helper()
	tok, err := e.jwt.GenerateAccessToken(clientID, clientID+"@example.it", role)
	require.NoError(t, err)
	return tok
}

type call struct {
	method, path, token string
	body                any
	header              map[string]string
}

func (e *testEnv) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range c.header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data  json.RawMessage         `json:"data"`
	Error *httputil.ErrorResponse `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &out))
	return out
}

func orderBody(qty int) map[string]any {
	return map[string]any{
		"items":                []map[string]any{{"product_id": lamp, "quantity": qty}},
		"shipping_address":     "Via Roma 1",
		"shipping_city":        "Milano",
		"shipping_postal_code": "20121",
	}
}

func (e *testEnv) stock(t *testing.T) int {
	t.Helper()
	p, err := e.store.Products().GetByID(context.Background(), lamp)
	require.NoError(t, err)
	return p.AvailableQuantity
}

func (e *testEnv) createOrder(t *testing.T, tok string, qty int) OrderResponse {
	t.Helper()
	rec := e.do(t, call{method: http.MethodPost, path: "/api/v1/orders", token: tok, body: orderBody(qty)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeData[OrderResponse](t, rec)
}

// --- Orders ---

func TestCreateOrder_PricesAndReservesStock(t *testing.T) {
	e := newTestEnv(t)
	tok := e.token(t, mario, domain.RoleCustomer)

	first := e.createOrder(t, tok, 2)
	assert.Equal(t, "60.00", first.Subtotal)
	assert.Equal(t, "0.00", first.ShippingCost)
	assert.Equal(t, "0.00", first.Tax)
	assert.Equal(t, "0.00", first.Discount)
	assert.Equal(t, "60.00", first.Total)
	assert.Equal(t, domain.OrderStatusPending, first.Status)
	assert.Equal(t, domain.DefaultCountry, first.ShippingCountry)
	assert.Regexp(t, `^ORD-\d{14}-[0-9A-F]{8}$`, first.OrderNumber)
	require.Len(t, first.Items, 1)
	assert.Equal(t, "Lamp", first.Items[0].ProductName)
	assert.Equal(t, "30.00", first.Items[0].UnitPrice)
	assert.Equal(t, "60.00", first.Items[0].Subtotal)
	assert.Equal(t, 8, e.stock(t))

	second := e.createOrder(t, tok, 1)
	assert.Equal(t, "30.00", second.Subtotal)
	assert.Equal(t, "5.00", second.ShippingCost)
	assert.Equal(t, "35.00", second.Total)
	assert.Equal(t, 7, e.stock(t))
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, call{method: http.MethodPost, path: "/api/v1/orders", token: e.token(t, mario, domain.RoleCustomer), body: orderBody(11)})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INSUFFICIENT_STOCK", env.Error.Code)
	assert.Equal(t, lamp, env.Error.Details["product_id"])
	assert.EqualValues(t, 10, env.Error.Details["available"])
	assert.EqualValues(t, 11, env.Error.Details["requested"])
	assert.Equal(t, 10, e.stock(t))
}

func TestCreateOrder_DomainErrors(t *testing.T) {
	tests := []struct {
		name   string
		items  []map[string]any
		status int
		code   string
	}{
		{"empty cart", []map[string]any{}, http.StatusBadRequest, "EMPTY_CART"},
		{"unknown product", []map[string]any{{"product_id": missing, "quantity": 1}}, http.StatusNotFound, "PRODUCT_NOT_FOUND"},
		{"zero quantity", []map[string]any{{"product_id": lamp, "quantity": 0}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad product id", []map[string]any{{"product_id": "lamp", "quantity": 1}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"quantity over line limit", []map[string]any{{"product_id": lamp, "quantity": 10001}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"quantity over int32", []map[string]any{{"product_id": lamp, "quantity": int64(2147483648)}}, http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			body := orderBody(1)
			body["items"] = tt.items

			rec := e.do(t, call{method: http.MethodPost, path: "/api/v1/orders", token: e.token(t, mario, domain.RoleCustomer), body: body})

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeEnvelope(t, rec).Error.Code)
			assert.Equal(t, 10, e.stock(t))
		})
	}
}

func TestCreateOrder_UnknownClient(t *testing.T) {
	e := newTestEnv(t)
	ghost := "5b7c1a52-8d8e-4b55-9a53-0d6a7c0f3aff"

	rec := e.do(t, call{method: http.MethodPost, path: "/api/v1/orders", token: e.token(t, ghost, domain.RoleCustomer), body: orderBody(1)})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CLIENT_NOT_FOUND", decodeEnvelope(t, rec).Error.Code)
}

func TestCreateOrder_ShippingValidation(t *testing.T) {
	e := newTestEnv(t)
	body := orderBody(1)
	body["shipping_postal_code"] = "123"
	body["shipping_city"] = "M"

	rec := e.do(t, call{method: http.MethodPost, path: "/api/v1/orders", token: e.token(t, mario, domain.RoleCustomer), body: body})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "shipping_postal_code")
	assert.Contains(t, env.Error.Fields, "shipping_city")
}

func TestCreateOrder_RequiresAuth(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, call{method: http.MethodPost, path: "/api/v1/orders", body: orderBody(1)})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, call{method: http.MethodPost, path: "/api/v1/orders", token: "garbage", body: orderBody(1)})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 10, e.stock(t))
}

func TestCreateOrder_RequiresJSON(t *testing.T) {
	e := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Authorization", "Bearer "+e.token(t, mario, domain.RoleCustomer))
	rec := httptest.NewRecorder()

	e.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestCreateOrder_IdempotencyKeyReplays(t *testing.T) {
	e := newTestEnv(t)
	tok := e.token(t, mario, domain.RoleCustomer)
	c := call{method: http.MethodPost, path: "/api/v1/orders", token: tok, body: orderBody(2), header: map[string]string{idempotency.HeaderKey: "checkout-1"}}

	first := e.do(t, c)
	second := e.do(t, c)

	require.Equal(t, http.StatusCreated, first.Code)
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(idempotency.HeaderReplayed))
	assert.Equal(t, decodeData[OrderResponse](t, first).ID, decodeData[OrderResponse](t, second).ID)
	assert.Equal(t, 8, e.stock(t))
}

func TestGetOrder_OwnershipAndAdmin(t *testing.T) {
	e := newTestEnv(t)
	o := e.createOrder(t, e.token(t, mario, domain.RoleCustomer), 1)
	path := "/api/v1/orders/" + o.ID

	rec := e.do(t, call{method: http.MethodGet, path: path, token: e.token(t, mario, domain.RoleCustomer)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, o.OrderNumber, decodeData[OrderResponse](t, rec).OrderNumber)

	rec = e.do(t, call{method: http.MethodGet, path: path, token: e.token(t, luigi, domain.RoleCustomer)})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, call{method: http.MethodGet, path: path, token: e.token(t, boss, domain.RoleAdmin)})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetOrder_NotFoundAndBadID(t *testing.T) {
	e := newTestEnv(t)
	tok := e.token(t, mario, domain.RoleCustomer)

	rec := e.do(t, call{method: http.MethodGet, path: "/api/v1/orders/" + missing, token: tok})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeEnvelope(t, rec).Error.Code)

	rec = e.do(t, call{method: http.MethodGet, path: "/api/v1/orders/not-a-uuid", token: tok})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListOrders_OnlyOwnOrders(t *testing.T) {
	e := newTestEnv(t)
	e.createOrder(t, e.token(t, mario, domain.RoleCustomer), 1)
	e.createOrder(t, e.token(t, mario, domain.RoleCustomer), 2)
	e.createOrder(t, e.token(t, luigi, domain.RoleCustomer), 1)

	rec := e.do(t, call{method: http.MethodGet, path: "/api/v1/orders?per_page=10", token: e.token(t, mario, domain.RoleCustomer)})
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Data       []OrderSummaryResponse `json:"data"`
		TotalCount int                    `json:"total_count"`
		PerPage    int                    `json:"per_page"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 2, page.TotalCount)
	assert.Equal(t, 10, page.PerPage)
	require.Len(t, page.Data, 2)
	for _, o := range page.Data {
		assert.Equal(t, 1, o.ItemsCount)
		assert.Contains(t, []string{"35.00", "60.00"}, o.Total)
	}
	assert.False(t, page.Data[0].CreatedAt.Before(page.Data[1].CreatedAt))

	rec = e.do(t, call{method: http.MethodGet, path: "/api/v1/orders", token: e.token(t, boss, domain.RoleAdmin)})
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 3, page.TotalCount)
}

func TestUpdateOrderStatus_PaidTwiceKeepsPaidAt(t *testing.T) {
	e := newTestEnv(t)
	tok := e.token(t, boss, domain.RoleAdmin)
	o := e.createOrder(t, e.token(t, mario, domain.RoleCustomer), 1)
	path := "/api/v1/orders/" + o.ID + "/status"

	rec := e.do(t, call{method: http.MethodPatch, path: path, token: tok, body: map[string]string{"status": "paid", "payment_reference": "pi_123"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	paid := decodeData[OrderResponse](t, rec)
	require.NotNil(t, paid.PaidAt)
	assert.True(t, paid.Paid)
	assert.Equal(t, "pi_123", paid.PaymentReference)

	rec = e.do(t, call{method: http.MethodPatch, path: path, token: tok, body: map[string]string{"status": "paid"}})
	require.Equal(t, http.StatusOK, rec.Code)
	again := decodeData[OrderResponse](t, rec)
	require.NotNil(t, again.PaidAt)
	assert.True(t, paid.PaidAt.Equal(*again.PaidAt))

	rec = e.do(t, call{method: http.MethodPatch, path: path, token: tok, body: map[string]string{"status": "shipped"}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, decodeData[OrderResponse](t, rec).ShippedAt)
}

func TestUpdateOrderStatus_RejectsUnknownStatus(t *testing.T) {
	e := newTestEnv(t)
	o := e.createOrder(t, e.token(t, mario, domain.RoleCustomer), 1)

	rec := e.do(t, call{method: http.MethodPatch, path: "/api/v1/orders/" + o.ID + "/status", token: e.token(t, mario, domain.RoleCustomer), body: map[string]string{"status": "lost"}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeEnvelope(t, rec).Error.Code)
}

func TestUpdateOrderStatus_NotFound(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, call{method: http.MethodPatch, path: "/api/v1/orders/" + missing + "/status", token: e.token(t, boss, domain.RoleAdmin), body: map[string]string{"status": "paid"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelOrder_RestoresStock(t *testing.T) {
	e := newTestEnv(t)
	tok := e.token(t, mario, domain.RoleCustomer)
	o := e.createOrder(t, tok, 4)
	require.Equal(t, 6, e.stock(t))

	rec := e.do(t, call{method: http.MethodDelete, path: "/api/v1/orders/" + o.ID, token: tok})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, 10, e.stock(t))

	rec = e.do(t, call{method: http.MethodDelete, path: "/api/v1/orders/" + o.ID, token: tok})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelOrder_OnlyPending(t *testing.T) {
	e := newTestEnv(t)
	tok := e.token(t, mario, domain.RoleCustomer)
	admin := e.token(t, boss, domain.RoleAdmin)
	o := e.createOrder(t, tok, 2)
	statusPath := "/api/v1/orders/" + o.ID + "/status"

	rec := e.do(t, call{method: http.MethodPatch, path: statusPath, token: admin, body: map[string]string{"status": "paid"}})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(t, call{method: http.MethodPatch, path: statusPath, token: admin, body: map[string]string{"status": "shipped"}})
	require.Equal(t, http.StatusOK, rec.Code)
	before := decodeData[OrderResponse](t, rec)
	require.NotNil(t, before.PaidAt)
	require.NotNil(t, before.ShippedAt)

	rec = e.do(t, call{method: http.MethodDelete, path: "/api/v1/orders/" + o.ID, token: tok})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_CANCELLATION", decodeEnvelope(t, rec).Error.Code)
	assert.Equal(t, 8, e.stock(t))

	rec = e.do(t, call{method: http.MethodGet, path: "/api/v1/orders/" + o.ID, token: tok})
	require.Equal(t, http.StatusOK, rec.Code)
	after := decodeData[OrderResponse](t, rec)
	assert.Equal(t, domain.OrderStatusShipped, after.Status)
	assert.True(t, after.Paid)
	require.NotNil(t, after.PaidAt)
	require.NotNil(t, after.ShippedAt)
	assert.True(t, before.PaidAt.Equal(*after.PaidAt))
	assert.True(t, before.ShippedAt.Equal(*after.ShippedAt))
	assert.Nil(t, after.DeliveredAt)
	assert.True(t, before.UpdatedAt.Equal(after.UpdatedAt))
}

func TestCancelOrder_OtherClientSeesNotFound(t *testing.T) {
	e := newTestEnv(t)
	o := e.createOrder(t, e.token(t, mario, domain.RoleCustomer), 1)

	rec := e.do(t, call{method: http.MethodDelete, path: "/api/v1/orders/" + o.ID, token: e.token(t, luigi, domain.RoleCustomer)})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 9, e.stock(t))
}

// --- Products ---

func TestProducts_AdminOnlyWrites(t *testing.T) {
	e := newTestEnv(t)
	body := map[string]any{"name": "Desk", "sku": "DSK-1", "price": "149.90", "available_quantity": 3}

	rec := e.do(t, call{method: http.MethodPost, path: "/api/v1/products", token: e.token(t, mario, domain.RoleCustomer), body: body})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, call{method: http.MethodPost, path: "/api/v1/products", token: e.token(t, boss, domain.RoleAdmin), body: body})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	p := decodeData[ProductResponse](t, rec)
	assert.Equal(t, "149.90", p.Price)
	assert.True(t, p.Active)

	rec = e.do(t, call{method: http.MethodDelete, path: "/api/v1/products/" + p.ID, token: e.token(t, boss, domain.RoleAdmin)})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(t, call{method: http.MethodGet, path: "/api/v1/products"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=30", rec.Header().Get("Cache-Control"))
	var page struct {
		Data []ProductResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Data, 1)
	assert.Equal(t, lamp, page.Data[0].ID)
}

func TestProducts_UpdatePrice(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, call{method: http.MethodPut, path: "/api/v1/products/" + lamp, token: e.token(t, boss, domain.RoleAdmin), body: map[string]any{"price": "25.5"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "25.50", decodeData[ProductResponse](t, rec).Price)

	rec = e.do(t, call{method: http.MethodPut, path: "/api/v1/products/" + lamp, token: e.token(t, boss, domain.RoleAdmin), body: map[string]any{"price": "-1"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- Clients ---

func TestClients_RegisterLoginMe(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, call{method: http.MethodPost, path: "/api/v1/clients/register", body: map[string]string{
		"email": "Peach@Example.it", "password": "castle-123", "first_name": "Peach", "last_name": "Toadstool",
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "castle-123")
	assert.NotContains(t, rec.Body.String(), "password")

	rec = e.do(t, call{method: http.MethodPost, path: "/api/v1/clients/register", body: map[string]string{
		"email": "peach@example.it", "password": "castle-123", "first_name": "Peach", "last_name": "Toadstool",
	}})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = e.do(t, call{method: http.MethodPost, path: "/api/v1/clients/login", body: map[string]string{"email": "peach@example.it", "password": "wrong-pass"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = e.do(t, call{method: http.MethodPost, path: "/api/v1/clients/login", body: map[string]string{"email": "peach@example.it", "password": "castle-123"}})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decodeData[service.LoginResult](t, rec)
	assert.Equal(t, "bearer", login.TokenType)
	assert.Equal(t, 3600, login.ExpiresIn)

	rec = e.do(t, call{method: http.MethodGet, path: "/api/v1/clients/me", token: login.AccessToken})
	require.Equal(t, http.StatusOK, rec.Code)
	me := decodeData[domain.Client](t, rec)
	assert.Equal(t, "peach@example.it", me.Email)
	assert.Equal(t, domain.DefaultCountry, me.Country)

	rec = e.do(t, call{method: http.MethodPost, path: "/api/v1/orders", token: login.AccessToken, body: orderBody(1)})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestClients_DeactivatedCannotOrderOrLogin(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, call{method: http.MethodPost, path: "/api/v1/clients/register", body: map[string]string{
		"email": "daisy@example.it", "password": "sarasa-123", "first_name": "Daisy", "last_name": "Sarasa",
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	creds := map[string]string{"email": "daisy@example.it", "password": "sarasa-123"}
	rec = e.do(t, call{method: http.MethodPost, path: "/api/v1/clients/login", body: creds})
	require.Equal(t, http.StatusOK, rec.Code)
	tok := decodeData[service.LoginResult](t, rec).AccessToken

	rec = e.do(t, call{method: http.MethodDelete, path: "/api/v1/clients/me", token: tok})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(t, call{method: http.MethodPost, path: "/api/v1/orders", token: tok, body: orderBody(1)})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "CLIENT_NOT_FOUND", decodeEnvelope(t, rec).Error.Code)
	assert.Equal(t, 10, e.stock(t))

	rec = e.do(t, call{method: http.MethodPost, path: "/api/v1/clients/login", body: creds})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClients_AdminDirectory(t *testing.T) {
	e := newTestEnv(t)
	admin := e.token(t, boss, domain.RoleAdmin)

	rec := e.do(t, call{method: http.MethodGet, path: "/api/v1/clients", token: e.token(t, mario, domain.RoleCustomer)})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = e.do(t, call{method: http.MethodGet, path: "/api/v1/clients/" + luigi, token: admin})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "luigi@example.it", decodeData[domain.Client](t, rec).Email)

	rec = e.do(t, call{method: http.MethodGet, path: "/api/v1/clients/email/Mario@Example.it", token: admin})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, mario, decodeData[domain.Client](t, rec).ID)

	rec = e.do(t, call{method: http.MethodGet, path: "/api/v1/clients/email/nobody@example.it", token: admin})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, call{method: http.MethodDelete, path: "/api/v1/clients/" + luigi, token: admin})
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = e.do(t, call{method: http.MethodDelete, path: "/api/v1/clients/" + missing, token: admin})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	type clientPage struct {
		Data       []domain.Client `json:"data"`
		TotalCount int             `json:"total_count"`
	}
	rec = e.do(t, call{method: http.MethodGet, path: "/api/v1/clients", token: admin})
	require.Equal(t, http.StatusOK, rec.Code)
	var active clientPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &active))
	assert.Equal(t, 2, active.TotalCount)
	require.Len(t, active.Data, 2)
	assert.Equal(t, "boss@example.it", active.Data[0].Email)
	assert.Equal(t, "mario@example.it", active.Data[1].Email)

	rec = e.do(t, call{method: http.MethodGet, path: "/api/v1/clients?active_only=false", token: admin})
	require.Equal(t, http.StatusOK, rec.Code)
	var all clientPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Equal(t, 3, all.TotalCount)

	rec = e.do(t, call{method: http.MethodGet, path: "/api/v1/clients?active_only=maybe", token: admin})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- Operational endpoints ---

func TestHealthAndMetrics(t *testing.T) {
	e := newTestEnv(t)

	assert.Equal(t, http.StatusOK, e.do(t, call{method: http.MethodGet, path: "/health/live"}).Code)
	assert.Equal(t, http.StatusOK, e.do(t, call{method: http.MethodGet, path: "/health/ready"}).Code)

	rec := e.do(t, call{method: http.MethodGet, path: "/metrics"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_in_flight")
}

func TestPprof_RefusedWithoutAllowlist(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, call{method: http.MethodGet, path: "/debug/pprof/"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCorrelationIDEchoed(t *testing.T) {
	e := newTestEnv(t)

	rec := e.do(t, call{method: http.MethodGet, path: "/health/live", header: map[string]string{"X-Correlation-ID": "corr-7"}})
	assert.Equal(t, "corr-7", rec.Header().Get("X-Correlation-ID"))
}
