package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"foodorder/internal/database"
	"foodorder/internal/domain"
	"foodorder/internal/modules/pricing"
	"foodorder/internal/repository"
)

func setupRouter(t *testing.T) (*gin.Engine, *repository.CatalogRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	repo := repository.NewCatalogRepository(db)

	r := gin.New()
	api := r.Group("/api/v1")
	NewHandler(NewService(repo, pricing.NewEngine(repo, repo))).RegisterRoutes(api, api)
	return r, repo
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMenuGroupsByCategory(t *testing.T) {
	r, repo := setupRouter(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateProduct(ctx, &domain.Product{
		Name: "Margherita", Category: domain.CategoryPizza,
		PriceSmall: decimal.NewNullDecimal(decimal.RequireFromString("9.90")),
	}))
	require.NoError(t, repo.CreateProduct(ctx, &domain.Product{
		Name: "Fries", Category: "side",
		PriceLarge: decimal.NewNullDecimal(decimal.RequireFromString("5.50")),
	}))
	require.NoError(t, repo.CreateProduct(ctx, &domain.Product{
		Name: "Hidden", Category: "side", Disabled: true,
		PriceLarge: decimal.NewNullDecimal(decimal.RequireFromString("1.00")),
	}))

	w := do(r, http.MethodGet, "/api/v1/menu", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data MenuResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data.Categories, 2)
	assert.Equal(t, domain.CategoryPizza, body.Data.Categories[0].Name)
	assert.Len(t, body.Data.Categories[1].Products, 1)
	price := body.Data.Categories[0].Products[0].Prices[domain.SizeSmall]
	assert.True(t, price.Equal(decimal.RequireFromString("9.90")))
	assert.NotContains(t, body.Data.Categories[0].Products[0].Prices, domain.SizeJumbo)
	assert.NotNil(t, body.Data.Addons)
}

func TestQuoteMatchesEngine(t *testing.T) {
	r, repo := setupRouter(t)
	ctx := context.Background()

	p := &domain.Product{
		Name: "Margherita", Category: domain.CategoryPizza,
		PriceMedium: decimal.NewNullDecimal(decimal.RequireFromString("12.90")),
	}
	require.NoError(t, repo.CreateProduct(ctx, p))

	w := do(r, http.MethodPost, "/api/v1/menu/quote", QuoteRequest{
		Items:    []pricing.LineItem{{ProductID: &p.ID, Size: domain.SizeMedium, Quantity: 2}},
		IsPickup: true,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data pricing.Breakdown `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Data.Total.Equal(decimal.RequireFromString("25.80")))

	w = do(r, http.MethodPost, "/api/v1/menu/quote", QuoteRequest{
		Items: []pricing.LineItem{{ProductID: &p.ID, Quantity: 1}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetAvailability(t *testing.T) {
	r, repo := setupRouter(t)
	p := &domain.Product{Name: "Margherita", Category: domain.CategoryPizza}
	require.NoError(t, repo.CreateProduct(context.Background(), p))

	w := do(r, http.MethodPatch, "/api/v1/ops/products/999/availability", gin.H{"available": false})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPatch, "/api/v1/ops/products/1/availability", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPatch, "/api/v1/ops/products/1/availability", gin.H{"available": false})
	require.Equal(t, http.StatusOK, w.Code)

	listed, err := repo.ListProducts(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, listed)
}
