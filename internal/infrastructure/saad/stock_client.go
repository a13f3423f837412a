package saad

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/esa-logistica/carga-api/internal/domain/entity"
	"github.com/esa-logistica/carga-api/internal/domain/repository"
)

var _ repository.StockRepository = (*StockClient)(nil)

// StockClient consulta el servicio externo de stock, una llamada por producto.
type StockClient struct {
	*client
}

// NewStockClient construye el cliente del servicio de stock.
func NewStockClient(baseURL string, timeout time.Duration, retry RetryConfig, log zerolog.Logger) *StockClient {
	return &StockClient{client: newClient("servicio-stock", baseURL, timeout, retry, log)}
}

type stockResponse struct {
	Stock decimal.Decimal `json:"stock"`
}

// Get devuelve el stock del producto. Un 404 es "sin stock registrado" (Valid=false).
func (c *StockClient) Get(ctx context.Context, key entity.ProductoClave) (decimal.NullDecimal, error) {
	var resp stockResponse
	err := c.ejecutar(ctx, "stock "+key.Producto, func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodGet, "api/stock/"+url.PathEscape(key.Producto), "", nil, &resp)
	})
	var se *StatusError
	if errors.As(err, &se) && se.Status == http.StatusNotFound {
		return decimal.NullDecimal{}, nil
	}
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NullDecimal{Decimal: resp.Stock, Valid: true}, nil
}

// AvailableStock consulta cada clave por separado; las claves sin registro no aparecen en el mapa.
func (c *StockClient) AvailableStock(ctx context.Context, keys []entity.ProductoClave) (map[entity.ProductoClave]decimal.Decimal, error) {
	out := make(map[entity.ProductoClave]decimal.Decimal, len(keys))
	for _, k := range keys {
		st, err := c.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if st.Valid {
			out[k] = st.Decimal
		}
	}
	return out, nil
}
