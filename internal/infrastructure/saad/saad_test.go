package saad_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esa-logistica/carga-api/internal/domain"
	"github.com/esa-logistica/carga-api/internal/domain/entity"
	"github.com/esa-logistica/carga-api/internal/infrastructure/saad"
	pkgjwt "github.com/esa-logistica/carga-api/pkg/jwt"
)

func retryRapido(intentos int) saad.RetryConfig {
	return saad.RetryConfig{MaxAttempts: intentos, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}
}

func pedidoDePrueba() entity.Pedido {
	return entity.Pedido{
		Cabecera: entity.Cabecera{Numero: "1001", ClienteCodigo: "123", Direccion: "Calle 1", AreaMuelle: "00002001"},
		Detalles: []entity.Detalle{{Numero: "1001", Linea: 1, ProductoCodigo: "P1", Cantidad: 4, LoteCodigo: "L1"}},
	}
}

// apiPedidos simula la API externa: login y creación de pedidos.
type apiPedidos struct {
	logins    atomic.Int32
	creados   atomic.Int32
	rechazar  atomic.Int32 // cantidad de 401 a devolver en crear
	fallar5xx atomic.Int32 // cantidad de 500 a devolver en crear
	ultimo    atomic.Value
}

func (a *apiPedidos) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["usuario"] != "carga" || body["hash"] != "h4sh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		a.logins.Add(1)
		token, err := pkgjwt.Generate("secreto", "carga", "saad", time.Hour)
		require.NoError(t, err)
		_ = json.NewEncoder(w).Encode(map[string]string{"token": token})
	})
	mux.HandleFunc("/api/saadpedidos/crear", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if a.rechazar.Load() > 0 {
			a.rechazar.Add(-1)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if a.fallar5xx.Load() > 0 {
			a.fallar5xx.Add(-1)
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		a.ultimo.Store(body)
		a.creados.Add(1)
		w.WriteHeader(http.StatusCreated)
	})
	return mux
}

func nuevoOrderClient(url string, intentos int) *saad.OrderClient {
	return saad.NewOrderClient(saad.OrderClientConfig{
		BaseURL: url,
		Usuario: "carga",
		Hash:    "h4sh",
		Timeout: 2 * time.Second,
		Retry:   retryRapido(intentos),
	}, zerolog.Nop())
}

// ──────────────────────────────────────────────────────────────────────────────
// OrderClient
// ──────────────────────────────────────────────────────────────────────────────

func TestOrderClient_Enviar_ReutilizaToken(t *testing.T) {
	api := &apiPedidos{}
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c := nuevoOrderClient(srv.URL, 1)
	ctx := context.Background()
	require.NoError(t, c.Enviar(ctx, pedidoDePrueba()))
	require.NoError(t, c.Enviar(ctx, pedidoDePrueba()))

	assert.Equal(t, int32(1), api.logins.Load())
	assert.Equal(t, int32(2), api.creados.Load())

	body := api.ultimo.Load().(map[string]any)
	assert.Equal(t, "1001", body["numero"])
	assert.Equal(t, "00002001", body["areaMuelle"])
	items := body["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "P1", items[0].(map[string]any)["producto"])
	assert.EqualValues(t, 4, items[0].(map[string]any)["cantidad"])
}

func TestOrderClient_Enviar_401RenuevaToken(t *testing.T) {
	api := &apiPedidos{}
	api.rechazar.Store(1)
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c := nuevoOrderClient(srv.URL, 3)
	require.NoError(t, c.Enviar(context.Background(), pedidoDePrueba()))
	assert.Equal(t, int32(2), api.logins.Load())
	assert.Equal(t, int32(1), api.creados.Load())
}

func TestOrderClient_Enviar_ReintentaErrorServidor(t *testing.T) {
	api := &apiPedidos{}
	api.fallar5xx.Store(2)
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c := nuevoOrderClient(srv.URL, 3)
	require.NoError(t, c.Enviar(context.Background(), pedidoDePrueba()))
	assert.Equal(t, int32(1), api.creados.Load())
}

func TestOrderClient_Enviar_AgotaReintentos(t *testing.T) {
	api := &apiPedidos{}
	api.fallar5xx.Store(10)
	srv := httptest.NewServer(api.handler(t))
	defer srv.Close()

	c := nuevoOrderClient(srv.URL, 2)
	err := c.Enviar(context.Background(), pedidoDePrueba())
	require.Error(t, err)
	var ext *domain.ExternalServiceError
	require.ErrorAs(t, err, &ext)
	var se *saad.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Status)
	assert.Equal(t, int32(0), api.creados.Load())
}

func TestOrderClient_Enviar_CredencialesInvalidasNoReintenta(t *testing.T) {
	var logins atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logins.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := nuevoOrderClient(srv.URL, 3)
	err := c.Enviar(context.Background(), pedidoDePrueba())
	require.Error(t, err)
	assert.Equal(t, int32(1), logins.Load())
}

// ──────────────────────────────────────────────────────────────────────────────
// StockClient
// ──────────────────────────────────────────────────────────────────────────────

func servicioStock(t *testing.T, stock map[string]string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/stock/{producto}", func(w http.ResponseWriter, r *http.Request) {
		v, ok := stock[r.PathValue("producto")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"stock": ` + v + `}`))
	})
	return httptest.NewServer(mux)
}

func TestStockClient_Get(t *testing.T) {
	srv := servicioStock(t, map[string]string{"P1": "12.5"})
	defer srv.Close()
	c := saad.NewStockClient(srv.URL, time.Second, retryRapido(1), zerolog.Nop())

	st, err := c.Get(context.Background(), entity.ProductoClave{Producto: "P1", Compania: "05"})
	require.NoError(t, err)
	require.True(t, st.Valid)
	assert.True(t, decimal.RequireFromString("12.5").Equal(st.Decimal))

	st, err = c.Get(context.Background(), entity.ProductoClave{Producto: "P9", Compania: "05"})
	require.NoError(t, err)
	assert.False(t, st.Valid)
}

func TestStockClient_AvailableStock_OmiteSinRegistro(t *testing.T) {
	srv := servicioStock(t, map[string]string{"P1": "3", "P2": "0"})
	defer srv.Close()
	c := saad.NewStockClient(srv.URL, time.Second, retryRapido(1), zerolog.Nop())

	keys := []entity.ProductoClave{{Producto: "P1", Compania: "05"}, {Producto: "P2", Compania: "05"}, {Producto: "P3", Compania: "05"}}
	got, err := c.AvailableStock(context.Background(), keys)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, decimal.NewFromInt(3).Equal(got[keys[0]]))
	assert.True(t, got[keys[1]].IsZero())
	_, ok := got[keys[2]]
	assert.False(t, ok)
}

func TestStockClient_ErrorServidor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()
	c := saad.NewStockClient(srv.URL, time.Second, retryRapido(2), zerolog.Nop())

	_, err := c.Get(context.Background(), entity.ProductoClave{Producto: "P1", Compania: "05"})
	var se *saad.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadGateway, se.Status)
}
