package saad

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/esa-logistica/carga-api/internal/application/carga"
	"github.com/esa-logistica/carga-api/internal/domain"
	"github.com/esa-logistica/carga-api/internal/domain/entity"
	pkgjwt "github.com/esa-logistica/carga-api/pkg/jwt"
)

var _ carga.OrderForwarder = (*OrderClient)(nil)

// errTokenRechazado el servicio devolvió 401; el siguiente intento hace login de nuevo.
var errTokenRechazado = errors.New("token rechazado por la API de pedidos")

// margen antes del exp en el que el token se considera vencido.
const margenToken = 30 * time.Second

// OrderClientConfig credenciales y política de la API de pedidos.
type OrderClientConfig struct {
	BaseURL string
	Usuario string
	Hash    string
	Timeout time.Duration
	Retry   RetryConfig
}

// OrderClient cliente de la API externa de creación de pedidos (api/saadpedidos/crear).
// Reutiliza el token de login hasta su expiración.
type OrderClient struct {
	*client
	usuario string
	hash    string
	ahora   func() time.Time

	mu      sync.Mutex
	token   string
	venceEn time.Time
}

// NewOrderClient construye el cliente.
func NewOrderClient(cfg OrderClientConfig, log zerolog.Logger) *OrderClient {
	return &OrderClient{
		client:  newClient("api-pedidos", cfg.BaseURL, cfg.Timeout, cfg.Retry, log),
		usuario: cfg.Usuario,
		hash:    cfg.Hash,
		ahora:   time.Now,
	}
}

type loginRequest struct {
	Usuario string `json:"usuario"`
	Hash    string `json:"hash"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type pedidoPayload struct {
	Numero     string        `json:"numero"`
	Fecha      time.Time     `json:"fecha"`
	Cliente    string        `json:"cliente"`
	Direccion  string        `json:"direccion"`
	AreaMuelle string        `json:"areaMuelle"`
	Items      []itemPayload `json:"items"`
}

type itemPayload struct {
	Producto string `json:"producto"`
	Cantidad int    `json:"cantidad"`
	Lote     string `json:"lote"`
}

func nuevoPayload(p entity.Pedido) pedidoPayload {
	items := make([]itemPayload, len(p.Detalles))
	for i, d := range p.Detalles {
		items[i] = itemPayload{Producto: d.ProductoCodigo, Cantidad: d.Cantidad, Lote: d.LoteCodigo}
	}
	return pedidoPayload{
		Numero:     p.Cabecera.Numero,
		Fecha:      p.Cabecera.FechaEmision,
		Cliente:    p.Cabecera.ClienteCodigo,
		Direccion:  p.Cabecera.Direccion,
		AreaMuelle: p.Cabecera.AreaMuelle,
		Items:      items,
	}
}

// Enviar crea el pedido en la API externa. Un 401 invalida el token y se reintenta con uno nuevo.
func (c *OrderClient) Enviar(ctx context.Context, pedido entity.Pedido) error {
	payload := nuevoPayload(pedido)
	err := c.ejecutar(ctx, "crear pedido "+pedido.Cabecera.Numero, func(ctx context.Context) error {
		token, err := c.tokenVigente(ctx)
		if err != nil {
			return err
		}
		err = c.doJSON(ctx, http.MethodPost, "api/saadpedidos/crear", token, payload, nil)
		var se *StatusError
		if errors.As(err, &se) && se.Status == http.StatusUnauthorized {
			c.invalidarToken()
			return errTokenRechazado
		}
		return err
	})
	if err != nil {
		return &domain.ExternalServiceError{Servicio: "api de pedidos", Err: err}
	}
	c.log.Info().Str("numero", pedido.Cabecera.Numero).Msg("pedido enviado a la API externa")
	return nil
}

// tokenVigente devuelve el token en caché o hace login si no hay uno vigente.
func (c *OrderClient) tokenVigente(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && c.ahora().Before(c.venceEn) {
		return c.token, nil
	}

	var resp loginResponse
	if err := c.doJSON(ctx, http.MethodPost, "api/auth/login", "", loginRequest{Usuario: c.usuario, Hash: c.hash}, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", &StatusError{Status: http.StatusUnauthorized, Body: "login sin token"}
	}

	exp, err := pkgjwt.Expiration(resp.Token)
	if err != nil {
		// Token opaco o sin exp: se usa para esta operación y no se guarda.
		c.log.Debug().Err(err).Msg("token de la API externa sin expiración legible")
		c.token, c.venceEn = "", time.Time{}
		return resp.Token, nil
	}
	c.token, c.venceEn = resp.Token, exp.Add(-margenToken)
	return c.token, nil
}

func (c *OrderClient) invalidarToken() {
	c.mu.Lock()
	c.token, c.venceEn = "", time.Time{}
	c.mu.Unlock()
}
