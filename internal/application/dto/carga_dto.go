package dto

import (
	"github.com/shopspring/decimal"

	"github.com/esa-logistica/carga-api/internal/domain/entity"
)

// CabeceraRequest cabecera ya tipada por el parser de planillas/TXT.
type CabeceraRequest struct {
	TipoCodigo       string           `json:"tipo_codigo"`
	Categoria        string           `json:"categoria"`
	Sucursal         string           `json:"sucursal"`
	Numero           string           `json:"numero"`
	FechaEmision     Fecha            `json:"fecha_emision"`
	FechaEntrega     Fecha            `json:"fecha_entrega"`
	ClienteCodigo    string           `json:"cliente_codigo"`
	SubClienteCodigo string           `json:"sub_cliente_codigo,omitempty"`
	RazonSocial      string           `json:"razon_social"`
	DepositoCodigo   string           `json:"deposito_codigo,omitempty"`
	LocalidadNombre  string           `json:"localidad_nombre"`
	CodigoPostal     string           `json:"codigo_postal"`
	Direccion        string           `json:"direccion"`
	Bultos           *int             `json:"bultos,omitempty"`
	Kilos            *decimal.Decimal `json:"kilos,omitempty"`
	M3               *decimal.Decimal `json:"m3,omitempty"`
	ValorDeclarado   *decimal.Decimal `json:"valor_declarado,omitempty"`
	ReferenciaA      string           `json:"referencia_a,omitempty"`
	ReferenciaB      string           `json:"referencia_b,omitempty"`
	Observaciones    string           `json:"observaciones,omitempty"`
	Telefono         string           `json:"telefono,omitempty"`
	Email            string           `json:"email,omitempty"`
}

// DetalleRequest línea de un pedido. Numero se ignora en el formato anidado (TXT).
type DetalleRequest struct {
	Numero                 string `json:"numero,omitempty"`
	Linea                  int    `json:"linea"`
	ProductoCodigo         string `json:"producto_codigo"`
	ProductoCompaniaCodigo string `json:"producto_compania_codigo"`
	LoteCodigo             string `json:"lote_codigo,omitempty"`
	LoteVencimiento        Fecha  `json:"lote_vencimiento"`
	Serie                  string `json:"serie,omitempty"`
	Cantidad               int    `json:"cantidad"`
	DespachoParcial        bool   `json:"despacho_parcial,omitempty"`
}

// LoteRequest formato planilla: cabeceras y detalles en listas separadas.
type LoteRequest struct {
	Cabeceras []CabeceraRequest `json:"cabeceras"`
	Detalles  []DetalleRequest  `json:"detalles"`
}

// PedidoRequest formato TXT: cabecera con sus detalles anidados.
type PedidoRequest struct {
	CabeceraRequest
	Detalles []DetalleRequest `json:"detalles"`
}

// ResultadoCarga resumen de un lote procesado.
type ResultadoCarga struct {
	LoteID     string   `json:"lote_id"`
	Procesados int      `json:"procesados"`
	Insertados int      `json:"insertados"`
	Reenviados int      `json:"reenviados"`
	Errores    []string `json:"errores"`
}

// ToEntity convierte la cabecera al modelo de dominio.
func (c CabeceraRequest) ToEntity() entity.Cabecera {
	return entity.Cabecera{
		TipoCodigo:       c.TipoCodigo,
		Categoria:        c.Categoria,
		Sucursal:         c.Sucursal,
		Numero:           c.Numero,
		FechaEmision:     c.FechaEmision.Time(),
		FechaEntrega:     c.FechaEntrega.Time(),
		ClienteCodigo:    c.ClienteCodigo,
		SubClienteCodigo: c.SubClienteCodigo,
		RazonSocial:      c.RazonSocial,
		DepositoCodigo:   c.DepositoCodigo,
		LocalidadNombre:  c.LocalidadNombre,
		CodigoPostal:     c.CodigoPostal,
		Direccion:        c.Direccion,
		Bultos:           c.Bultos,
		Kilos:            c.Kilos,
		M3:               c.M3,
		ValorDeclarado:   c.ValorDeclarado,
		ReferenciaA:      c.ReferenciaA,
		ReferenciaB:      c.ReferenciaB,
		Observaciones:    c.Observaciones,
		Telefono:         c.Telefono,
		Email:            c.Email,
	}
}

// ToEntity convierte el detalle al modelo de dominio.
func (d DetalleRequest) ToEntity() entity.Detalle {
	return entity.Detalle{
		Numero:                 d.Numero,
		Linea:                  d.Linea,
		ProductoCodigo:         d.ProductoCodigo,
		ProductoCompaniaCodigo: d.ProductoCompaniaCodigo,
		LoteCodigo:             d.LoteCodigo,
		LoteVencimiento:        d.LoteVencimiento.Time(),
		Serie:                  d.Serie,
		Cantidad:               d.Cantidad,
		DespachoParcial:        d.DespachoParcial,
	}
}

// ToEntity convierte el lote plano.
func (l LoteRequest) ToEntity() entity.Lote {
	lote := entity.Lote{
		Cabeceras: make([]entity.Cabecera, len(l.Cabeceras)),
		Detalles:  make([]entity.Detalle, len(l.Detalles)),
	}
	for i, c := range l.Cabeceras {
		lote.Cabeceras[i] = c.ToEntity()
	}
	for i, d := range l.Detalles {
		lote.Detalles[i] = d.ToEntity()
	}
	return lote
}

// ToEntity convierte el pedido anidado; los detalles toman el número de la cabecera.
func (p PedidoRequest) ToEntity() entity.Pedido {
	pedido := entity.Pedido{
		Cabecera: p.CabeceraRequest.ToEntity(),
		Detalles: make([]entity.Detalle, len(p.Detalles)),
	}
	for i, d := range p.Detalles {
		det := d.ToEntity()
		det.Numero = p.Numero
		pedido.Detalles[i] = det
	}
	return pedido
}
