package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cabecera representa un comprobante de despacho (una entrega).
// AreaMuelle la asigna el resolvedor de áreas de muelle; inicia vacía.
type Cabecera struct {
	TipoCodigo       string
	Categoria        string
	Sucursal         string
	Numero           string // único dentro del lote
	FechaEmision     time.Time
	FechaEntrega     time.Time
	ClienteCodigo    string
	SubClienteCodigo string
	RazonSocial      string
	DepositoCodigo   string
	LocalidadNombre  string
	CodigoPostal     string
	Direccion        string
	Bultos           *int
	Kilos            *decimal.Decimal
	M3               *decimal.Decimal
	ValorDeclarado   *decimal.Decimal
	ReferenciaA      string
	ReferenciaB      string
	Observaciones    string
	Telefono         string
	Email            string
	AreaMuelle       string
}

// Detalle representa una línea (producto/cantidad) de una cabecera.
type Detalle struct {
	Numero                 string // referencia a Cabecera.Numero
	Linea                  int
	ProductoCodigo         string
	ProductoCompaniaCodigo string
	LoteCodigo             string
	LoteVencimiento        time.Time
	Serie                  string
	Cantidad               int
	DespachoParcial        bool
}

// Clave devuelve el par (producto, compañía) del detalle.
func (d Detalle) Clave() ProductoClave {
	return ProductoClave{Producto: d.ProductoCodigo, Compania: d.ProductoCompaniaCodigo}
}

// Pedido agrupa una cabecera con sus detalles.
type Pedido struct {
	Cabecera Cabecera
	Detalles []Detalle
}

// ProductoClave identifica un producto dentro del sistema de inventario de una compañía.
type ProductoClave struct {
	Producto string
	Compania string
}

// Lote es el conjunto plano de cabeceras y detalles de una carga (formato planilla).
type Lote struct {
	Cabeceras []Cabecera
	Detalles  []Detalle
}

// Agrupar asocia cada detalle a su cabecera por número, respetando el orden de entrada.
// Los detalles cuyo número no corresponde a ninguna cabecera se devuelven como huérfanos.
// Si hay cabeceras con número repetido, los detalles se asocian a la primera.
func (l Lote) Agrupar() (pedidos []Pedido, huerfanos []Detalle) {
	pedidos = make([]Pedido, len(l.Cabeceras))
	indice := make(map[string]int, len(l.Cabeceras))
	for i, cab := range l.Cabeceras {
		pedidos[i] = Pedido{Cabecera: cab}
		if _, ok := indice[cab.Numero]; !ok {
			indice[cab.Numero] = i
		}
	}
	for _, det := range l.Detalles {
		i, ok := indice[det.Numero]
		if !ok {
			huerfanos = append(huerfanos, det)
			continue
		}
		pedidos[i].Detalles = append(pedidos[i].Detalles, det)
	}
	return pedidos, huerfanos
}
