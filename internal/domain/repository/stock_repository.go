package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/esa-logistica/carga-api/internal/domain/entity"
)

// StockRepository define el puerto para consultar el stock disponible de productos.
// Lo implementan la tabla local de stock y el servicio externo de stock.
type StockRepository interface {
	// AvailableStock devuelve el stock de las claves que tienen registro; las ausentes no tienen stock registrado.
	AvailableStock(ctx context.Context, keys []entity.ProductoClave) (map[entity.ProductoClave]decimal.Decimal, error)
	// Get devuelve el stock de un producto; Valid=false si no hay registro.
	Get(ctx context.Context, key entity.ProductoClave) (decimal.NullDecimal, error)
}
