package repository

import (
	"context"

	"github.com/esa-logistica/carga-api/internal/domain/entity"
)

// ReferenceRepository define el puerto de datos maestros (clientes y productos).
// Las consultas por lote reciben un bloque ya acotado por el tope de parámetros.
type ReferenceRepository interface {
	// FindNumericClients recibe claves numéricas sin ceros a la izquierda y devuelve las existentes.
	FindNumericClients(ctx context.Context, keys []string) ([]string, error)
	// FindAlphanumericClients recibe claves en minúsculas y devuelve las existentes.
	FindAlphanumericClients(ctx context.Context, keys []string) ([]string, error)
	FindProducts(ctx context.Context, keys []entity.ProductoClave) ([]entity.ProductoClave, error)

	ClientExists(ctx context.Context, codigo string) (bool, error)
	ProductExists(ctx context.Context, key entity.ProductoClave) (bool, error)
}
