package repository

import (
	"context"

	"github.com/esa-logistica/carga-api/internal/domain/entity"
)

// StagingWriter define el puerto de escritura en las tablas temporales (cabecera_temp, detalle_temp).
// Se usa siempre dentro de una transacción.
type StagingWriter interface {
	// InsertHeaders inserta un bloque de cabeceras en una sola sentencia y devuelve número -> id_cabecera.
	InsertHeaders(ctx context.Context, headers []entity.Cabecera) (map[string]int64, error)
	// InsertLines inserta un bloque de detalles resolviendo id_cabecera por número,
	// restringido a las cabeceras recién insertadas (headerIDs). Devuelve las filas insertadas.
	InsertLines(ctx context.Context, headerIDs []int64, lines []entity.Detalle) (int64, error)
}
