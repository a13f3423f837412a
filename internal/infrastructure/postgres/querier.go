package postgres

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier operaciones comunes a *pgxpool.Pool y pgx.Tx. Los repositorios la reciben para
// poder usarse con el pool o dentro de una transacción.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// psql builder de squirrel con placeholders $n.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Tablas de referencia y de staging.
const (
	tablaClientes     = "clientes"
	tablaProductos    = "matitec"
	tablaStock        = "stock_disponible"
	tablaMuelleAreas  = "muelle_areas"
	tablaCabeceraTemp = "cabecera_temp"
	tablaDetalleTemp  = "detalle_temp"
)
