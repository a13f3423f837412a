package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/esa-logistica/carga-api/internal/domain/entity"
	"github.com/esa-logistica/carga-api/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre la vista de stock disponible (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

type filaStock struct {
	Producto        string              `db:"producto"`
	Compania        string              `db:"cia"`
	StockDisponible decimal.NullDecimal `db:"stock_disponible"`
}

func buildAvailableStockQuery(keys []entity.ProductoClave) (string, []any, error) {
	return psql.Select("producto", "cia", "stock_disponible").
		From(tablaStock).
		Where(porClaves("producto", "cia", keys)).
		ToSql()
}

// AvailableStock obtiene el stock de un bloque de productos. Las claves sin fila (o con NULL) no se devuelven.
func (r *StockRepo) AvailableStock(ctx context.Context, keys []entity.ProductoClave) (map[entity.ProductoClave]decimal.Decimal, error) {
	out := make(map[entity.ProductoClave]decimal.Decimal, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	query, args, err := buildAvailableStockQuery(keys)
	if err != nil {
		return nil, fmt.Errorf("build stock query: %w", err)
	}
	var filas []filaStock
	if err := pgxscan.Select(ctx, r.q, &filas, query, args...); err != nil {
		return nil, fmt.Errorf("select stock: %w", err)
	}
	for _, f := range filas {
		if f.StockDisponible.Valid {
			out[entity.ProductoClave{Producto: f.Producto, Compania: f.Compania}] = f.StockDisponible.Decimal
		}
	}
	return out, nil
}

// Get obtiene el stock disponible de un producto; Valid=false si no hay registro.
func (r *StockRepo) Get(ctx context.Context, key entity.ProductoClave) (decimal.NullDecimal, error) {
	query, args, err := psql.Select("stock_disponible").
		From(tablaStock).
		Where(sq.Eq{"producto": key.Producto, "cia": key.Compania}).
		Limit(1).
		ToSql()
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("build stock query: %w", err)
	}
	var s decimal.NullDecimal
	if err := r.q.QueryRow(ctx, query, args...).Scan(&s); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.NullDecimal{}, nil
		}
		return decimal.NullDecimal{}, fmt.Errorf("get stock: %w", err)
	}
	return s, nil
}
