package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/esa-logistica/carga-api/internal/domain/carga"
	"github.com/esa-logistica/carga-api/internal/domain/entity"
	"github.com/esa-logistica/carga-api/internal/domain/repository"
)

var _ repository.ReferenceRepository = (*ReferenceRepo)(nil)

// Los códigos numéricos se comparan sin ceros a la izquierda y los alfanuméricos en minúsculas.
const (
	condCodigoNumerico = "btrim(codigo) ~ '^[0-9]+$'"
	exprClaveNumerica  = "COALESCE(NULLIF(ltrim(btrim(codigo), '0'), ''), '0')"
	exprClaveAlfa      = "lower(btrim(codigo))"
)

// ReferenceRepo implementación de ReferenceRepository sobre la base de referencia (clientes, matitec).
type ReferenceRepo struct {
	q Querier
}

// NewReferenceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewReferenceRepository(q Querier) *ReferenceRepo {
	return &ReferenceRepo{q: q}
}

type filaClave struct {
	Clave string `db:"clave"`
}

type filaProducto struct {
	Producto string `db:"itprod"`
	Compania string `db:"itcia"`
}

func buildNumericClientsQuery(keys []string) (string, []any, error) {
	return psql.Select("DISTINCT " + exprClaveNumerica + " AS clave").
		From(tablaClientes).
		Where(condCodigoNumerico).
		Where(sq.Eq{exprClaveNumerica: keys}).
		ToSql()
}

func buildAlphanumericClientsQuery(keys []string) (string, []any, error) {
	return psql.Select("DISTINCT " + exprClaveAlfa + " AS clave").
		From(tablaClientes).
		Where(sq.Eq{exprClaveAlfa: keys}).
		ToSql()
}

func buildProductsQuery(keys []entity.ProductoClave) (string, []any, error) {
	return psql.Select("itprod", "itcia").
		From(tablaProductos).
		Where(porClaves("itprod", "itcia", keys)).
		ToSql()
}

// FindNumericClients devuelve las claves numéricas existentes.
func (r *ReferenceRepo) FindNumericClients(ctx context.Context, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	query, args, err := buildNumericClientsQuery(keys)
	if err != nil {
		return nil, fmt.Errorf("build numeric clients query: %w", err)
	}
	return r.selectClaves(ctx, query, args)
}

// FindAlphanumericClients devuelve las claves alfanuméricas existentes (en minúsculas).
func (r *ReferenceRepo) FindAlphanumericClients(ctx context.Context, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	query, args, err := buildAlphanumericClientsQuery(keys)
	if err != nil {
		return nil, fmt.Errorf("build alphanumeric clients query: %w", err)
	}
	return r.selectClaves(ctx, query, args)
}

func (r *ReferenceRepo) selectClaves(ctx context.Context, query string, args []any) ([]string, error) {
	var filas []filaClave
	if err := pgxscan.Select(ctx, r.q, &filas, query, args...); err != nil {
		return nil, fmt.Errorf("select clients: %w", err)
	}
	out := make([]string, len(filas))
	for i, f := range filas {
		out[i] = f.Clave
	}
	return out, nil
}

// FindProducts devuelve los pares (producto, compañía) existentes en matitec.
func (r *ReferenceRepo) FindProducts(ctx context.Context, keys []entity.ProductoClave) ([]entity.ProductoClave, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	query, args, err := buildProductsQuery(keys)
	if err != nil {
		return nil, fmt.Errorf("build products query: %w", err)
	}
	var filas []filaProducto
	if err := pgxscan.Select(ctx, r.q, &filas, query, args...); err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	out := make([]entity.ProductoClave, len(filas))
	for i, f := range filas {
		out[i] = entity.ProductoClave{Producto: f.Producto, Compania: f.Compania}
	}
	return out, nil
}

// ClientExists consulta un cliente puntual aplicando la misma normalización que la precarga.
func (r *ReferenceRepo) ClientExists(ctx context.Context, codigo string) (bool, error) {
	clave, numerico := carga.ClaveCliente(codigo)
	sb := psql.Select("1").From(tablaClientes)
	if numerico {
		sb = sb.Where(condCodigoNumerico).Where(sq.Eq{exprClaveNumerica: clave})
	} else {
		sb = sb.Where(sq.Eq{exprClaveAlfa: clave})
	}
	return r.exists(ctx, sb, "client exists")
}

// ProductExists consulta un producto puntual.
func (r *ReferenceRepo) ProductExists(ctx context.Context, key entity.ProductoClave) (bool, error) {
	sb := psql.Select("1").From(tablaProductos).Where(sq.Eq{"itprod": key.Producto, "itcia": key.Compania})
	return r.exists(ctx, sb, "product exists")
}

func (r *ReferenceRepo) exists(ctx context.Context, sb sq.SelectBuilder, op string) (bool, error) {
	query, args, err := sb.Prefix("SELECT EXISTS (").Suffix(")").ToSql()
	if err != nil {
		return false, fmt.Errorf("build %s: %w", op, err)
	}
	var existe bool
	if err := r.q.QueryRow(ctx, query, args...).Scan(&existe); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return existe, nil
}
