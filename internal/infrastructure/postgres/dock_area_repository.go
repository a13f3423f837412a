package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/esa-logistica/carga-api/internal/domain"
	"github.com/esa-logistica/carga-api/internal/domain/repository"
)

var _ repository.DockAreaRepository = (*DockAreaRepo)(nil)

// DockAreaRepo consulta muelle_areas (base de referencia) y actualiza cabecera_temp (staging).
type DockAreaRepo struct {
	ref     Querier
	staging Querier
}

// NewDockAreaRepository construye el adaptador. ref y staging pueden ser el mismo pool.
func NewDockAreaRepository(ref, staging Querier) *DockAreaRepo {
	return &DockAreaRepo{ref: ref, staging: staging}
}

// FindByAddress busca por dirección, subcliente y cliente exactos.
func (r *DockAreaRepo) FindByAddress(ctx context.Context, direccion, subCliente, cliente string) (string, bool, error) {
	return r.buscar(ctx, sq.Eq{
		"direccion":          direccion,
		"sub_cliente_codigo": subCliente,
		"cliente":            cliente,
	})
}

// FindByPostalCode busca por código postal (o localidad, según el criterio recibido).
func (r *DockAreaRepo) FindByPostalCode(ctx context.Context, codigoPostal string) (string, bool, error) {
	return r.buscar(ctx, sq.Eq{"codigo_postal": codigoPostal})
}

func (r *DockAreaRepo) buscar(ctx context.Context, cond sq.Eq) (string, bool, error) {
	query, args, err := psql.Select("area_muelle").
		From(tablaMuelleAreas).
		Where(cond).
		OrderBy("area_muelle").
		Limit(1).
		ToSql()
	if err != nil {
		return "", false, fmt.Errorf("build dock area query: %w", err)
	}
	var area string
	if err := r.ref.QueryRow(ctx, query, args...).Scan(&area); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("find dock area: %w", err)
	}
	return area, true, nil
}

// UpdateHeaderArea reasigna el área de una cabecera en staging.
func (r *DockAreaRepo) UpdateHeaderArea(ctx context.Context, idCabecera int64, area string) error {
	query, args, err := psql.Update(tablaCabeceraTemp).
		Set("area_muelle", area).
		Where(sq.Eq{"id_cabecera": idCabecera}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update dock area: %w", err)
	}
	tag, err := r.staging.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update dock area: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
