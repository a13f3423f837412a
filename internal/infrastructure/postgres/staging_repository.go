package postgres

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/esa-logistica/carga-api/internal/domain"
	"github.com/esa-logistica/carga-api/internal/domain/entity"
	"github.com/esa-logistica/carga-api/internal/domain/repository"
)

var _ repository.StagingWriter = (*StagingRepo)(nil)

// columnasCabecera columnas de cabecera_temp en el orden de valoresCabecera (23 parámetros por fila).
var columnasCabecera = []string{
	"tipo_codigo", "categoria", "sucursal", "numero", "fecha_emision", "fecha_entrega",
	"cliente_codigo", "bultos", "kilos", "m3", "sub_cliente_codigo", "razon_social",
	"deposito_codigo", "localidad_nombre", "codigo_postal", "direccion", "valor_declarado",
	"referencia_a", "referencia_b", "observaciones", "telefono", "email", "area_muelle",
}

// columnasDetalle columnas de detalle_temp; numero se reemplaza por id_cabecera al resolver el join.
var columnasDetalle = []string{
	"id_cabecera", "linea", "producto_codigo", "producto_compania_codigo", "lote_codigo",
	"lote_vencimiento", "serie", "cantidad", "despacho_parcial",
}

// filaDetalleValues una fila de la lista VALUES del insert de detalles (9 parámetros).
const filaDetalleValues = "(?::text, ?::integer, ?::text, ?::text, ?::text, ?::date, ?::text, ?::integer, ?::boolean)"

// StagingRepo escribe en cabecera_temp y detalle_temp. Usar siempre con una tx.
type StagingRepo struct {
	q Querier
}

// NewStagingRepository construye el adaptador. Pasar la tx del StagingTxRunner.
func NewStagingRepository(q Querier) *StagingRepo {
	return &StagingRepo{q: q}
}

func valoresCabecera(c entity.Cabecera) []any {
	return []any{
		c.TipoCodigo, c.Categoria, c.Sucursal, c.Numero, c.FechaEmision, c.FechaEntrega,
		c.ClienteCodigo, c.Bultos, c.Kilos, c.M3, nullable(c.SubClienteCodigo), c.RazonSocial,
		nullable(c.DepositoCodigo), c.LocalidadNombre, c.CodigoPostal, c.Direccion, c.ValorDeclarado,
		nullable(c.ReferenciaA), nullable(c.ReferenciaB), nullable(c.Observaciones),
		nullable(c.Telefono), nullable(c.Email), c.AreaMuelle,
	}
}

func valoresDetalle(d entity.Detalle) []any {
	return []any{
		d.Numero, d.Linea, d.ProductoCodigo, d.ProductoCompaniaCodigo, nullable(d.LoteCodigo),
		nullableTime(d.LoteVencimiento), nullable(d.Serie), d.Cantidad, d.DespachoParcial,
	}
}

// buildInsertHeaders arma un INSERT multi-fila con RETURNING id_cabecera, numero.
func buildInsertHeaders(headers []entity.Cabecera) (string, []any, error) {
	ib := psql.Insert(tablaCabeceraTemp).Columns(columnasCabecera...)
	for _, h := range headers {
		ib = ib.Values(valoresCabecera(h)...)
	}
	return ib.Suffix("RETURNING id_cabecera, numero").ToSql()
}

// buildInsertLines arma INSERT ... SELECT uniendo la lista VALUES con cabecera_temp por número,
// restringido a los ids recién insertados (un parámetro extra, el arreglo de ids).
func buildInsertLines(headerIDs []int64, lines []entity.Detalle) (string, []any, error) {
	filas := make([]string, len(lines))
	args := make([]any, 0, len(lines)*len(columnasDetalle))
	for i, d := range lines {
		filas[i] = filaDetalleValues
		args = append(args, valoresDetalle(d)...)
	}
	values := sq.Expr(
		"JOIN (VALUES "+strings.Join(filas, ", ")+") AS v(numero, linea, producto_codigo, producto_compania_codigo, lote_codigo, lote_vencimiento, serie, cantidad, despacho_parcial) ON v.numero = c.numero",
		args...,
	)

	sb := sq.Select(
		"c.id_cabecera", "v.linea", "v.producto_codigo", "v.producto_compania_codigo", "v.lote_codigo",
		"v.lote_vencimiento", "v.serie", "v.cantidad", "v.despacho_parcial",
	).
		From(tablaCabeceraTemp + " AS c").
		JoinClause(values).
		Where(sq.Expr("c.id_cabecera = ANY(?)", headerIDs))

	return psql.Insert(tablaDetalleTemp).Columns(columnasDetalle...).Select(sb).ToSql()
}

type filaInsertada struct {
	ID     int64  `db:"id_cabecera"`
	Numero string `db:"numero"`
}

// InsertHeaders inserta un bloque de cabeceras y devuelve número -> id_cabecera.
func (r *StagingRepo) InsertHeaders(ctx context.Context, headers []entity.Cabecera) (map[string]int64, error) {
	if len(headers) == 0 {
		return map[string]int64{}, nil
	}
	query, args, err := buildInsertHeaders(headers)
	if err != nil {
		return nil, fmt.Errorf("build insert headers: %w", err)
	}
	var filas []filaInsertada
	if err := pgxscan.Select(ctx, r.q, &filas, query, args...); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: cabecera ya cargada en staging: %v", domain.ErrDuplicate, err)
		}
		return nil, fmt.Errorf("insert headers: %w", err)
	}
	ids := make(map[string]int64, len(filas))
	for _, f := range filas {
		ids[f.Numero] = f.ID
	}
	return ids, nil
}

// InsertLines inserta un bloque de detalles y devuelve las filas insertadas.
func (r *StagingRepo) InsertLines(ctx context.Context, headerIDs []int64, lines []entity.Detalle) (int64, error) {
	if len(lines) == 0 {
		return 0, nil
	}
	query, args, err := buildInsertLines(headerIDs, lines)
	if err != nil {
		return 0, fmt.Errorf("build insert lines: %w", err)
	}
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert lines: %w", err)
	}
	return tag.RowsAffected(), nil
}
