package postgres

import (
	"errors"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/esa-logistica/carga-api/internal/domain/entity"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return strings.Contains(err.Error(), "23505")
}

// nullable convierte "" en NULL.
func nullable(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// nullableTime convierte la fecha cero en NULL.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// porClaves arma (colProducto = ? AND colCompania = ?) OR ... con dos parámetros por clave.
func porClaves(colProducto, colCompania string, keys []entity.ProductoClave) sq.Or {
	or := make(sq.Or, 0, len(keys))
	for _, k := range keys {
		or = append(or, sq.And{sq.Eq{colProducto: k.Producto}, sq.Eq{colCompania: k.Compania}})
	}
	return or
}
