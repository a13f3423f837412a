package repository

import "context"

// DockAreaRepository define el puerto de la tabla de asignación de áreas de muelle.
// ok=false indica que no hay coincidencia.
type DockAreaRepository interface {
	FindByAddress(ctx context.Context, direccion, subCliente, cliente string) (area string, ok bool, err error)
	FindByPostalCode(ctx context.Context, codigoPostal string) (area string, ok bool, err error)
	// UpdateHeaderArea reasigna el área de una cabecera ya cargada en staging.
	UpdateHeaderArea(ctx context.Context, idCabecera int64, area string) error
}
