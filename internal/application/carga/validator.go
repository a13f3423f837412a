package carga

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/esa-logistica/carga-api/internal/domain"
	"github.com/esa-logistica/carga-api/internal/domain/carga"
	"github.com/esa-logistica/carga-api/internal/domain/entity"
)

// ValidarCabecera aplica las reglas de negocio de una cabecera.
// Devuelve *domain.ValidationError si una regla no se cumple y *domain.InfrastructureError si falla la consulta.
func ValidarCabecera(ctx context.Context, cab entity.Cabecera, lookup ReferenceLookup) error {
	reg := carga.RegistroCabecera(cab.Numero)

	obligatorios := []struct{ valor, mensaje string }{
		{cab.Numero, "Número de cabecera es obligatorio"},
		{cab.TipoCodigo, "Tipo de comprobante es obligatorio"},
		{cab.Categoria, "Categoría es obligatoria"},
		{cab.Sucursal, "Sucursal es obligatoria"},
		{cab.ClienteCodigo, "Código de cliente es obligatorio"},
		{cab.RazonSocial, "Razón social es obligatoria"},
	}
	for _, o := range obligatorios {
		if strings.TrimSpace(o.valor) == "" {
			return domain.NewValidationError(reg, domain.ErrCampoObligatorio, "%s", o.mensaje)
		}
	}
	if cab.FechaEmision.IsZero() {
		return domain.NewValidationError(reg, domain.ErrCampoObligatorio, "Fecha de emisión es obligatoria")
	}
	if cab.FechaEntrega.IsZero() {
		return domain.NewValidationError(reg, domain.ErrCampoObligatorio, "Fecha de entrega es obligatoria")
	}
	if cab.FechaEntrega.Before(cab.FechaEmision) {
		return domain.NewValidationError(reg, domain.ErrFechasInvalidas, "La fecha de entrega no puede ser anterior a la fecha de emisión")
	}

	existe, err := lookup.ClientExists(ctx, cab.ClienteCodigo)
	if err != nil {
		return err
	}
	if !existe {
		return domain.NewValidationError(reg, domain.ErrClienteInexistente, "Cliente %s no existe", cab.ClienteCodigo)
	}

	return carga.ValidarTipo(cab)
}

// ValidarDetalle aplica las reglas de negocio de un detalle. hoy es la referencia para el vencimiento del lote.
// El stock solo se controla para productos de la compañía con stock local.
func ValidarDetalle(ctx context.Context, det entity.Detalle, lookup ReferenceLookup, hoy time.Time) error {
	reg := carga.RegistroDetalle(det.Numero, det.Linea)

	if strings.TrimSpace(det.ProductoCodigo) == "" {
		return domain.NewValidationError(reg, domain.ErrCampoObligatorio, "Código de producto es obligatorio")
	}
	if strings.TrimSpace(det.ProductoCompaniaCodigo) == "" {
		return domain.NewValidationError(reg, domain.ErrCampoObligatorio, "Código de compañía es obligatorio")
	}
	if det.Cantidad <= 0 {
		return domain.NewValidationError(reg, domain.ErrInvalidInput, "Cantidad debe ser mayor a cero")
	}
	if strings.TrimSpace(det.LoteCodigo) != "" && !det.LoteVencimiento.After(hoy) {
		return domain.NewValidationError(reg, domain.ErrLoteVencido, "Lote %s vencido o sin fecha de vencimiento", det.LoteCodigo)
	}

	key := det.Clave()
	existe, err := lookup.ProductExists(ctx, key)
	if err != nil {
		return err
	}
	if !existe {
		return domain.NewValidationError(reg, domain.ErrProductoInexistente,
			"Producto %s no existe para compañía %s", key.Producto, key.Compania)
	}

	if key.Compania != carga.CompaniaStockLocal {
		return nil
	}
	stock, err := lookup.AvailableStock(ctx, key)
	if err != nil {
		return err
	}
	if !stock.Valid {
		return domain.NewValidationError(reg, domain.ErrSinStock, "Producto %s sin stock registrado", key.Producto)
	}
	solicitado := decimal.NewFromInt(int64(det.Cantidad))
	if stock.Decimal.LessThan(solicitado) {
		return domain.NewValidationError(reg, domain.ErrStockInsuficiente,
			"Stock insuficiente para %s: Disponible %s, Solicitado %d", key.Producto, stock.Decimal.String(), det.Cantidad)
	}
	return nil
}
