package carga

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/esa-logistica/carga-api/internal/domain"
	"github.com/esa-logistica/carga-api/internal/domain/entity"
	"github.com/esa-logistica/carga-api/internal/domain/repository"
)

// AreaMuelleDefault área asignada cuando ningún criterio coincide.
const AreaMuelleDefault = "00001001"

// DockAreaResolver asigna el área de muelle de cada pedido.
// Memoriza el resultado por criterio; crear una instancia por lote.
type DockAreaResolver struct {
	repo        repository.DockAreaRepository
	areaDefault string
	log         zerolog.Logger
	memo        map[entity.CriterioMuelle]string
}

// NewDockAreaResolver construye un resolvedor con memo vacío. repo puede ser nil (siempre default).
func NewDockAreaResolver(repo repository.DockAreaRepository, areaDefault string, log zerolog.Logger) *DockAreaResolver {
	if areaDefault == "" {
		areaDefault = AreaMuelleDefault
	}
	return &DockAreaResolver{
		repo:        repo,
		areaDefault: areaDefault,
		log:         log,
		memo:        make(map[entity.CriterioMuelle]string),
	}
}

// Resolver devuelve el área de muelle para el criterio. Gana la primera coincidencia:
//  1. dirección + subcliente + cliente (solo con subcliente informado)
//  2. código postal, o localidad si no hay CP
//  3. área por defecto
//
// Un error de consulta se registra como advertencia y cuenta como "sin coincidencia".
func (r *DockAreaResolver) Resolver(ctx context.Context, c entity.CriterioMuelle) string {
	if area, ok := r.memo[c]; ok {
		return area
	}
	area := r.resolver(ctx, c)
	r.memo[c] = area
	return area
}

func (r *DockAreaResolver) resolver(ctx context.Context, c entity.CriterioMuelle) string {
	if r.repo == nil {
		r.log.Warn().Err(&domain.ExternalServiceError{Servicio: "areas de muelle", Err: domain.ErrNoConfigurado}).
			Msg("se asigna área por defecto")
		return r.areaDefault
	}

	if strings.TrimSpace(c.SubClienteCodigo) != "" {
		area, ok, err := r.repo.FindByAddress(ctx, c.Direccion, c.SubClienteCodigo, c.ClienteCodigo)
		switch {
		case err != nil:
			r.advertir(err, "dirección", c)
		case ok:
			return area
		}
	}

	if strings.TrimSpace(c.CodigoPostal) != "" {
		area, ok, err := r.repo.FindByPostalCode(ctx, c.CodigoPostal)
		switch {
		case err != nil:
			r.advertir(err, "código postal", c)
		case ok:
			return area
		}
	}

	return r.areaDefault
}

func (r *DockAreaResolver) advertir(err error, paso string, c entity.CriterioMuelle) {
	r.log.Warn().
		Err(&domain.ExternalServiceError{Servicio: "areas de muelle", Err: err}).
		Str("paso", paso).
		Str("cliente", c.ClienteCodigo).
		Str("codigo_postal", c.CodigoPostal).
		Msg("búsqueda de área de muelle fallida, se continúa con el siguiente criterio")
}

// Entradas cantidad de criterios distintos memorizados.
func (r *DockAreaResolver) Entradas() int { return len(r.memo) }

// ActualizarArea reasigna el área de muelle de una cabecera ya cargada en staging.
func (r *DockAreaResolver) ActualizarArea(ctx context.Context, idCabecera int64, area string) error {
	if r.repo == nil {
		return domain.ErrNoConfigurado
	}
	if idCabecera <= 0 || strings.TrimSpace(area) == "" {
		return domain.ErrInvalidInput
	}
	if err := r.repo.UpdateHeaderArea(ctx, idCabecera, area); err != nil {
		return domain.NewInfrastructureError("actualizar área de muelle", err)
	}
	return nil
}
