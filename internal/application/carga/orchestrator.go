package carga

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/esa-logistica/carga-api/internal/application/dto"
	"github.com/esa-logistica/carga-api/internal/domain"
	"github.com/esa-logistica/carga-api/internal/domain/carga"
	"github.com/esa-logistica/carga-api/internal/domain/entity"
	"github.com/esa-logistica/carga-api/internal/domain/repository"
)

// Estado etapa del procesamiento de un lote. No hay vuelta atrás entre etapas.
type Estado string

const (
	EstadoInicio        Estado = "inicio"
	EstadoCacheCaliente Estado = "cache_caliente"
	EstadoValidando     Estado = "validando"
	EstadoResolviendo   Estado = "resolviendo"
	EstadoPersistiendo  Estado = "persistiendo"
	EstadoTerminado     Estado = "terminado"
	EstadoFallido       Estado = "fallido"
)

// Config parámetros del orquestador.
type Config struct {
	TopeParametros    int
	MargenParametros  int
	AreaMuelleDefault string
	TiposReenvio      []string // tipos de comprobante que se envían a la API externa
}

// Orchestrator procesa lotes de pedidos: precarga de referencias, validación,
// asignación de área de muelle, persistencia y reenvío opcional.
// Es seguro para llamadas concurrentes: todo el estado de un lote es local a la llamada.
type Orchestrator struct {
	refRepo   repository.ReferenceRepository
	stockRepo repository.StockRepository
	dockRepo  repository.DockAreaRepository
	persister *BatchPersister
	forwarder OrderForwarder
	metrics   MetricsRecorder
	cfg       Config
	reenvio   map[string]bool
	log       zerolog.Logger
}

// NewOrchestrator construye el orquestador. forwarder, dockRepo y metrics pueden ser nil.
func NewOrchestrator(
	refRepo repository.ReferenceRepository,
	stockRepo repository.StockRepository,
	dockRepo repository.DockAreaRepository,
	persister *BatchPersister,
	forwarder OrderForwarder,
	metrics MetricsRecorder,
	cfg Config,
	log zerolog.Logger,
) *Orchestrator {
	if cfg.TopeParametros <= 0 {
		cfg.TopeParametros = carga.TopeParametros
	}
	if cfg.MargenParametros < 0 {
		cfg.MargenParametros = carga.MargenParametros
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	reenvio := make(map[string]bool, len(cfg.TiposReenvio))
	for _, t := range cfg.TiposReenvio {
		reenvio[t] = true
	}
	return &Orchestrator{
		refRepo:   refRepo,
		stockRepo: stockRepo,
		dockRepo:  dockRepo,
		persister: persister,
		forwarder: forwarder,
		metrics:   metrics,
		cfg:       cfg,
		reenvio:   reenvio,
		log:       log,
	}
}

// ProcesarLote procesa un lote en formato planilla. Los detalles sin cabecera se descartan con advertencia.
func (o *Orchestrator) ProcesarLote(ctx context.Context, lote entity.Lote) (*dto.ResultadoCarga, error) {
	pedidos, huerfanos := lote.Agrupar()
	return o.procesar(ctx, pedidos, huerfanos)
}

// ProcesarPedidos procesa un lote en formato anidado (cabecera con sus detalles).
func (o *Orchestrator) ProcesarPedidos(ctx context.Context, pedidos []entity.Pedido) (*dto.ResultadoCarga, error) {
	return o.procesar(ctx, pedidos, nil)
}

// ejecucion estado de una invocación.
type ejecucion struct {
	res    *dto.ResultadoCarga
	estado Estado
	inicio time.Time
	log    zerolog.Logger
}

func (o *Orchestrator) nuevaEjecucion() *ejecucion {
	id := uuid.NewString()
	return &ejecucion{
		res:    &dto.ResultadoCarga{LoteID: id, Errores: []string{}},
		estado: EstadoInicio,
		inicio: time.Now(),
		log:    o.log.With().Str("lote_id", id).Logger(),
	}
}

func (e *ejecucion) pasar(estado Estado) {
	e.log.Debug().Str("desde", string(e.estado)).Str("hacia", string(estado)).Msg("cambio de etapa")
	e.estado = estado
}

func (e *ejecucion) rechazar(err error) {
	e.res.Errores = append(e.res.Errores, err.Error())
}

func (o *Orchestrator) procesar(ctx context.Context, pedidos []entity.Pedido, huerfanos []entity.Detalle) (*dto.ResultadoCarga, error) {
	ej := o.nuevaEjecucion()

	for _, d := range huerfanos {
		err := domain.NewValidationError(carga.RegistroDetalle(d.Numero, d.Linea), domain.ErrCabeceraInexistente,
			"Cabecera %s inexistente en el lote, detalle descartado", d.Numero)
		ej.log.Warn().Str("numero", d.Numero).Int("linea", d.Linea).Msg("detalle sin cabecera descartado")
		ej.rechazar(err)
	}

	ej.pasar(EstadoCacheCaliente)
	builder := NewReferenceCacheBuilder(o.refRepo, o.stockRepo, o.cfg.TopeParametros, o.cfg.MargenParametros, ej.log)
	cache, err := builder.Build(ctx, pedidos)
	if err != nil {
		return o.fallar(ej, err)
	}
	lookup := NewCachedLookup(cache, NewDirectLookup(o.refRepo, o.stockRepo))

	ej.pasar(EstadoValidando)
	aceptados, err := o.validar(ctx, ej, pedidos, lookup)
	if err != nil {
		return o.fallar(ej, err)
	}

	ej.pasar(EstadoResolviendo)
	resolver := NewDockAreaResolver(o.dockRepo, o.cfg.AreaMuelleDefault, ej.log)
	for i := range aceptados {
		aceptados[i].Cabecera.AreaMuelle = resolver.Resolver(ctx, entity.CriterioDe(aceptados[i].Cabecera))
	}
	ej.log.Info().Int("criterios", resolver.Entradas()).Msg("áreas de muelle asignadas")

	ej.pasar(EstadoPersistiendo)
	insertados, err := o.persister.Persistir(ctx, aceptados)
	if err != nil {
		return o.fallar(ej, err)
	}
	ej.res.Insertados = insertados

	o.reenviar(ctx, ej, aceptados)
	return o.terminar(ej), nil
}

// validar devuelve los pedidos aceptados. Solo retorna error ante fallas de infraestructura.
func (o *Orchestrator) validar(ctx context.Context, ej *ejecucion, pedidos []entity.Pedido, lookup ReferenceLookup) ([]entity.Pedido, error) {
	hoy := time.Now()
	vistos := make(map[string]struct{}, len(pedidos))
	aceptados := make([]entity.Pedido, 0, len(pedidos))

	for _, p := range pedidos {
		ej.res.Procesados++
		if _, dup := vistos[p.Cabecera.Numero]; dup && p.Cabecera.Numero != "" {
			ej.rechazar(domain.NewValidationError(carga.RegistroCabecera(p.Cabecera.Numero), domain.ErrCabeceraDuplicada,
				"Número de cabecera repetido en el lote"))
			continue
		}
		vistos[p.Cabecera.Numero] = struct{}{}

		err := validarPedido(ctx, p, lookup, hoy)
		switch {
		case err == nil:
			aceptados = append(aceptados, p)
		case domain.EsValidacion(err):
			ej.log.Debug().Str("numero", p.Cabecera.Numero).Err(err).Msg("pedido rechazado")
			ej.rechazar(err)
		default:
			return nil, err
		}
	}
	ej.log.Info().
		Int("procesados", ej.res.Procesados).
		Int("aceptados", len(aceptados)).
		Msg("validación terminada")
	return aceptados, nil
}

// validarPedido valida la cabecera y sus detalles; el primer detalle inválido rechaza el pedido.
// Un detalle con otro número no tendría cabecera con la que unirse en staging.
func validarPedido(ctx context.Context, p entity.Pedido, lookup ReferenceLookup, hoy time.Time) error {
	if err := ValidarCabecera(ctx, p.Cabecera, lookup); err != nil {
		return err
	}
	if len(p.Detalles) == 0 {
		return domain.NewValidationError(carga.RegistroCabecera(p.Cabecera.Numero), domain.ErrSinDetalles,
			"No se encontraron detalles para la cabecera")
	}
	for _, d := range p.Detalles {
		if d.Numero != p.Cabecera.Numero {
			return domain.NewValidationError(carga.RegistroDetalle(d.Numero, d.Linea), domain.ErrCabeceraInexistente,
				"Detalle con número %s dentro de la cabecera %s, pedido rechazado", d.Numero, p.Cabecera.Numero)
		}
		if err := ValidarDetalle(ctx, d, lookup, hoy); err != nil {
			return err
		}
	}
	return nil
}

// reenviar envía a la API externa los pedidos de los tipos configurados. Las fallas solo se registran.
func (o *Orchestrator) reenviar(ctx context.Context, ej *ejecucion, pedidos []entity.Pedido) {
	if o.forwarder == nil {
		return
	}
	for _, p := range pedidos {
		if !o.reenvio[p.Cabecera.TipoCodigo] {
			continue
		}
		if err := o.forwarder.Enviar(ctx, p); err != nil {
			ej.log.Warn().
				Err(&domain.ExternalServiceError{Servicio: "api de pedidos", Err: err}).
				Str("numero", p.Cabecera.Numero).
				Msg("no se pudo reenviar el pedido")
			o.metrics.ObserveForward(false)
			continue
		}
		o.metrics.ObserveForward(true)
		ej.res.Reenviados++
	}
}

func (o *Orchestrator) terminar(ej *ejecucion) *dto.ResultadoCarga {
	ej.pasar(EstadoTerminado)
	rechazados := ej.res.Procesados - ej.res.Insertados
	o.metrics.ObserveBatch(string(EstadoTerminado), ej.res.Procesados, ej.res.Insertados, rechazados, time.Since(ej.inicio))
	ej.log.Info().
		Int("procesados", ej.res.Procesados).
		Int("insertados", ej.res.Insertados).
		Int("reenviados", ej.res.Reenviados).
		Int("errores", len(ej.res.Errores)).
		Msg("lote terminado")
	return ej.res
}

func (o *Orchestrator) fallar(ej *ejecucion, err error) (*dto.ResultadoCarga, error) {
	etapa := ej.estado
	ej.pasar(EstadoFallido)
	ej.res.Insertados = 0
	o.metrics.ObserveBatch(string(EstadoFallido), ej.res.Procesados, 0, ej.res.Procesados, time.Since(ej.inicio))
	ej.log.Error().Err(err).Str("etapa", string(etapa)).Msg("lote abortado")
	return ej.res, err
}

// ProcesarPedido procesa un único pedido sin precarga: las consultas van directo a la base
// y la inserción usa su propia transacción.
func (o *Orchestrator) ProcesarPedido(ctx context.Context, pedido entity.Pedido) (*dto.ResultadoCarga, error) {
	ej := o.nuevaEjecucion()
	ej.res.Procesados = 1

	ej.pasar(EstadoValidando)
	lookup := NewDirectLookup(o.refRepo, o.stockRepo)
	if err := validarPedido(ctx, pedido, lookup, time.Now()); err != nil {
		if !domain.EsValidacion(err) {
			return o.fallar(ej, err)
		}
		ej.rechazar(err)
		return o.terminar(ej), nil
	}

	ej.pasar(EstadoResolviendo)
	resolver := NewDockAreaResolver(o.dockRepo, o.cfg.AreaMuelleDefault, ej.log)
	pedido.Cabecera.AreaMuelle = resolver.Resolver(ctx, entity.CriterioDe(pedido.Cabecera))

	ej.pasar(EstadoPersistiendo)
	if err := o.persister.PersistirUno(ctx, pedido); err != nil {
		return o.fallar(ej, err)
	}
	ej.res.Insertados = 1

	o.reenviar(ctx, ej, []entity.Pedido{pedido})
	return o.terminar(ej), nil
}

// ActualizarAreaMuelle reasigna el área de una cabecera ya cargada en staging.
func (o *Orchestrator) ActualizarAreaMuelle(ctx context.Context, idCabecera int64, area string) error {
	return NewDockAreaResolver(o.dockRepo, o.cfg.AreaMuelleDefault, o.log).ActualizarArea(ctx, idCabecera, area)
}
