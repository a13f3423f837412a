package carga

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/esa-logistica/carga-api/internal/domain"
	"github.com/esa-logistica/carga-api/internal/domain/carga"
	"github.com/esa-logistica/carga-api/internal/domain/entity"
	"github.com/esa-logistica/carga-api/internal/domain/repository"
)

// BatchPersister escribe los pedidos aceptados en staging por bloques, todo o nada.
type BatchPersister struct {
	txRunner StagingTxRunner
	tope     int
	margen   int
	metrics  MetricsRecorder
	log      zerolog.Logger
}

// NewBatchPersister construye el persistidor. metrics puede ser nil; tope <= 0 o margen < 0 toman los valores por defecto.
func NewBatchPersister(txRunner StagingTxRunner, tope, margen int, metrics MetricsRecorder, log zerolog.Logger) *BatchPersister {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if tope <= 0 {
		tope = carga.TopeParametros
	}
	if margen < 0 {
		margen = carga.MargenParametros
	}
	return &BatchPersister{txRunner: txRunner, tope: tope, margen: margen, metrics: metrics, log: log}
}

// Persistir inserta todas las cabeceras y detalles en una sola transacción.
// Las cabeceras van en bloques (una sentencia por bloque) y los detalles de cada bloque en sub-bloques.
// Ante cualquier error se revierte todo y se devuelve *domain.InfrastructureError.
func (p *BatchPersister) Persistir(ctx context.Context, pedidos []entity.Pedido) (int, error) {
	if len(pedidos) == 0 {
		return 0, nil
	}
	insertados, err := p.persistir(ctx, pedidos)
	if err != nil {
		return 0, domain.NewInfrastructureError("persistir lote", err)
	}
	p.log.Info().Int("cabeceras", insertados).Msg("lote persistido")
	return insertados, nil
}

// PersistirUno inserta una cabecera con sus detalles en su propia transacción.
func (p *BatchPersister) PersistirUno(ctx context.Context, pedido entity.Pedido) error {
	if _, err := p.persistir(ctx, []entity.Pedido{pedido}); err != nil {
		return domain.NewInfrastructureError("persistir pedido "+pedido.Cabecera.Numero, err)
	}
	return nil
}

func (p *BatchPersister) persistir(ctx context.Context, pedidos []entity.Pedido) (int, error) {
	tamCabecera := carga.TamanoLote(p.tope, p.margen, carga.ParamsPorCabecera)
	tamDetalle := carga.TamanoLote(p.tope, p.margen, carga.ParamsPorDetalle)

	insertados := 0
	err := p.txRunner.RunStaging(ctx, func(w repository.StagingWriter) error {
		for _, bloque := range carga.Dividir(pedidos, tamCabecera) {
			n, err := p.insertarBloque(ctx, w, bloque, tamDetalle)
			if err != nil {
				return err
			}
			insertados += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return insertados, nil
}

func (p *BatchPersister) insertarBloque(ctx context.Context, w repository.StagingWriter, bloque []entity.Pedido, tamDetalle int) (int, error) {
	cabeceras := make([]entity.Cabecera, len(bloque))
	var detalles []entity.Detalle
	for i, pedido := range bloque {
		cabeceras[i] = pedido.Cabecera
		detalles = append(detalles, pedido.Detalles...)
	}

	ids, err := w.InsertHeaders(ctx, cabeceras)
	if err != nil {
		return 0, fmt.Errorf("insertar %d cabeceras: %w", len(cabeceras), err)
	}
	if len(ids) != len(cabeceras) {
		return 0, fmt.Errorf("insertar cabeceras: se esperaban %d ids, se obtuvieron %d", len(cabeceras), len(ids))
	}
	p.metrics.ObserveChunk("cabecera_temp", len(cabeceras))

	idsBloque := make([]int64, 0, len(ids))
	for _, c := range cabeceras {
		id, ok := ids[c.Numero]
		if !ok {
			return 0, fmt.Errorf("cabecera %s sin id asignado", c.Numero)
		}
		idsBloque = append(idsBloque, id)
	}

	for _, sub := range carga.Dividir(detalles, tamDetalle) {
		n, err := w.InsertLines(ctx, idsBloque, sub)
		if err != nil {
			return 0, fmt.Errorf("insertar %d detalles: %w", len(sub), err)
		}
		// Un detalle que no resolvió su cabecera no se inserta: se aborta para no dejar pedidos incompletos.
		if n != int64(len(sub)) {
			return 0, fmt.Errorf("insertar detalles: se esperaban %d filas, se insertaron %d", len(sub), n)
		}
		p.metrics.ObserveChunk("detalle_temp", len(sub))
	}
	return len(cabeceras), nil
}
