package carga

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/esa-logistica/carga-api/internal/domain/entity"
	"github.com/esa-logistica/carga-api/internal/domain/repository"
)

// StagingTxRunner ejecuta fn dentro de una única transacción sobre las tablas temporales.
// Commit solo si fn retorna nil; cualquier error deja la base sin cambios.
type StagingTxRunner interface {
	RunStaging(ctx context.Context, fn func(w repository.StagingWriter) error) error
}

// ReferenceLookup capacidad de consulta de datos de referencia usada por las reglas de validación.
// La implementan la caché del lote (con fallback) y la consulta directa.
type ReferenceLookup interface {
	ClientExists(ctx context.Context, codigo string) (bool, error)
	ProductExists(ctx context.Context, key entity.ProductoClave) (bool, error)
	AvailableStock(ctx context.Context, key entity.ProductoClave) (decimal.NullDecimal, error)
}

// OrderForwarder envía un pedido aceptado a la API externa de creación de pedidos.
type OrderForwarder interface {
	Enviar(ctx context.Context, pedido entity.Pedido) error
}

// MetricsRecorder registra métricas de cada lote procesado.
type MetricsRecorder interface {
	ObserveBatch(estado string, procesados, insertados, rechazados int, duracion time.Duration)
	ObserveChunk(tabla string, filas int)
	ObserveForward(ok bool)
}

type noopMetrics struct{}

func (noopMetrics) ObserveBatch(string, int, int, int, time.Duration) {}
func (noopMetrics) ObserveChunk(string, int)                          {}
func (noopMetrics) ObserveForward(bool)                               {}
