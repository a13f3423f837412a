// Package metrics registra las métricas de las cargas en un registry propio y
// las publica en un Pushgateway al terminar cada ejecución.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/esa-logistica/carga-api/internal/application/carga"
)

var _ carga.MetricsRecorder = (*CargaMetrics)(nil)

// CargaMetrics implementa carga.MetricsRecorder sobre Prometheus.
type CargaMetrics struct {
	registry *prometheus.Registry

	lotes       *prometheus.CounterVec
	pedidos     *prometheus.CounterVec
	duracion    prometheus.Histogram
	filasBloque *prometheus.HistogramVec
	reenvios    *prometheus.CounterVec
}

// NewCargaMetrics crea las métricas sobre un registry nuevo.
func NewCargaMetrics() *CargaMetrics {
	return newCargaMetricsWithRegistry(prometheus.NewRegistry())
}

func newCargaMetricsWithRegistry(reg *prometheus.Registry) *CargaMetrics {
	m := &CargaMetrics{
		registry: reg,
		lotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carga_lotes_total",
			Help: "Lotes procesados por estado final",
		}, []string{"estado"}),
		pedidos: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carga_pedidos_total",
			Help: "Cabeceras por resultado (procesado, insertado, rechazado)",
		}, []string{"resultado"}),
		duracion: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "carga_lote_duracion_seconds",
			Help:    "Duración del procesamiento de un lote",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		filasBloque: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "carga_bloque_filas",
			Help:    "Filas insertadas por sentencia en las tablas temporales",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"tabla"}),
		reenvios: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carga_reenvios_total",
			Help: "Pedidos enviados a la API externa por resultado",
		}, []string{"resultado"}),
	}
	reg.MustRegister(m.lotes, m.pedidos, m.duracion, m.filasBloque, m.reenvios)
	return m
}

func (m *CargaMetrics) ObserveBatch(estado string, procesados, insertados, rechazados int, d time.Duration) {
	m.lotes.WithLabelValues(estado).Inc()
	m.pedidos.WithLabelValues("procesado").Add(float64(procesados))
	m.pedidos.WithLabelValues("insertado").Add(float64(insertados))
	m.pedidos.WithLabelValues("rechazado").Add(float64(rechazados))
	m.duracion.Observe(d.Seconds())
}

func (m *CargaMetrics) ObserveChunk(tabla string, filas int) {
	m.filasBloque.WithLabelValues(tabla).Observe(float64(filas))
}

func (m *CargaMetrics) ObserveForward(ok bool) {
	resultado := "ok"
	if !ok {
		resultado = "error"
	}
	m.reenvios.WithLabelValues(resultado).Inc()
}

// Push publica el registry en el Pushgateway. Sin URL no hace nada.
func (m *CargaMetrics) Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push de métricas a %s: %w", url, err)
	}
	return nil
}
