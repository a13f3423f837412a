// Comando carga procesa un lote de pedidos ya tipado (JSON) contra la base SAAD:
// valida, asigna área de muelle, persiste en staging y reenvía a la API externa.
//
//	carga -lote lote.json                    # formato planilla (cabeceras y detalles separados)
//	carga -lote pedidos.json -formato txt    # cabeceras con detalles anidados
//	carga -lote pedido.json -formato pedido  # un solo pedido, sin precarga
//	carga -cabecera 42 -area 00003001        # reasignar área de muelle
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/esa-logistica/carga-api/internal/application/carga"
	"github.com/esa-logistica/carga-api/internal/application/dto"
	"github.com/esa-logistica/carga-api/internal/domain"
	"github.com/esa-logistica/carga-api/internal/domain/repository"
	"github.com/esa-logistica/carga-api/internal/infrastructure/postgres"
	"github.com/esa-logistica/carga-api/internal/infrastructure/saad"
	"github.com/esa-logistica/carga-api/internal/metrics"
	"github.com/esa-logistica/carga-api/pkg/config"
	"github.com/esa-logistica/carga-api/pkg/logger"
)

const (
	formatoPlanilla = "planilla"
	formatoTxt      = "txt"
	formatoPedido   = "pedido"
)

type opciones struct {
	lote     string
	formato  string
	cabecera int64
	area     string
}

func main() {
	var op opciones
	flag.StringVar(&op.lote, "lote", "", "archivo JSON del lote (- para stdin)")
	flag.StringVar(&op.formato, "formato", formatoPlanilla, "planilla | txt | pedido")
	flag.Int64Var(&op.cabecera, "cabecera", 0, "id de cabecera en staging a la que reasignar área")
	flag.StringVar(&op.area, "area", "", "área de muelle a asignar (con -cabecera)")
	flag.Parse()

	os.Exit(run(op, os.Stdout))
}

func run(op opciones, out io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		return fallo(out, "config", err)
	}
	if err := cfg.Validate(); err != nil {
		return fallo(out, "config", err)
	}

	lg := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: cfg.App.Name})
	lg.Info().Str("env", cfg.App.Env).Str("formato", op.formato).Msg("iniciando carga")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	saadPool, err := postgres.NewPool(ctx, "saad", cfg.SAAD, lg.Component("postgres"))
	if err != nil {
		lg.Error().Err(err).Msg("conexión a la base SAAD")
		return fallo(out, "db", err)
	}
	defer saadPool.Close()

	stagingPool, err := postgres.NewPool(ctx, "staging", cfg.Staging, lg.Component("postgres"))
	if err != nil {
		lg.Error().Err(err).Msg("conexión a la base de staging")
		return fallo(out, "db", err)
	}
	defer stagingPool.Close()

	m := metrics.NewCargaMetrics()
	orq := armar(cfg, saadPool, stagingPool, m, lg)
	defer pushMetricas(m, cfg.Metrics, lg)

	if op.cabecera > 0 {
		if err := orq.ActualizarAreaMuelle(ctx, op.cabecera, op.area); err != nil {
			lg.Error().Err(err).Int64("cabecera", op.cabecera).Msg("actualizar área de muelle")
			return fallo(out, "area_muelle", err)
		}
		lg.Info().Int64("cabecera", op.cabecera).Str("area", op.area).Msg("área de muelle actualizada")
		return 0
	}

	res, err := procesar(ctx, orq, op)
	if err != nil {
		code := "carga"
		if domain.EsInfraestructura(err) {
			code = "infraestructura"
		}
		ev := lg.Error().Err(err)
		if res != nil {
			ev = ev.Str("lote_id", res.LoteID).Int("procesados", res.Procesados).Int("rechazados", len(res.Errores))
		}
		ev.Msg("carga fallida")
		return fallo(out, code, err)
	}
	escribir(out, res)
	return 0
}

// armar conecta adaptadores y casos de uso.
func armar(cfg *config.Config, saadPool, stagingPool *pgxpool.Pool, m *metrics.CargaMetrics, lg *logger.Logger) *carga.Orchestrator {
	refRepo := postgres.NewReferenceRepository(saadPool)
	dockRepo := postgres.NewDockAreaRepository(saadPool, stagingPool)
	stockRepo := stockSource(cfg, saadPool, lg.Component("stock"))

	var forwarder carga.OrderForwarder
	if cfg.API.Habilitada() {
		forwarder = saad.NewOrderClient(saad.OrderClientConfig{
			BaseURL: cfg.API.URL,
			Usuario: cfg.API.Usuario,
			Hash:    cfg.API.Hash,
			Timeout: cfg.API.Timeout(),
			Retry:   retryDesde(cfg.API),
		}, lg.Component("api_pedidos"))
	}

	persister := carga.NewBatchPersister(postgres.NewTxRunner(stagingPool),
		cfg.Batch.ParamCeiling, cfg.Batch.ParamMargin, m, lg.Component("persister"))

	return carga.NewOrchestrator(refRepo, stockRepo, dockRepo, persister, forwarder, m, carga.Config{
		TopeParametros:    cfg.Batch.ParamCeiling,
		MargenParametros:  cfg.Batch.ParamMargin,
		AreaMuelleDefault: cfg.Muelle.AreaDefault,
		TiposReenvio:      cfg.API.Tipos,
	}, lg.Component("orquestador"))
}

func stockSource(cfg *config.Config, saadPool *pgxpool.Pool, log zerolog.Logger) repository.StockRepository {
	if cfg.Stock.Provider == config.StockExterno {
		return saad.NewStockClient(cfg.Stock.APIURL, cfg.API.Timeout(), retryDesde(cfg.API), log)
	}
	return postgres.NewStockRepository(saadPool)
}

func retryDesde(api config.ExternalAPIConfig) saad.RetryConfig {
	r := saad.DefaultRetryConfig()
	r.MaxAttempts = api.Reintentos
	if api.BackoffInicial > 0 {
		r.InitialDelay = api.BackoffInicial
	}
	if api.BackoffMaximo > 0 {
		r.MaxDelay = api.BackoffMaximo
	}
	return r
}

func procesar(ctx context.Context, orq *carga.Orchestrator, op opciones) (*dto.ResultadoCarga, error) {
	r, err := abrir(op.lote)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	switch op.formato {
	case formatoPlanilla:
		var lote dto.LoteRequest
		if err := decodificar(r, &lote); err != nil {
			return nil, err
		}
		return orq.ProcesarLote(ctx, lote.ToEntity())
	case formatoTxt:
		pedidos, err := leerPedidos(r)
		if err != nil {
			return nil, err
		}
		return orq.ProcesarPedidos(ctx, pedidos)
	case formatoPedido:
		var p dto.PedidoRequest
		if err := decodificar(r, &p); err != nil {
			return nil, err
		}
		return orq.ProcesarPedido(ctx, p.ToEntity())
	default:
		return nil, fmt.Errorf("%w: formato %q", domain.ErrInvalidInput, op.formato)
	}
}

func abrir(path string) (io.ReadCloser, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: falta -lote", domain.ErrInvalidInput)
	}
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func decodificar(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("%w: lote mal formado: %v", domain.ErrInvalidInput, err)
	}
	return nil
}

func escribir(out io.Writer, v any) {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fallo(out io.Writer, code string, err error) int {
	escribir(out, dto.ErrorResponse{Code: code, Message: err.Error()})
	if errors.Is(err, domain.ErrInvalidInput) {
		return 2
	}
	return 1
}

func pushMetricas(m *metrics.CargaMetrics, cfg config.MetricsConfig, lg *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.Push(ctx, cfg.PushgatewayURL, cfg.Job); err != nil {
		lg.Warn().Err(err).Msg("no se pudieron publicar las métricas")
	}
}
