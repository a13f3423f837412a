// Package saad contiene los clientes HTTP de los servicios externos de SAAD:
// la API de creación de pedidos y el servicio de stock.
package saad

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// RetryConfig política de reintentos con backoff exponencial.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig valores por defecto.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  500 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// StatusError respuesta HTTP no exitosa.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("[%d] %s", e.Status, e.Body)
}

// reintentable: errores de red, 5xx y 429. Un 4xx no cambia reintentando.
func reintentable(err error) bool {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status >= 500 || se.Status == http.StatusTooManyRequests
	}
	return true
}

// client base HTTP compartido: JSON, reintentos y circuit breaker.
type client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	retry   RetryConfig
	log     zerolog.Logger
}

func newClient(nombre, baseURL string, timeout time.Duration, retry RetryConfig, log zerolog.Logger) *client {
	if retry.MaxAttempts < 1 {
		retry.MaxAttempts = 1
	}
	if retry.BackoffFactor < 1 {
		retry.BackoffFactor = 1
	}
	settings := gobreaker.Settings{
		Name:        nombre,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Un 4xx es un rechazo del servicio, no una falla de disponibilidad.
		IsSuccessful: func(err error) bool {
			var se *StatusError
			return err == nil || (errors.As(err, &se) && se.Status < 500)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("desde", from.String()).Str("hacia", to.String()).
				Msg("cambio de estado del circuit breaker")
		},
	}
	return &client{
		baseURL: strings.TrimRight(baseURL, "/") + "/",
		http:    &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(settings),
		retry:   retry,
		log:     log,
	}
}

// ejecutar corre fn a través del breaker, reintentando con backoff exponencial los errores transitorios.
func (c *client) ejecutar(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	delay := c.retry.InitialDelay
	var err error
	for intento := 1; intento <= c.retry.MaxAttempts; intento++ {
		_, err = c.breaker.Execute(func() (any, error) {
			return nil, fn(ctx)
		})
		if err == nil {
			if intento > 1 {
				c.log.Info().Str("op", op).Int("intento", intento).Msg("operación exitosa tras reintento")
			}
			return nil
		}
		if !reintentable(err) || intento == c.retry.MaxAttempts {
			break
		}
		c.log.Warn().Err(err).Str("op", op).Int("intento", intento).Dur("espera", delay).Msg("operación fallida, se reintenta")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(time.Duration(float64(delay)*c.retry.BackoffFactor), c.retry.MaxDelay)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// doJSON envía body (si no es nil) como JSON y decodifica la respuesta en out (si no es nil).
func (c *client) doJSON(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("serializar request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+strings.TrimLeft(path, "/"), reader)
	if err != nil {
		return fmt.Errorf("crear request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("leer respuesta: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decodificar respuesta: %w", err)
	}
	return nil
}
