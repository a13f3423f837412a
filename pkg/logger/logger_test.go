package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esa-logistica/carga-api/pkg/logger"
)

func TestNew_JSONConServicioYComponente(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.Config{Env: "production", Level: "info", Service: "carga-api", Out: &buf})

	cl := l.Component("orquestador")
	cl.Info().Str("lote_id", "x").Msg("hola")

	var linea map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &linea))
	assert.Equal(t, "carga-api", linea["service"])
	assert.Equal(t, "orquestador", linea["component"])
	assert.Equal(t, "x", linea["lote_id"])
	assert.Equal(t, "info", linea["level"])
}

func TestNew_FiltraPorNivel(t *testing.T) {
	var buf bytes.Buffer
	l := logger.New(logger.Config{Env: "production", Level: "warn", Out: &buf})

	l.Info().Msg("no se escribe")
	assert.Zero(t, buf.Len())

	l.Warn().Msg("se escribe")
	assert.NotZero(t, buf.Len())
}
