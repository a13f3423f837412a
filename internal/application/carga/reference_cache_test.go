package carga_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/esa-logistica/carga-api/internal/application/carga"
	"github.com/esa-logistica/carga-api/internal/domain"
	"github.com/esa-logistica/carga-api/internal/domain/entity"
)

func pedidosCon(clientes ...string) []entity.Pedido {
	out := make([]entity.Pedido, len(clientes))
	for i, c := range clientes {
		num := fmt.Sprintf("%d", i+1)
		out[i] = entity.Pedido{Cabecera: cabeceraValida(num, c)}
	}
	return out
}

func TestBuild_ClientesNumericosEquivalentes(t *testing.T) {
	ref := newFakeRefRepo([]string{"0099", "ACME"})
	b := carga.NewReferenceCacheBuilder(ref, newFakeStockRepo(), 2100, 200, zerolog.Nop())

	cache, err := b.Build(context.Background(), pedidosCon("99", "0099", "000099", "acme", "Otro", "100"))
	require.NoError(t, err)

	for _, c := range []string{"99", "0099", "00099", "000000099"} {
		existe, ok := cache.Cliente(c)
		assert.True(t, ok, "%s debe estar en caché", c)
		assert.True(t, existe, "%s equivale a 0099", c)
	}
	existe, ok := cache.Cliente("ACME")
	assert.True(t, ok && existe, "alfanumérico sin distinguir mayúsculas")

	existe, ok = cache.Cliente("100")
	assert.True(t, ok, "consultado")
	assert.False(t, existe, "inexistente")

	_, ok = cache.Cliente("555")
	assert.False(t, ok, "no consultado")

	require.Len(t, ref.llamadasNumericos, 1)
	assert.ElementsMatch(t, []string{"99", "100"}, ref.llamadasNumericos[0], "claves distintas y normalizadas")
	require.Len(t, ref.llamadasAlfa, 1)
	assert.ElementsMatch(t, []string{"acme", "otro"}, ref.llamadasAlfa[0])
}

func TestBuild_BloquesRespetanElTope(t *testing.T) {
	clientes := make([]string, 50)
	for i := range clientes {
		clientes[i] = fmt.Sprintf("%d", i+1)
	}
	ref := newFakeRefRepo(nil)
	// tope 30, margen 10 => 20 claves por consulta
	b := carga.NewReferenceCacheBuilder(ref, newFakeStockRepo(), 30, 10, zerolog.Nop())

	_, err := b.Build(context.Background(), pedidosCon(clientes...))
	require.NoError(t, err)

	require.Len(t, ref.llamadasNumericos, 3)
	for _, bloque := range ref.llamadasNumericos {
		assert.LessOrEqual(t, len(bloque), 20)
	}
}

func TestBuild_StockSoloCompaniaLocal(t *testing.T) {
	ref := newFakeRefRepo([]string{"1"}, prodLocal, prodExterno)
	stock := newFakeStockRepo().con(prodLocal, 10).con(prodExterno, 10)
	sinRegistro := entity.ProductoClave{Producto: "P3", Compania: "05"}
	pedidos := []entity.Pedido{{
		Cabecera: cabeceraValida("1", "1"),
		Detalles: []entity.Detalle{
			detalle("1", 1, prodLocal, 1),
			detalle("1", 2, prodExterno, 1),
			detalle("1", 3, sinRegistro, 1),
			detalle("1", 4, prodLocal, 2),
		},
	}}

	cache, err := carga.NewReferenceCacheBuilder(ref, stock, 2100, 200, zerolog.Nop()).
		Build(context.Background(), pedidos)
	require.NoError(t, err)

	require.Len(t, stock.lotes, 1)
	assert.ElementsMatch(t, []entity.ProductoClave{prodLocal, sinRegistro}, stock.lotes[0])

	s, ok := cache.Stock(prodLocal)
	require.True(t, ok)
	assert.True(t, s.Valid)
	assert.Equal(t, "10", s.Decimal.String())

	s, ok = cache.Stock(sinRegistro)
	require.True(t, ok, "consultado")
	assert.False(t, s.Valid, "sin registro de stock")

	_, ok = cache.Stock(prodExterno)
	assert.False(t, ok, "otras compañías no se consultan")

	_, productos, _ := cache.Tamanos()
	assert.Equal(t, 3, productos)
}

func TestBuild_FallaDeInfraestructura(t *testing.T) {
	ref := newFakeRefRepo(nil)
	ref.errLote = errConexion

	_, err := carga.NewReferenceCacheBuilder(ref, newFakeStockRepo(), 2100, 200, zerolog.Nop()).
		Build(context.Background(), pedidosCon("1"))

	require.Error(t, err)
	assert.True(t, domain.EsInfraestructura(err))
	assert.ErrorIs(t, err, errConexion)
}

func TestCachedLookup_FallbackSoloEnClaveNoConsultada(t *testing.T) {
	ref := newFakeRefRepo([]string{"7"}, prodExterno)
	stock := newFakeStockRepo().con(prodLocal, 4)
	cache := carga.NewReferenceCache()
	lookup := carga.NewCachedLookup(cache, carga.NewDirectLookup(ref, stock))
	ctx := context.Background()

	existe, err := lookup.ClientExists(ctx, "007")
	require.NoError(t, err)
	assert.True(t, existe)
	assert.Equal(t, []string{"007"}, ref.puntualesClientes)

	existe, err = lookup.ProductExists(ctx, prodExterno)
	require.NoError(t, err)
	assert.True(t, existe)

	s, err := lookup.AvailableStock(ctx, prodLocal)
	require.NoError(t, err)
	assert.True(t, s.Valid)
	assert.Len(t, stock.puntuales, 1)
}

func TestDirectLookup_ErrorEsInfraestructura(t *testing.T) {
	ref := newFakeRefRepo(nil)
	ref.errPuntual = errConexion
	lookup := carga.NewDirectLookup(ref, newFakeStockRepo())

	_, err := lookup.ClientExists(context.Background(), "1")
	assert.True(t, domain.EsInfraestructura(err))
	_, err = lookup.ProductExists(context.Background(), prodLocal)
	assert.True(t, domain.EsInfraestructura(err))
}
