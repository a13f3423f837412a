package carga

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/esa-logistica/carga-api/internal/domain"
	"github.com/esa-logistica/carga-api/internal/domain/carga"
	"github.com/esa-logistica/carga-api/internal/domain/entity"
	"github.com/esa-logistica/carga-api/internal/domain/repository"
)

// ReferenceCache datos de referencia de un lote. Se construye por invocación y se descarta al terminar.
// Una clave ausente significa "no consultada"; el validador cae a la consulta puntual.
type ReferenceCache struct {
	clientes  map[string]bool // clave normalizada (ver carga.ClaveCliente)
	productos map[entity.ProductoClave]bool
	stock     map[entity.ProductoClave]decimal.NullDecimal
}

// NewReferenceCache crea una caché vacía.
func NewReferenceCache() *ReferenceCache {
	return &ReferenceCache{
		clientes:  make(map[string]bool),
		productos: make(map[entity.ProductoClave]bool),
		stock:     make(map[entity.ProductoClave]decimal.NullDecimal),
	}
}

// Cliente devuelve si el cliente existe y si la clave fue consultada.
func (c *ReferenceCache) Cliente(codigo string) (existe, ok bool) {
	clave, _ := carga.ClaveCliente(codigo)
	existe, ok = c.clientes[clave]
	return existe, ok
}

// Producto devuelve si el producto existe y si la clave fue consultada.
func (c *ReferenceCache) Producto(key entity.ProductoClave) (existe, ok bool) {
	existe, ok = c.productos[key]
	return existe, ok
}

// Stock devuelve el stock disponible y si la clave fue consultada.
func (c *ReferenceCache) Stock(key entity.ProductoClave) (decimal.NullDecimal, bool) {
	s, ok := c.stock[key]
	return s, ok
}

// Tamanos cantidad de entradas de cada mapa (clientes, productos, stock).
func (c *ReferenceCache) Tamanos() (clientes, productos, stock int) {
	return len(c.clientes), len(c.productos), len(c.stock)
}

// ReferenceCacheBuilder precarga la caché de referencia de un lote con consultas por bloques.
type ReferenceCacheBuilder struct {
	refRepo   repository.ReferenceRepository
	stockRepo repository.StockRepository
	tope      int
	margen    int
	log       zerolog.Logger
}

// NewReferenceCacheBuilder construye el builder. tope/margen acotan los parámetros por sentencia.
func NewReferenceCacheBuilder(
	refRepo repository.ReferenceRepository,
	stockRepo repository.StockRepository,
	tope, margen int,
	log zerolog.Logger,
) *ReferenceCacheBuilder {
	return &ReferenceCacheBuilder{refRepo: refRepo, stockRepo: stockRepo, tope: tope, margen: margen, log: log}
}

// Build recolecta las claves distintas del lote y las resuelve con consultas por bloques.
// Toda clave consultada queda en la caché (por defecto inexistente / sin stock registrado).
func (b *ReferenceCacheBuilder) Build(ctx context.Context, pedidos []entity.Pedido) (*ReferenceCache, error) {
	cache := NewReferenceCache()

	numericos, alfanumericos := clavesCliente(pedidos)
	productos, productosLocales := clavesProducto(pedidos)

	tamCliente := carga.TamanoLote(b.tope, b.margen, carga.ParamsPorCliente)
	for _, bloque := range carga.Dividir(numericos, tamCliente) {
		if err := b.precargarClientes(ctx, cache, bloque, b.refRepo.FindNumericClients); err != nil {
			return nil, domain.NewInfrastructureError("precargar clientes numéricos", err)
		}
	}
	for _, bloque := range carga.Dividir(alfanumericos, tamCliente) {
		if err := b.precargarClientes(ctx, cache, bloque, b.refRepo.FindAlphanumericClients); err != nil {
			return nil, domain.NewInfrastructureError("precargar clientes alfanuméricos", err)
		}
	}

	tamProducto := carga.TamanoLote(b.tope, b.margen, carga.ParamsPorProducto)
	for _, bloque := range carga.Dividir(productos, tamProducto) {
		existentes, err := b.refRepo.FindProducts(ctx, bloque)
		if err != nil {
			return nil, domain.NewInfrastructureError("precargar productos", err)
		}
		for _, k := range bloque {
			cache.productos[k] = false
		}
		for _, k := range existentes {
			cache.productos[k] = true
		}
	}

	for _, bloque := range carga.Dividir(productosLocales, tamProducto) {
		stock, err := b.stockRepo.AvailableStock(ctx, bloque)
		if err != nil {
			return nil, domain.NewInfrastructureError("precargar stock", err)
		}
		for _, k := range bloque {
			if s, ok := stock[k]; ok {
				cache.stock[k] = decimal.NewNullDecimal(s)
			} else {
				cache.stock[k] = decimal.NullDecimal{}
			}
		}
	}

	nc, np, ns := cache.Tamanos()
	b.log.Info().
		Int("clientes", nc).
		Int("productos", np).
		Int("stock", ns).
		Msg("caché de referencia precargada")
	return cache, nil
}

func (b *ReferenceCacheBuilder) precargarClientes(
	ctx context.Context,
	cache *ReferenceCache,
	claves []string,
	find func(context.Context, []string) ([]string, error),
) error {
	existentes, err := find(ctx, claves)
	if err != nil {
		return fmt.Errorf("buscar %d clientes: %w", len(claves), err)
	}
	for _, k := range claves {
		cache.clientes[k] = false
	}
	for _, k := range existentes {
		cache.clientes[k] = true
	}
	return nil
}

// clavesCliente devuelve las claves normalizadas distintas, separadas en numéricas y alfanuméricas.
func clavesCliente(pedidos []entity.Pedido) (numericos, alfanumericos []string) {
	vistos := make(map[string]struct{})
	for _, p := range pedidos {
		if strings.TrimSpace(p.Cabecera.ClienteCodigo) == "" {
			continue
		}
		clave, numerico := carga.ClaveCliente(p.Cabecera.ClienteCodigo)
		if _, ok := vistos[clave]; ok {
			continue
		}
		vistos[clave] = struct{}{}
		if numerico {
			numericos = append(numericos, clave)
		} else {
			alfanumericos = append(alfanumericos, clave)
		}
	}
	return numericos, alfanumericos
}

// clavesProducto devuelve los pares distintos y, aparte, los de la compañía con stock local.
func clavesProducto(pedidos []entity.Pedido) (todos, locales []entity.ProductoClave) {
	vistos := make(map[entity.ProductoClave]struct{})
	for _, p := range pedidos {
		for _, d := range p.Detalles {
			k := d.Clave()
			if k.Producto == "" || k.Compania == "" {
				continue
			}
			if _, ok := vistos[k]; ok {
				continue
			}
			vistos[k] = struct{}{}
			todos = append(todos, k)
			if k.Compania == carga.CompaniaStockLocal {
				locales = append(locales, k)
			}
		}
	}
	return todos, locales
}

// directLookup consulta puntual contra los repositorios, sin caché.
type directLookup struct {
	refRepo   repository.ReferenceRepository
	stockRepo repository.StockRepository
}

// NewDirectLookup crea un ReferenceLookup que consulta siempre la base.
func NewDirectLookup(refRepo repository.ReferenceRepository, stockRepo repository.StockRepository) ReferenceLookup {
	return &directLookup{refRepo: refRepo, stockRepo: stockRepo}
}

func (l *directLookup) ClientExists(ctx context.Context, codigo string) (bool, error) {
	ok, err := l.refRepo.ClientExists(ctx, codigo)
	if err != nil {
		return false, domain.NewInfrastructureError("consultar cliente "+codigo, err)
	}
	return ok, nil
}

func (l *directLookup) ProductExists(ctx context.Context, key entity.ProductoClave) (bool, error) {
	ok, err := l.refRepo.ProductExists(ctx, key)
	if err != nil {
		return false, domain.NewInfrastructureError("consultar producto "+key.Producto, err)
	}
	return ok, nil
}

func (l *directLookup) AvailableStock(ctx context.Context, key entity.ProductoClave) (decimal.NullDecimal, error) {
	s, err := l.stockRepo.Get(ctx, key)
	if err != nil {
		return decimal.NullDecimal{}, domain.NewInfrastructureError("consultar stock "+key.Producto, err)
	}
	return s, nil
}

// cachedLookup consulta primero la caché del lote; ante una clave no consultada usa fallback.
type cachedLookup struct {
	cache    *ReferenceCache
	fallback ReferenceLookup
}

// NewCachedLookup combina la caché del lote con la consulta directa.
func NewCachedLookup(cache *ReferenceCache, fallback ReferenceLookup) ReferenceLookup {
	return &cachedLookup{cache: cache, fallback: fallback}
}

func (l *cachedLookup) ClientExists(ctx context.Context, codigo string) (bool, error) {
	if existe, ok := l.cache.Cliente(codigo); ok {
		return existe, nil
	}
	return l.fallback.ClientExists(ctx, codigo)
}

func (l *cachedLookup) ProductExists(ctx context.Context, key entity.ProductoClave) (bool, error) {
	if existe, ok := l.cache.Producto(key); ok {
		return existe, nil
	}
	return l.fallback.ProductExists(ctx, key)
}

func (l *cachedLookup) AvailableStock(ctx context.Context, key entity.ProductoClave) (decimal.NullDecimal, error) {
	if s, ok := l.cache.Stock(key); ok {
		return s, nil
	}
	return l.fallback.AvailableStock(ctx, key)
}
