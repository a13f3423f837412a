package carga_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	domaincarga "github.com/esa-logistica/carga-api/internal/domain/carga"
	"github.com/esa-logistica/carga-api/internal/domain/entity"
	"github.com/esa-logistica/carga-api/internal/domain/repository"
)

var errConexion = errors.New("conexión rechazada")

func nopLog() zerolog.Logger { return zerolog.Nop() }

// ──────────────────────────────────────────────────────────────────────────────
// Datos de referencia
// ──────────────────────────────────────────────────────────────────────────────

type fakeRefRepo struct {
	mu sync.Mutex

	clientes  []string
	productos map[entity.ProductoClave]bool

	errLote    error
	errPuntual error

	llamadasNumericos  [][]string
	llamadasAlfa       [][]string
	llamadasProductos  [][]entity.ProductoClave
	puntualesClientes  []string
	puntualesProductos []entity.ProductoClave
}

func newFakeRefRepo(clientes []string, productos ...entity.ProductoClave) *fakeRefRepo {
	r := &fakeRefRepo{clientes: clientes, productos: make(map[entity.ProductoClave]bool)}
	for _, p := range productos {
		r.productos[p] = true
	}
	return r
}

func (r *fakeRefRepo) existentes(keys []string, numerico bool) []string {
	var out []string
	for _, k := range keys {
		for _, c := range r.clientes {
			clave, num := domaincarga.ClaveCliente(c)
			if num == numerico && clave == k {
				out = append(out, k)
				break
			}
		}
	}
	return out
}

func (r *fakeRefRepo) FindNumericClients(_ context.Context, keys []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llamadasNumericos = append(r.llamadasNumericos, keys)
	if r.errLote != nil {
		return nil, r.errLote
	}
	return r.existentes(keys, true), nil
}

func (r *fakeRefRepo) FindAlphanumericClients(_ context.Context, keys []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llamadasAlfa = append(r.llamadasAlfa, keys)
	if r.errLote != nil {
		return nil, r.errLote
	}
	return r.existentes(keys, false), nil
}

func (r *fakeRefRepo) FindProducts(_ context.Context, keys []entity.ProductoClave) ([]entity.ProductoClave, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llamadasProductos = append(r.llamadasProductos, keys)
	if r.errLote != nil {
		return nil, r.errLote
	}
	var out []entity.ProductoClave
	for _, k := range keys {
		if r.productos[k] {
			out = append(out, k)
		}
	}
	return out, nil
}

func (r *fakeRefRepo) ClientExists(_ context.Context, codigo string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.puntualesClientes = append(r.puntualesClientes, codigo)
	if r.errPuntual != nil {
		return false, r.errPuntual
	}
	clave, num := domaincarga.ClaveCliente(codigo)
	return len(r.existentes([]string{clave}, num)) == 1, nil
}

func (r *fakeRefRepo) ProductExists(_ context.Context, key entity.ProductoClave) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.puntualesProductos = append(r.puntualesProductos, key)
	if r.errPuntual != nil {
		return false, r.errPuntual
	}
	return r.productos[key], nil
}

type fakeStockRepo struct {
	mu        sync.Mutex
	stock     map[entity.ProductoClave]decimal.Decimal
	err       error
	lotes     [][]entity.ProductoClave
	puntuales []entity.ProductoClave
}

func newFakeStockRepo() *fakeStockRepo {
	return &fakeStockRepo{stock: make(map[entity.ProductoClave]decimal.Decimal)}
}

func (s *fakeStockRepo) con(key entity.ProductoClave, cantidad int64) *fakeStockRepo {
	s.stock[key] = decimal.NewFromInt(cantidad)
	return s
}

func (s *fakeStockRepo) AvailableStock(_ context.Context, keys []entity.ProductoClave) (map[entity.ProductoClave]decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lotes = append(s.lotes, keys)
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[entity.ProductoClave]decimal.Decimal)
	for _, k := range keys {
		if v, ok := s.stock[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (s *fakeStockRepo) Get(_ context.Context, key entity.ProductoClave) (decimal.NullDecimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puntuales = append(s.puntuales, key)
	if s.err != nil {
		return decimal.NullDecimal{}, s.err
	}
	v, ok := s.stock[key]
	if !ok {
		return decimal.NullDecimal{}, nil
	}
	return decimal.NewNullDecimal(v), nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Áreas de muelle
// ──────────────────────────────────────────────────────────────────────────────

type fakeDockRepo struct {
	mu           sync.Mutex
	porDireccion map[[3]string]string
	porCP        map[string]string
	errDireccion error
	errCP        error
	consultas    int
	actualizadas map[int64]string
}

func newFakeDockRepo() *fakeDockRepo {
	return &fakeDockRepo{
		porDireccion: make(map[[3]string]string),
		porCP:        make(map[string]string),
		actualizadas: make(map[int64]string),
	}
}

func (d *fakeDockRepo) FindByAddress(_ context.Context, direccion, subCliente, cliente string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.consultas++
	if d.errDireccion != nil {
		return "", false, d.errDireccion
	}
	a, ok := d.porDireccion[[3]string{direccion, subCliente, cliente}]
	return a, ok, nil
}

func (d *fakeDockRepo) FindByPostalCode(_ context.Context, cp string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.consultas++
	if d.errCP != nil {
		return "", false, d.errCP
	}
	a, ok := d.porCP[cp]
	return a, ok, nil
}

func (d *fakeDockRepo) UpdateHeaderArea(_ context.Context, id int64, area string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.actualizadas[id] = area
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Staging transaccional: las escrituras se confirman solo si fn retorna nil.
// ──────────────────────────────────────────────────────────────────────────────

type fakeTxRunner struct {
	mu sync.Mutex

	cabeceras []entity.Cabecera
	detalles  []entity.Detalle

	transacciones      int
	sentenciasCabecera int
	sentenciasDetalle  int
	maxFilasCabecera   int
	maxFilasDetalle    int

	// fallarEnCabecera hace fallar la N-ésima sentencia de cabeceras (1-based); 0 = nunca.
	fallarEnCabecera int
	fallarDetalles   bool
}

type fakeWriter struct {
	tx        *fakeTxRunner
	siguiente int64
	cabeceras []entity.Cabecera
	detalles  []entity.Detalle
	ids       map[string]int64
}

func (f *fakeTxRunner) RunStaging(ctx context.Context, fn func(w repository.StagingWriter) error) error {
	f.mu.Lock()
	f.transacciones++
	siguiente := int64(len(f.cabeceras))
	f.mu.Unlock()

	w := &fakeWriter{tx: f, siguiente: siguiente, ids: make(map[string]int64)}
	if err := fn(w); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.cabeceras = append(f.cabeceras, w.cabeceras...)
	f.detalles = append(f.detalles, w.detalles...)
	return nil
}

func (w *fakeWriter) InsertHeaders(_ context.Context, headers []entity.Cabecera) (map[string]int64, error) {
	w.tx.mu.Lock()
	w.tx.sentenciasCabecera++
	n := w.tx.sentenciasCabecera
	w.tx.maxFilasCabecera = max(w.tx.maxFilasCabecera, len(headers))
	w.tx.mu.Unlock()
	if w.tx.fallarEnCabecera > 0 && n == w.tx.fallarEnCabecera {
		return nil, errConexion
	}
	out := make(map[string]int64, len(headers))
	for _, h := range headers {
		w.siguiente++
		out[h.Numero] = w.siguiente
		w.ids[h.Numero] = w.siguiente
		w.cabeceras = append(w.cabeceras, h)
	}
	return out, nil
}

func (w *fakeWriter) InsertLines(_ context.Context, headerIDs []int64, lines []entity.Detalle) (int64, error) {
	w.tx.mu.Lock()
	w.tx.sentenciasDetalle++
	w.tx.maxFilasDetalle = max(w.tx.maxFilasDetalle, len(lines))
	w.tx.mu.Unlock()
	if w.tx.fallarDetalles {
		return 0, errConexion
	}
	permitidos := make(map[int64]bool, len(headerIDs))
	for _, id := range headerIDs {
		permitidos[id] = true
	}
	var n int64
	for _, l := range lines {
		if id, ok := w.ids[l.Numero]; ok && permitidos[id] {
			w.detalles = append(w.detalles, l)
			n++
		}
	}
	return n, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Reenvío y métricas
// ──────────────────────────────────────────────────────────────────────────────

type fakeForwarder struct {
	mu       sync.Mutex
	enviados []string
	err      error
}

func (f *fakeForwarder) Enviar(_ context.Context, p entity.Pedido) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.enviados = append(f.enviados, p.Cabecera.Numero)
	return nil
}

type fakeMetrics struct {
	mu      sync.Mutex
	estados []string
	bloques map[string]int
}

func (m *fakeMetrics) ObserveBatch(estado string, _, _, _ int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.estados = append(m.estados, estado)
}

func (m *fakeMetrics) ObserveChunk(tabla string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bloques == nil {
		m.bloques = make(map[string]int)
	}
	m.bloques[tabla]++
}

func (m *fakeMetrics) ObserveForward(bool) {}

// ──────────────────────────────────────────────────────────────────────────────
// Constructores de datos
// ──────────────────────────────────────────────────────────────────────────────

var (
	prodLocal   = entity.ProductoClave{Producto: "P1", Compania: "05"}
	prodExterno = entity.ProductoClave{Producto: "P2", Compania: "01"}
)

func cabeceraValida(numero, cliente string) entity.Cabecera {
	hoy := time.Now()
	return entity.Cabecera{
		Numero:          numero,
		TipoCodigo:      "001",
		Categoria:       "A",
		Sucursal:        "01",
		ClienteCodigo:   cliente,
		RazonSocial:     "Cliente SA",
		Direccion:       "Av. Siempre Viva 742",
		LocalidadNombre: "Rosario",
		CodigoPostal:    "2000",
		FechaEmision:    hoy,
		FechaEntrega:    hoy.AddDate(0, 0, 2),
	}
}

func detalle(numero string, linea int, key entity.ProductoClave, cantidad int) entity.Detalle {
	return entity.Detalle{
		Numero:                 numero,
		Linea:                  linea,
		ProductoCodigo:         key.Producto,
		ProductoCompaniaCodigo: key.Compania,
		Cantidad:               cantidad,
	}
}
