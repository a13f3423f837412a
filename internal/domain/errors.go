package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")

	ErrCampoObligatorio     = errors.New("campo obligatorio")
	ErrFechasInvalidas      = errors.New("fechas inválidas")
	ErrCodigoPostalInvalido = errors.New("código postal inválido")
	ErrClienteInexistente   = errors.New("cliente inexistente")
	ErrProductoInexistente  = errors.New("producto inexistente")
	ErrLoteVencido          = errors.New("lote vencido")
	ErrSinStock             = errors.New("sin stock registrado")
	ErrStockInsuficiente    = errors.New("stock insuficiente")
	ErrCabeceraInexistente  = errors.New("cabecera inexistente en el lote")
	ErrCabeceraDuplicada    = errors.New("cabecera duplicada en el lote")
	ErrSinDetalles          = errors.New("cabecera sin detalles")
	ErrNoConfigurado        = errors.New("servicio no configurado")
)

// ValidationError falla de una regla de negocio sobre un registro (cabecera o detalle).
// Es local a la fila: el registro se descarta y el lote continúa.
type ValidationError struct {
	Registro string // "cabecera 1001", "detalle 1001-2"
	Mensaje  string
	Err      error
}

// NewValidationError construye un ValidationError sobre un sentinel.
func NewValidationError(registro string, err error, format string, args ...any) *ValidationError {
	return &ValidationError{Registro: registro, Mensaje: fmt.Sprintf(format, args...), Err: err}
}

func (e *ValidationError) Error() string {
	if e.Registro == "" {
		return e.Mensaje
	}
	return e.Registro + ": " + e.Mensaje
}

func (e *ValidationError) Unwrap() error { return e.Err }

// InfrastructureError falla de conexión, consulta o persistencia. Aborta el lote.
type InfrastructureError struct {
	Op  string
	Err error
}

// NewInfrastructureError envuelve err con la operación que falló.
func NewInfrastructureError(op string, err error) *InfrastructureError {
	return &InfrastructureError{Op: op, Err: err}
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("infraestructura: %s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error { return e.Err }

// ExternalServiceError falla de un servicio externo (áreas de muelle, API de pedidos).
// Nunca es fatal: se degrada al siguiente nivel y se registra como advertencia.
type ExternalServiceError struct {
	Servicio string
	Err      error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("servicio externo %s: %v", e.Servicio, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// EsValidacion indica si err (o alguno envuelto) es un ValidationError.
func EsValidacion(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// EsInfraestructura indica si err (o alguno envuelto) es un InfrastructureError.
func EsInfraestructura(err error) bool {
	var ie *InfrastructureError
	return errors.As(err, &ie)
}
