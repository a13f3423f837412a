package carga

import (
	"strconv"
	"strings"

	"github.com/esa-logistica/carga-api/internal/domain"
	"github.com/esa-logistica/carga-api/internal/domain/entity"
)

// Tipos de comprobante con reglas propias.
const (
	TipoDistribucion = "10"
	TipoDeposito     = "05"
)

// ReglaTipo valida los campos propios de un tipo de comprobante.
type ReglaTipo func(c entity.Cabecera) error

// reglasPorTipo conjunto cerrado de variantes; los tipos no listados usan reglaGeneral.
var reglasPorTipo = map[string]ReglaTipo{
	TipoDistribucion: reglaDistribucion,
	TipoDeposito:     reglaDeposito,
}

// RegistroCabecera identifica una cabecera en los mensajes de error.
func RegistroCabecera(numero string) string {
	return "cabecera " + numero
}

// RegistroDetalle identifica un detalle en los mensajes de error.
func RegistroDetalle(numero string, linea int) string {
	return "detalle " + numero + "-" + strconv.Itoa(linea)
}

// ValidarTipo aplica la regla del tipo de comprobante de la cabecera.
func ValidarTipo(c entity.Cabecera) error {
	regla, ok := reglasPorTipo[c.TipoCodigo]
	if !ok {
		regla = reglaGeneral
	}
	return regla(c)
}

func reglaDistribucion(c entity.Cabecera) error {
	reg := RegistroCabecera(c.Numero)
	if c.Bultos == nil || *c.Bultos <= 0 {
		return domain.NewValidationError(reg, domain.ErrCampoObligatorio, "Bultos debe ser mayor a cero para tipo %s", c.TipoCodigo)
	}
	if c.Kilos == nil || !c.Kilos.IsPositive() {
		return domain.NewValidationError(reg, domain.ErrCampoObligatorio, "Kilos debe ser mayor a cero para tipo %s", c.TipoCodigo)
	}
	if c.M3 == nil || !c.M3.IsPositive() {
		return domain.NewValidationError(reg, domain.ErrCampoObligatorio, "M3 debe ser mayor a cero para tipo %s", c.TipoCodigo)
	}
	if vacio(c.CodigoPostal) {
		return domain.NewValidationError(reg, domain.ErrCampoObligatorio, "Código postal es obligatorio para tipo %s", c.TipoCodigo)
	}
	if !CodigoPostalValido(strings.TrimSpace(c.CodigoPostal)) {
		return domain.NewValidationError(reg, domain.ErrCodigoPostalInvalido, "Código postal %q inválido", c.CodigoPostal)
	}
	if vacio(c.LocalidadNombre) {
		return domain.NewValidationError(reg, domain.ErrCampoObligatorio, "Localidad es obligatoria para tipo %s", c.TipoCodigo)
	}
	if vacio(c.Telefono) && vacio(c.Email) {
		return domain.NewValidationError(reg, domain.ErrCampoObligatorio, "Debe informar teléfono o email para tipo %s", c.TipoCodigo)
	}
	return nil
}

func reglaDeposito(c entity.Cabecera) error {
	if vacio(c.DepositoCodigo) {
		return domain.NewValidationError(RegistroCabecera(c.Numero), domain.ErrCampoObligatorio, "Código de depósito es obligatorio para tipo %s", c.TipoCodigo)
	}
	return nil
}

func reglaGeneral(c entity.Cabecera) error {
	reg := RegistroCabecera(c.Numero)
	switch {
	case vacio(c.LocalidadNombre):
		return domain.NewValidationError(reg, domain.ErrCampoObligatorio, "Localidad es obligatoria")
	case vacio(c.Direccion):
		return domain.NewValidationError(reg, domain.ErrCampoObligatorio, "Dirección es obligatoria")
	case vacio(c.CodigoPostal):
		return domain.NewValidationError(reg, domain.ErrCampoObligatorio, "Código postal es obligatorio")
	}
	return nil
}

func vacio(s string) bool { return strings.TrimSpace(s) == "" }
