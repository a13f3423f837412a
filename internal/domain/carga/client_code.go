package carga

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CompaniaStockLocal compañía cuyo stock se valida contra el inventario local.
const CompaniaStockLocal = "05"

// EsNumerico indica si el código está formado solo por dígitos ASCII.
func EsNumerico(codigo string) bool {
	if codigo == "" {
		return false
	}
	for i := 0; i < len(codigo); i++ {
		if codigo[i] < '0' || codigo[i] > '9' {
			return false
		}
	}
	return true
}

// ClaveCliente normaliza un código de cliente para comparar.
// Numéricos: sin ceros a la izquierda ("0099" == "99"); no convierte a entero, así no desborda.
// Alfanuméricos: en minúsculas, comparación sin distinguir mayúsculas.
func ClaveCliente(codigo string) (clave string, numerico bool) {
	codigo = strings.TrimSpace(codigo)
	if EsNumerico(codigo) {
		sinCeros := strings.TrimLeft(codigo, "0")
		if sinCeros == "" {
			sinCeros = "0"
		}
		return sinCeros, true
	}
	return cases.Lower(language.Und).String(codigo), false
}
