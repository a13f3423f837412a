package carga

import "regexp"

// 4 dígitos o CPA argentino (letra + 4 dígitos + 3 letras).
var reCodigoPostal = regexp.MustCompile(`^(\d{4}|[A-Za-z]\d{4}[A-Za-z]{3})$`)

// CodigoPostalValido indica si cp tiene una forma de código postal reconocida.
func CodigoPostalValido(cp string) bool {
	return reCodigoPostal.MatchString(cp)
}
