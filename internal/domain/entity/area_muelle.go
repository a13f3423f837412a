package entity

import "strings"

// CriterioMuelle criterios de envío con los que se resuelve el área de muelle de un pedido.
// CodigoPostal lleva el código postal o, si no está disponible, el nombre de la localidad.
type CriterioMuelle struct {
	Direccion        string
	SubClienteCodigo string
	CodigoPostal     string
	ClienteCodigo    string
}

// CriterioDe arma el criterio de muelle de una cabecera (CP con fallback a localidad).
func CriterioDe(c Cabecera) CriterioMuelle {
	cp := strings.TrimSpace(c.CodigoPostal)
	if cp == "" {
		cp = c.LocalidadNombre
	}
	return CriterioMuelle{
		Direccion:        c.Direccion,
		SubClienteCodigo: c.SubClienteCodigo,
		CodigoPostal:     cp,
		ClienteCodigo:    c.ClienteCodigo,
	}
}
