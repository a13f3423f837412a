package dto

import (
	"encoding/json"
	"strings"
	"time"
)

// ErrorResponse cuerpo de error de la CLI cuando el lote falla por infraestructura.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Fecha acepta "2006-01-02" o RFC 3339 en JSON. Vacío o null es la fecha cero.
type Fecha time.Time

func (f *Fecha) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*f = Fecha{}
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, s); err != nil {
			return err
		}
	}
	*f = Fecha(t)
	return nil
}

func (f Fecha) MarshalJSON() ([]byte, error) {
	t := time.Time(f)
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Format("2006-01-02"))
}

// Time devuelve la fecha como time.Time.
func (f Fecha) Time() time.Time { return time.Time(f) }
