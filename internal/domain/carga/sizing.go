package carga

// Límites por defecto de parámetros enlazados por sentencia.
const (
	TopeParametros   = 2100
	MargenParametros = 200
)

// Parámetros por fila de cada consulta/insert.
const (
	ParamsPorCabecera = 23
	ParamsPorDetalle  = 9
	ParamsPorCliente  = 1
	ParamsPorProducto = 2
)

// TamanoLote calcula cuántas filas caben en una sentencia sin superar el tope de parámetros.
// tamaño = max(1, floor(max(1, tope-margen) / max(1, paramsPorFila)))
func TamanoLote(tope, margen, paramsPorFila int) int {
	disponible := max(1, tope-margen)
	return max(1, disponible/max(1, paramsPorFila))
}

// Dividir parte items en bloques de a lo sumo tamano elementos, conservando el orden.
func Dividir[T any](items []T, tamano int) [][]T {
	if len(items) == 0 {
		return nil
	}
	tamano = max(1, tamano)
	bloques := make([][]T, 0, (len(items)+tamano-1)/tamano)
	for inicio := 0; inicio < len(items); inicio += tamano {
		fin := min(inicio+tamano, len(items))
		bloques = append(bloques, items[inicio:fin:fin])
	}
	return bloques
}
