package main

import (
	"io"

	"github.com/esa-logistica/carga-api/internal/application/dto"
	"github.com/esa-logistica/carga-api/internal/domain/entity"
)

// leerPedidos decodifica el formato txt: un arreglo de cabeceras con sus detalles.
func leerPedidos(r io.Reader) ([]entity.Pedido, error) {
	var reqs []dto.PedidoRequest
	if err := decodificar(r, &reqs); err != nil {
		return nil, err
	}
	pedidos := make([]entity.Pedido, len(reqs))
	for i, p := range reqs {
		pedidos[i] = p.ToEntity()
	}
	return pedidos, nil
}
