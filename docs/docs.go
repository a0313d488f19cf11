// Package docs registra el documento OpenAPI de la API en swag.
// swagger.json se regenera con `swag init -g cmd/api/main.go -o docs --outputTypes json`.
package docs

import (
	_ "embed"

	"github.com/swaggo/swag"
)

//go:embed swagger.json
var docTemplate string

// SwaggerInfo metadatos del documento.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Bakery Stock API",
	Description:      "Libro de movimientos de insumos de panadería y descuento automático por pedido.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

// JSON devuelve el documento registrado.
func JSON() ([]byte, error) {
	doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	if err != nil {
		return nil, err
	}
	return []byte(doc), nil
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
