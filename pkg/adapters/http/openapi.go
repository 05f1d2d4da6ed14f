package http

import (
	_ "embed"

	"github.com/getkin/kin-openapi/openapi3"
)

// The contract is maintained by hand next to the handlers it documents.
//
//go:embed openapi.yaml
var openapiSpec []byte

// rawSpec returns the embedded OpenAPI document.
func rawSpec() []byte { return openapiSpec }

// apiVersion reads the contract version out of the embedded document.
func apiVersion() string {
	doc, err := openapi3.NewLoader().LoadFromData(openapiSpec)
	if err != nil || doc.Info == nil {
		return "unknown"
	}
	return doc.Info.Version
}
