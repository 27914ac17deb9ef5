package analysis

import (
	"reflect"

	"github.com/invopop/jsonschema"

	"github.com/samjhill/dream-companion/internal/rank"
)

var countType = reflect.TypeOf(rank.Count{})

// Schema describes the Report wire format as JSON Schema.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
		Mapper:                     mapType,
	}
	s := reflector.Reflect(&Report{})
	s.Title = "Dream analysis report"
	return s
}

// mapType describes types whose JSON encoding differs from their Go shape.
func mapType(t reflect.Type) *jsonschema.Schema {
	if t != countType {
		return nil
	}
	return &jsonschema.Schema{
		Type:        "array",
		Description: "label and count pair",
		PrefixItems: []*jsonschema.Schema{
			{Type: "string"},
			{Type: "integer"},
		},
	}
}
