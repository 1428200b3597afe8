package config

import (
	"github.com/invopop/jsonschema"
)

// Schema describes the automation config file.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		FieldNameTag:              "json",
	}
	s := reflector.Reflect(&FileConfig{})
	s.Title = "Jira status updater configuration"
	return s
}
