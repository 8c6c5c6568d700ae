package grammar

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed response.schema.json
var responseSchemaJSON string

var (
	responseSchema     *gojsonschema.Schema
	responseSchemaErr  error
	responseSchemaOnce sync.Once
)

func loadResponseSchema() (*gojsonschema.Schema, error) {
	responseSchemaOnce.Do(func() {
		responseSchema, responseSchemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(responseSchemaJSON))
	})
	return responseSchema, responseSchemaErr
}

// validateResponse checks a raw response body against the embedded schema
func validateResponse(body []byte) error {
	schema, err := loadResponseSchema()
	if err != nil {
		return fmt.Errorf("load response schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return malformed("decode JSON: %v", err)
	}
	if result.Valid() {
		return nil
	}

	problems := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		problems = append(problems, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	return malformed("schema: %s", strings.Join(problems, "; "))
}
