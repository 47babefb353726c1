package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaResourceName = "choreo-report-v1.json"

// GenerateJSONSchema produces a JSON Schema Draft 2020-12 document
// describing the Report struct, used both to publish the report format
// (choreo update) and, through Validate, to check a report against it.
// Writer.Write does not validate the reports it writes.
func GenerateJSONSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = false

	s := r.Reflect(&Report{})
	s.ID = "https://github.com/choreo-lang/choreo/schemas/report-v1.json"
	s.Title = "Choreo Test Report v1"
	s.Description = "Schema for the JSON report choreo run writes to report_path"

	return json.MarshalIndent(s, "", "  ")
}

// Validate checks r against the generated schema, returning one
// human-readable message per violation. A nil/empty slice means valid.
func Validate(r Report) ([]string, error) {
	schemaJSON, err := GenerateJSONSchema()
	if err != nil {
		return nil, fmt.Errorf("generate report schema: %w", err)
	}

	var schemaDoc interface{}
	if err := json.Unmarshal(schemaJSON, &schemaDoc); err != nil {
		return nil, fmt.Errorf("unmarshal report schema: %w", err)
	}

	c := sjsonschema.NewCompiler()
	if err := c.AddResource(schemaResourceName, schemaDoc); err != nil {
		return nil, fmt.Errorf("add report schema resource: %w", err)
	}

	sch, err := c.Compile(schemaResourceName)
	if err != nil {
		return nil, fmt.Errorf("compile report schema: %w", err)
	}

	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}

	if err := sch.Validate(doc); err != nil {
		ve, ok := err.(*sjsonschema.ValidationError)
		if !ok {
			return []string{err.Error()}, nil
		}
		var msgs []string
		for _, cause := range flattenValidationErrors(ve) {
			path := strings.Join(cause.InstanceLocation, "/")
			msgs = append(msgs, fmt.Sprintf("%s: %v", path, cause.ErrorKind))
		}
		return msgs, nil
	}
	return nil, nil
}

func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}
