// Package validation checks trajectory lines, evaluation reports and the model
// registry against embedded JSON Schemas before they are decoded.
package validation

import (
	"bytes"
	"embed"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Kind names one of the embedded schemas.
type Kind string

const (
	KindTrajectory     Kind = "trajectory"
	KindInstanceReport Kind = "instance-report"
	KindRunReport      Kind = "run-report"
	KindModels         Kind = "models"
)

// Kinds lists every schema kind in a stable order.
var Kinds = []Kind{KindTrajectory, KindInstanceReport, KindRunReport, KindModels}

//go:embed schemas/*.json
var schemaFS embed.FS

var schemaFiles = map[Kind]string{
	KindTrajectory:     "trajectory.schema.json",
	KindInstanceReport: "instance_report.schema.json",
	KindRunReport:      "run_report.schema.json",
	KindModels:         "models.schema.json",
}

// defaultPrinter is used to format schema validation error messages.
var defaultPrinter = message.NewPrinter(language.English)

var compiled = map[Kind]*jsonschema.Schema{}

func init() {
	for kind, name := range schemaFiles {
		compiled[kind] = mustCompileSchema(name)
	}
}

func mustCompileSchema(name string) *jsonschema.Schema {
	raw, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(fmt.Sprintf("failed to read embedded %s: %v", name, err))
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("failed to parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// ParseKind maps a user-supplied name onto a Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	names := make([]string, len(Kinds))
	for i, k := range Kinds {
		names[i] = string(k)
	}
	return "", fmt.Errorf("unknown schema kind %q (want one of %s)", s, strings.Join(names, ", "))
}

// ValidateBytes validates one JSON document. A parse failure is reported as a
// single error string.
func ValidateBytes(kind Kind, data []byte) []string {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return []string{fmt.Sprintf("JSON parse error: %v", err)}
	}
	return ValidateValue(kind, doc)
}

// ValidateValue validates an already decoded JSON value.
func ValidateValue(kind Kind, v any) []string {
	schema, ok := compiled[kind]
	if !ok {
		return []string{fmt.Sprintf("unknown schema kind %q", kind)}
	}

	err := schema.Validate(v)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{fmt.Sprintf("schema: %v", err)}
	}
	var errs []string
	collectSchemaErrors(ve, &errs)
	return errs
}

// Error wraps schema violations so callers can treat them as a regular error.
type Error struct {
	Kind   Kind
	Issues []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Kind, strings.Join(e.Issues, "; "))
}

// Check is ValidateBytes returning an *Error instead of a slice.
func Check(kind Kind, data []byte) error {
	if errs := ValidateBytes(kind, data); len(errs) > 0 {
		return &Error{Kind: kind, Issues: errs}
	}
	return nil
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(defaultPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, errs)
	}
}
