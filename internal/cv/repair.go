package cv

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed document.schema.json
var documentSchema string

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(documentSchema))
})

type fieldKind int

const (
	stringField fieldKind = iota
	arrayField
	objectField
)

type fieldSpec struct {
	name   string
	kind   fieldKind
	nested []fieldSpec
}

var (
	headingFields = []fieldSpec{
		{name: "summary", kind: stringField},
		{name: "experience", kind: stringField},
		{name: "education", kind: stringField},
		{name: "skills", kind: stringField},
	}

	experienceFields = []fieldSpec{
		{name: "jobTitle", kind: stringField},
		{name: "company", kind: stringField},
		{name: "location", kind: stringField},
		{name: "startDate", kind: stringField},
		{name: "endDate", kind: stringField},
		{name: "responsibilities", kind: arrayField},
	}

	educationFields = []fieldSpec{
		{name: "institution", kind: stringField},
		{name: "degree", kind: stringField},
		{name: "fieldOfStudy", kind: stringField},
		{name: "location", kind: stringField},
		{name: "startDate", kind: stringField},
		{name: "endDate", kind: stringField},
	}

	projectFields = []fieldSpec{
		{name: "name", kind: stringField},
		{name: "description", kind: stringField},
		{name: "technologies", kind: arrayField},
		{name: "link", kind: stringField},
	}

	sectionFields = []fieldSpec{
		{name: "title", kind: stringField},
		{name: "items", kind: arrayField},
	}

	// fullName and jobTitle are never defaulted.
	documentFields = []fieldSpec{
		{name: "contactInfo", kind: objectField},
		{name: "headings", kind: objectField, nested: headingFields},
		{name: "summary", kind: stringField},
		{name: "experiences", kind: arrayField, nested: experienceFields},
		{name: "education", kind: arrayField, nested: educationFields},
		{name: "certifications", kind: arrayField},
		{name: "coreSkills", kind: arrayField},
		{name: "technicalSkills", kind: arrayField},
		{name: "softSkills", kind: arrayField},
		{name: "languages", kind: arrayField},
		{name: "projects", kind: arrayField, nested: projectFields},
		{name: "additionalSections", kind: arrayField, nested: sectionFields},
	}

	identityFields = map[string]bool{"fullName": true, "jobTitle": true}
)

// ParseAndRepair turns raw model output into a Document.
//
// The text must be a JSON object; nothing is extracted from surrounding prose.
// Absent or null fields are filled with empty values, present fields are never
// coerced, and the result is checked against the document schema before it is
// decoded. Failures are *SchemaValidationError.
func ParseAndRepair(raw string) (*Document, error) {
	var parsed any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, &SchemaValidationError{Kind: KindMalformedJSON, Err: err}
	}

	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil, &SchemaValidationError{
			Kind:   KindMalformedJSON,
			Detail: fmt.Sprintf("expected a JSON object, got %s", jsonType(parsed)),
		}
	}

	for name := range identityFields {
		if value, present := obj[name]; present && value == nil {
			delete(obj, name)
		}
	}
	repair(obj, documentFields)

	if err := check(obj); err != nil {
		return nil, err
	}

	var doc Document
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &doc,
	})
	if err != nil {
		return nil, fmt.Errorf("create document decoder: %w", err)
	}
	if err := decoder.Decode(obj); err != nil {
		return nil, &SchemaValidationError{Kind: KindTypeMismatch, Field: "(root)", Detail: err.Error(), Err: err}
	}

	return &doc, nil
}

// repair fills absent or null fields with empty values, recursing into the
// objects of known lists. Values of the wrong type are left in place.
func repair(obj map[string]any, specs []fieldSpec) {
	for _, spec := range specs {
		value, present := obj[spec.name]
		if !present || value == nil {
			value = emptyValue(spec.kind)
			obj[spec.name] = value
		}

		if len(spec.nested) == 0 {
			continue
		}

		switch typed := value.(type) {
		case map[string]any:
			repair(typed, spec.nested)
		case []any:
			for _, item := range typed {
				if entry, ok := item.(map[string]any); ok {
					repair(entry, spec.nested)
				}
			}
		}
	}
}

func emptyValue(kind fieldKind) any {
	switch kind {
	case arrayField:
		return []any{}
	case objectField:
		return map[string]any{}
	default:
		return ""
	}
}

func check(obj map[string]any) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("load document schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(obj))
	if err != nil {
		return &SchemaValidationError{Kind: KindMalformedJSON, Err: err}
	}
	if result.Valid() {
		return nil
	}

	return classify(result.Errors())
}

// classify picks one error to report. Missing identity fields win over type
// mismatches; ties are broken by field path so the result is stable.
func classify(errs []gojsonschema.ResultError) *SchemaValidationError {
	var missing, mismatched []*SchemaValidationError

	for _, e := range errs {
		field := e.Field()

		switch e.Type() {
		case "required":
			property, _ := e.Details()["property"].(string)
			missing = append(missing, &SchemaValidationError{
				Kind:   KindMissingRequiredField,
				Field:  joinPath(field, property),
				Detail: e.Description(),
			})
		case "pattern", "string_gte":
			if identityFields[field] {
				missing = append(missing, &SchemaValidationError{
					Kind:   KindMissingRequiredField,
					Field:  field,
					Detail: e.Description(),
				})
				continue
			}
			fallthrough
		default:
			mismatched = append(mismatched, &SchemaValidationError{
				Kind:   KindTypeMismatch,
				Field:  field,
				Detail: e.Description(),
			})
		}
	}

	for _, group := range [][]*SchemaValidationError{missing, mismatched} {
		if len(group) == 0 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool { return group[i].Field < group[j].Field })
		return group[0]
	}

	return &SchemaValidationError{Kind: KindTypeMismatch, Field: "(root)", Detail: "document does not match schema"}
}

func joinPath(parent, property string) string {
	if parent == "" || parent == gojsonschema.STRING_ROOT_SCHEMA_PROPERTY {
		return property
	}
	if property == "" {
		return parent
	}
	return strings.Join([]string{parent, property}, ".")
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case float64:
		return "number"
	case bool:
		return "bool"
	default:
		return fmt.Sprintf("%T", v)
	}
}
