package validate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/marksheet-extractor/constants"
)

// BuildRecordJSONSchema returns the JSON Schema a draft must satisfy before it
// is decoded into a record.ExtractedRecord.
func BuildRecordJSONSchema() map[string]any {
	candidate := sectionSchema(
		[]string{constants.FieldName, constants.FieldRollNo},
		constants.FieldFatherName, constants.FieldMotherName, constants.FieldRegistrationNo,
		constants.FieldDOB, constants.FieldExamYear, constants.FieldBoardUniv, constants.FieldInstitution,
	)
	subject := sectionSchema(
		[]string{constants.FieldSubject, constants.FieldObtainedMarks},
		constants.FieldMaxMarks, constants.FieldMaxCredits, constants.FieldObtainedCredits, constants.FieldGrade,
	)
	overall := sectionSchema(nil,
		constants.FieldResult, constants.FieldGrade, constants.FieldPercentage,
		constants.FieldCGPA, constants.FieldTotalMarks, constants.FieldMaxTotalMarks,
	)
	document := sectionSchema(nil,
		constants.FieldIssueDate, constants.FieldIssuePlace, constants.FieldDocumentType, constants.FieldSerialNumber,
	)

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			constants.SectionCandidateDetails: candidate,
			constants.SectionSubjects:         map[string]any{"type": "array", "items": subject},
			constants.SectionOverallResult:    overall,
			constants.SectionDocumentInfo:     document,
		},
		"required": constants.Sections,
	}
}

// sectionSchema builds an object schema whose required fields must carry a
// non-null value and whose optional fields may be null.
func sectionSchema(required []string, optional ...string) map[string]any {
	props := map[string]any{}
	for _, k := range required {
		props[k] = leafSchema(false)
	}
	for _, k := range optional {
		props[k] = leafSchema(true)
	}
	s := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func leafSchema(nullable bool) map[string]any {
	valueTypes := []string{"string", "number"}
	if nullable {
		valueTypes = append(valueTypes, "null")
	}
	return map[string]any{
		"type":     "object",
		"required": []string{constants.KeyValue, constants.KeyConfidence},
		"properties": map[string]any{
			constants.KeyValue:      map[string]any{"type": valueTypes},
			constants.KeyConfidence: map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
		},
	}
}

var compiledRecordSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return compileSchema("record.json", BuildRecordJSONSchema())
})

func compileSchema(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// validateAgainstSchema validates the JSON document data against schema.
func validateAgainstSchema(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
