// Package validate turns a recalibrated draft into a typed record, falling
// back to a minimal record when the draft does not validate.
package validate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"

	"github.com/joseph-ayodele/marksheet-extractor/constants"
	"github.com/joseph-ayodele/marksheet-extractor/internal/common"
	"github.com/joseph-ayodele/marksheet-extractor/internal/draft"
	"github.com/joseph-ayodele/marksheet-extractor/internal/record"
)

type Validator struct {
	logger *slog.Logger
}

func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{logger: logger}
}

// Validate checks d against the record schema and decodes it. Errors wrap
// common.ErrValidation.
func (v *Validator) Validate(d draft.Section) (record.ExtractedRecord, error) {
	schema, err := compiledRecordSchema()
	if err != nil {
		return record.ExtractedRecord{}, fmt.Errorf("%w: %w", common.ErrInternal, err)
	}

	data, err := json.Marshal(d)
	if err != nil {
		return record.ExtractedRecord{}, fmt.Errorf("%w: encode draft: %w", common.ErrValidation, err)
	}
	if err := validateAgainstSchema(schema, data); err != nil {
		return record.ExtractedRecord{}, fmt.Errorf("%w: %w", common.ErrValidation, err)
	}

	var rec record.ExtractedRecord
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&rec); err != nil {
		return record.ExtractedRecord{}, fmt.Errorf("%w: decode record: %w", common.ErrValidation, err)
	}
	if rec.Subjects == nil {
		rec.Subjects = []record.Subject{}
	}
	return rec, nil
}

// Normalize always returns a usable record. When Validate rejects d the
// record is MinimalRecord(d) and reason says why.
func (v *Validator) Normalize(d draft.Section) (rec record.ExtractedRecord, reason error) {
	rec, err := v.Validate(d)
	if err == nil {
		return rec, nil
	}
	v.logger.Warn("validate.normalize.fallback", "error", err)
	return MinimalRecord(d), err
}

// MinimalRecord keeps only the candidate name and roll number. Each keeps its
// draft value and confidence when the value is a non-null string or number;
// otherwise it becomes "Unknown" with confidence 0.1. Every other section is empty.
func MinimalRecord(d draft.Section) record.ExtractedRecord {
	cand, _ := d.Section(constants.SectionCandidateDetails)
	return record.ExtractedRecord{
		CandidateDetails: record.CandidateDetails{
			Name:   survivingField(cand, constants.FieldName),
			RollNo: survivingField(cand, constants.FieldRollNo),
		},
		Subjects: []record.Subject{},
	}
}

func survivingField(sec draft.Section, key string) record.FieldValue {
	unknown := record.FieldValue{Value: constants.UnknownValue, Confidence: constants.MinimalConfidence}
	leaf, ok := sec.Leaf(key)
	if !ok {
		return unknown
	}
	switch leaf.Value.(type) {
	case string, json.Number, float64:
	default:
		return unknown
	}
	conf := leaf.Confidence
	if math.IsNaN(conf) {
		conf = constants.MinimalConfidence
	}
	return record.FieldValue{Value: leaf.Value, Confidence: math.Max(0, math.Min(1, conf))}
}
