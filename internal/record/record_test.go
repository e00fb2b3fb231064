package record_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/marksheet-extractor/internal/record"
)

func TestSummary(t *testing.T) {
	tests := []struct {
		name string
		rec  record.ExtractedRecord
		want map[string]float64
	}{
		{
			name: "minimal record",
			rec: record.ExtractedRecord{
				CandidateDetails: record.CandidateDetails{
					Name:   record.FieldValue{Value: "Unknown", Confidence: 0.1},
					RollNo: record.FieldValue{Value: "Unknown", Confidence: 0.1},
				},
				Subjects: []record.Subject{},
			},
			want: map[string]float64{"name": 0.1, "roll_no": 0.1},
		},
		{
			name: "full record",
			rec: record.ExtractedRecord{
				CandidateDetails: record.CandidateDetails{
					Name:   record.FieldValue{Value: "Asha Rao", Confidence: 0.9},
					RollNo: record.FieldValue{Value: "AB123456", Confidence: 0.96},
				},
				Subjects: []record.Subject{
					{Subject: record.FieldValue{Value: "Maths", Confidence: 0.8}},
					{Subject: record.FieldValue{Value: "Physics", Confidence: 0.6}},
				},
				OverallResult: record.OverallResult{Result: &record.FieldValue{Value: "PASS", Confidence: 0.76}},
			},
			want: map[string]float64{"name": 0.9, "roll_no": 0.96, "subjects_avg": 0.7, "result": 0.76},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.rec.Summary()
			assert.Len(t, got, len(tt.want))
			for k, v := range tt.want {
				assert.InDelta(t, v, got[k], 1e-9, k)
			}
		})
	}
}
