package draft_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/marksheet-extractor/internal/draft"
)

func TestDecode(t *testing.T) {
	sec, err := draft.Decode([]byte(`{
		"candidate_details": {
			"name": {"value": "Asha Rao", "confidence": 0.9, "note": "ignored"},
			"roll_no": {"value": 123456, "confidence": "high"},
			"dob": null
		},
		"subjects": [{"subject": {"value": "Maths", "confidence": 0.8}, "obtained_marks": {"value": 85.0, "confidence": 0.7}}]
	}`))
	require.NoError(t, err)

	cand, ok := sec.Section("candidate_details")
	require.True(t, ok)

	name, ok := cand.Leaf("name")
	require.True(t, ok)
	assert.Equal(t, "Asha Rao", name.Value)
	assert.Equal(t, 0.9, name.Confidence)

	roll, _ := cand.Leaf("roll_no")
	assert.Equal(t, json.Number("123456"), roll.Value)
	assert.True(t, math.IsNaN(roll.Confidence))

	dob, _ := cand.Leaf("dob")
	assert.Nil(t, dob.Value)
	assert.True(t, math.IsNaN(dob.Confidence))

	subjects, ok := sec.List("subjects")
	require.True(t, ok)
	require.Len(t, subjects, 1)
	marks, _ := subjects[0].(draft.Section).Leaf("obtained_marks")
	assert.Equal(t, json.Number("85.0"), marks.Value)
}

func TestDecode_SectionLevelConfidence(t *testing.T) {
	sec, err := draft.Decode([]byte(`{
		"candidate_details": {"name": {"value": "Asha Rao", "confidence": 0.9}, "confidence": 0.7},
		"subjects": [
			{"subject": {"value": "Maths", "confidence": 0.8}, "obtained_marks": {"value": 85, "confidence": 0.7}, "confidence": 0.8}
		],
		"overall_result": {"result": {"value": "PASS", "confidence": 0.9}, "confidence": 0.85},
		"document_info": {"confidence": 0.5}
	}`))
	require.NoError(t, err)

	cand, ok := sec.Section("candidate_details")
	require.True(t, ok)
	assert.NotContains(t, cand, "confidence")
	name, ok := cand.Leaf("name")
	require.True(t, ok)
	assert.Equal(t, "Asha Rao", name.Value)

	subjects, ok := sec.List("subjects")
	require.True(t, ok)
	require.Len(t, subjects, 1)
	entry, ok := subjects[0].(draft.Section)
	require.True(t, ok, "subject entry decoded as %T", subjects[0])
	assert.Len(t, entry, 2)
	marks, ok := entry.Leaf("obtained_marks")
	require.True(t, ok)
	assert.Equal(t, json.Number("85"), marks.Value)

	overall, ok := sec.Section("overall_result")
	require.True(t, ok)
	_, ok = overall.Leaf("result")
	assert.True(t, ok)
	assert.NotContains(t, overall, "confidence")

	doc, ok := sec.Section("document_info")
	require.True(t, ok)
	assert.Empty(t, doc)
}

func TestDecode_NestedObjectWithConfidenceIsNotAField(t *testing.T) {
	sec, err := draft.Decode([]byte(`{
		"candidate_details": {"address": {"city": {"value": "Pune", "confidence": 0.8}, "confidence": 0.6}}
	}`))
	require.NoError(t, err)

	cand, _ := sec.Section("candidate_details")
	addr, ok := cand.Section("address")
	require.True(t, ok, "address decoded as %T", cand["address"])
	city, ok := addr.Leaf("city")
	require.True(t, ok)
	assert.Equal(t, "Pune", city.Value)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "truncated", input: `{"candidate_details": {`},
		{name: "trailing data", input: `{} {}`},
		{name: "not an object", input: `[1, 2]`},
		{name: "empty", input: ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := draft.Decode([]byte(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestRepair(t *testing.T) {
	t.Run("inserts missing sections", func(t *testing.T) {
		sec := draft.Repair(draft.Section{})
		assert.Equal(t, draft.NewRecord(), sec)
	})

	t.Run("replaces non-list subjects", func(t *testing.T) {
		sec := draft.Repair(draft.Section{"subjects": draft.Section{"subject": draft.Leaf{Value: "Maths", Confidence: 1}}})
		assert.Equal(t, draft.List{}, sec["subjects"])
	})

	t.Run("keeps wrong-kind sections for validation", func(t *testing.T) {
		sec := draft.Repair(draft.Section{"overall_result": draft.List{}})
		assert.Equal(t, draft.List{}, sec["overall_result"])
	})

	t.Run("clamps confidences", func(t *testing.T) {
		sec := draft.Repair(draft.Section{
			"candidate_details": draft.Section{
				"name":    draft.Leaf{Value: "Asha", Confidence: math.NaN()},
				"roll_no": draft.Leaf{Value: "AB123456", Confidence: 1.5},
				"dob":     draft.Leaf{Value: "2001-01-01", Confidence: -0.2},
				"board":   draft.Leaf{Value: "CBSE", Confidence: 0.75},
			},
			"subjects": draft.List{draft.Section{"grade": draft.Leaf{Value: "A", Confidence: math.NaN()}}},
		})
		cand, _ := sec.Section("candidate_details")
		for key, want := range map[string]float64{"name": 0, "roll_no": 0, "dob": 0, "board": 0.75} {
			leaf, _ := cand.Leaf(key)
			assert.Equal(t, want, leaf.Confidence, key)
		}
		subjects, _ := sec.List("subjects")
		grade, _ := subjects[0].(draft.Section).Leaf("grade")
		assert.Equal(t, 0.0, grade.Confidence)
	})

	t.Run("nil draft", func(t *testing.T) {
		assert.Equal(t, draft.NewRecord(), draft.Repair(nil))
	})
}

func TestDecodeThenRepair_StringConfidence(t *testing.T) {
	sec, err := draft.Decode([]byte(`{"candidate_details": {"name": {"value": "Asha", "confidence": "high"}}}`))
	require.NoError(t, err)
	sec = draft.Repair(sec)

	cand, _ := sec.Section("candidate_details")
	name, _ := cand.Leaf("name")
	assert.Equal(t, 0.0, name.Confidence)
	assert.Equal(t, draft.List{}, sec["subjects"])
}

func TestClone_IsDeep(t *testing.T) {
	orig := draft.Section{
		"candidate_details": draft.Section{"name": draft.Leaf{Value: "Asha", Confidence: 0.4}},
		"subjects":          draft.List{draft.Section{"subject": draft.Leaf{Value: "Maths", Confidence: 0.5}}},
	}
	cp := orig.Clone()
	cp["candidate_details"].(draft.Section)["name"] = draft.Leaf{Value: "Asha", Confidence: 0.9}
	cp["subjects"].(draft.List)[0].(draft.Section)["subject"] = draft.Leaf{Value: "Maths", Confidence: 0.9}

	name, _ := orig["candidate_details"].(draft.Section).Leaf("name")
	assert.Equal(t, 0.4, name.Confidence)
	subj, _ := orig["subjects"].(draft.List)[0].(draft.Section).Leaf("subject")
	assert.Equal(t, 0.5, subj.Confidence)
}

func TestLeaf_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(draft.Section{
		"a": draft.Leaf{Value: json.Number("85"), Confidence: 0.5},
		"b": draft.Leaf{Value: nil, Confidence: math.NaN()},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":{"value":85,"confidence":0.5},"b":{"value":null,"confidence":null}}`, string(b))
}
