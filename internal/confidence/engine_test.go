package confidence_test

import (
	"encoding/json"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/marksheet-extractor/internal/confidence"
	"github.com/joseph-ayodele/marksheet-extractor/internal/draft"
)

const eps = 1e-9

func leaf(v any, c float64) draft.Leaf { return draft.Leaf{Value: v, Confidence: c} }

func recalibrateField(t *testing.T, section, field string, l draft.Leaf, tokens map[string]float64, text string) float64 {
	t.Helper()
	d := draft.NewRecord()
	if section == "subjects" {
		d["subjects"] = draft.List{draft.Section{field: l}}
	} else {
		d[section] = draft.Section{field: l}
	}

	out, err := confidence.NewEngine(nil).Recalibrate(d, tokens, text)
	require.NoError(t, err)

	if section == "subjects" {
		got, ok := out["subjects"].(draft.List)[0].(draft.Section).Leaf(field)
		require.True(t, ok)
		assert.Equal(t, l.Value, got.Value, "value must not change")
		return got.Confidence
	}
	got, ok := out[section].(draft.Section).Leaf(field)
	require.True(t, ok)
	assert.Equal(t, l.Value, got.Value, "value must not change")
	return got.Confidence
}

func TestRecalibrate_FieldScores(t *testing.T) {
	tokens := map[string]float64{"Asha": 0.9, "Rao": 0.7}

	tests := []struct {
		name    string
		section string
		field   string
		leaf    draft.Leaf
		text    string
		want    float64
	}{
		{name: "unknown name", section: "candidate_details", field: "name", leaf: leaf("Unknown", 1), text: "Unknown", want: 0},
		{name: "null name", section: "candidate_details", field: "name", leaf: leaf(nil, 1), want: 0},
		{name: "empty father name", section: "candidate_details", field: "father_name", leaf: leaf("", 0.9), want: 0},
		{name: "numeric zero name", section: "candidate_details", field: "mother_name", leaf: leaf(json.Number("0"), 0.9), text: "0", want: 0},
		{name: "name with tokens", section: "candidate_details", field: "name", leaf: leaf("Asha Rao", 0.8), text: "Name: ASHA RAO", want: 0.84},
		{name: "name not in text with digits", section: "candidate_details", field: "name", leaf: leaf("Asha R4o", 0.5), text: "", want: 0.2 + 0.3*0.7 + 0.06 + 0.04},
		{name: "roll number", section: "candidate_details", field: "roll_no", leaf: leaf("AB123456", 1), text: "Roll No: AB123456", want: 0.96},
		{name: "roll number lower case matches", section: "candidate_details", field: "roll_no", leaf: leaf("ab123456", 0.5), text: "ROLL AB123456", want: 0.76},
		{name: "registration number miss", section: "candidate_details", field: "registration_no", leaf: leaf("x", 0.5), text: "", want: 0.2 + 0.04 + 0.04},
		{name: "dob iso", section: "candidate_details", field: "dob", leaf: leaf("2021-05-04", 0.5), text: "", want: 0.69},
		{name: "dob long month", section: "candidate_details", field: "dob", leaf: leaf("4 may 2021", 0.5), text: "born 4 May 2021", want: 0.15 + 0.36 + 0.3*0.76},
		{name: "dob garbage", section: "candidate_details", field: "dob", leaf: leaf("someday", 0), text: "", want: 0.04 + 0.3*(0.04+0.04)},
		{name: "other candidate field", section: "candidate_details", field: "board_university", leaf: leaf("CBSE", 0.6), text: "", want: 0.49},
		{name: "marks", section: "subjects", field: "obtained_marks", leaf: leaf(json.Number("85"), 0.5), text: "Maths 85 100", want: 0.76},
		{name: "marks zero counts", section: "subjects", field: "obtained_marks", leaf: leaf(json.Number("0"), 0.5), text: "Art 0", want: 0.76},
		{name: "marks over 1000", section: "subjects", field: "max_marks", leaf: leaf("1200", 1), text: "1200", want: 0.8},
		{name: "marks not numeric", section: "subjects", field: "obtained_marks", leaf: leaf("AB", 0), text: "ab", want: 0.1},
		{name: "marks negative", section: "subjects", field: "obtained_marks", leaf: leaf(json.Number("-5"), 0), text: "", want: 0.1},
		{name: "marks presence is case sensitive", section: "subjects", field: "max_marks", leaf: leaf("1e2", 0), text: "1E2", want: 0.36 + 0.06},
		{name: "subject grade", section: "subjects", field: "grade", leaf: leaf("B+", 0.5), text: "Grade B+", want: 0.76},
		{name: "subject name", section: "subjects", field: "subject", leaf: leaf("Maths", 1), text: "MATHS", want: 0.5 + 0.15 + 0.2},
		{name: "percentage", section: "overall_result", field: "percentage", leaf: leaf("78.5%", 0.5), text: "Percentage 78.5%", want: 0.76},
		{name: "result pass", section: "overall_result", field: "result", leaf: leaf("PASS", 0.5), text: "Result: PASS", want: 0.76},
		{name: "overall grade", section: "overall_result", field: "grade", leaf: leaf("First Division", 1), text: "", want: 0.4 + 0.36 + 0.04},
		{name: "total marks", section: "overall_result", field: "total_marks", leaf: leaf(json.Number("425"), 1), text: "Total 425", want: 0.96},
		{name: "issue date", section: "document_info", field: "issue_date", leaf: leaf("04/05/2021", 0.5), text: "", want: 0.69},
		{name: "document type text", section: "document_info", field: "document_type", leaf: leaf("Marksheet", 0), text: "", want: 0.15 + 0.04},
		{name: "unrepaired confidence defaults to half", section: "document_info", field: "issue_place", leaf: leaf("Delhi", math.NaN()), text: "Delhi", want: 0.25 + 0.15 + 0.2},
		{name: "clamped above one", section: "candidate_details", field: "roll_no", leaf: leaf("AB123456", 5), text: "AB123456", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := recalibrateField(t, tt.section, tt.field, tt.leaf, tokens, tt.text)
			assert.InDelta(t, tt.want, got, eps)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestRecalibrate_DateWithinRange(t *testing.T) {
	got := recalibrateField(t, "candidate_details", "dob", leaf("2021-05-04", 0.5), nil, "")
	assert.Greater(t, got, 0.5)
	assert.Less(t, got, 1.0)
}

func TestRecalibrate_DoesNotMutateInput(t *testing.T) {
	d := draft.NewRecord()
	d["candidate_details"] = draft.Section{
		"name":    leaf("Asha Rao", 0.8),
		"address": draft.Section{"city": leaf("Pune", 0.3)},
	}
	d["extra"] = leaf("kept", 0.3)
	before := d.Clone()

	out, err := confidence.NewEngine(nil).Recalibrate(d, nil, "Asha Rao")
	require.NoError(t, err)

	assert.Equal(t, before, d)
	cand := out["candidate_details"].(draft.Section)
	assert.Equal(t, draft.Section{"city": leaf("Pune", 0.3)}, cand["address"], "non-leaf children are left alone")
	assert.Equal(t, leaf("kept", 0.3), out["extra"])
	assert.Len(t, out, len(d), "no keys are added")
}

func TestRecalibrate_MissingSectionsAreSkipped(t *testing.T) {
	out, err := confidence.NewEngine(nil).Recalibrate(draft.Section{
		"candidate_details": draft.Section{"roll_no": leaf("AB123456", 1)},
	}, nil, "AB123456")
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestRecalibrate_ShapeErrors(t *testing.T) {
	tests := []struct {
		name string
		d    draft.Section
	}{
		{name: "candidate details is a list", d: draft.Section{"candidate_details": draft.List{}}},
		{name: "subjects is a section", d: draft.Section{"subjects": draft.Section{}}},
		{name: "subject entry is a field", d: draft.Section{"subjects": draft.List{leaf("Maths", 1)}}},
		{name: "overall result is a field", d: draft.Section{"overall_result": leaf("PASS", 1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.d.Clone()
			out, err := confidence.NewEngine(nil).Recalibrate(tt.d, nil, "")
			require.Error(t, err)
			assert.Nil(t, out)
			assert.Equal(t, before, tt.d)
		})
	}
}

func TestRecalibrate_Deterministic(t *testing.T) {
	d := draft.NewRecord()
	d["candidate_details"] = draft.Section{"name": leaf("Asha Rao", 0.8), "roll_no": leaf("AB123456", 0.7)}
	d["subjects"] = draft.List{
		draft.Section{"subject": leaf("Maths", 0.9), "obtained_marks": leaf(json.Number("85"), 0.6)},
		draft.Section{"subject": leaf("Physics", 0.9), "grade": leaf("A", 0.6)},
	}
	tokens := map[string]float64{"Asha": 0.9, "Rao": 0.7, "Maths": 0.95}
	text := "Asha Rao AB123456 Maths 85 Physics A"

	e := confidence.NewEngine(nil)
	first, err := e.Recalibrate(d, tokens, text)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			again, err := e.Recalibrate(d, tokens, text)
			assert.NoError(t, err)
			assert.Equal(t, first, again)
		}()
	}
	wg.Wait()
}

func TestPatternScore(t *testing.T) {
	assert.InDelta(t, 0.96, confidence.PatternScore(confidence.SetMarks, "85/100", 1, "85/100"), eps)
	assert.InDelta(t, 0.2+0.04+0.04, confidence.PatternScore("no-such-set", "85", math.NaN(), ""), eps)
	assert.Equal(t, 0.0, confidence.PatternScore(confidence.SetGrade, "", 1, ""))
}
