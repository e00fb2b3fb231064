package llm_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/marksheet-extractor/internal/common"
	"github.com/joseph-ayodele/marksheet-extractor/internal/draft"
	"github.com/joseph-ayodele/marksheet-extractor/internal/llm"
)

type fakeGenerator struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}
func (f *fakeGenerator) Name() string  { return "fake" }
func (f *fakeGenerator) Model() string { return "m1" }

func TestBuildPrompt(t *testing.T) {
	tokens := map[string]float64{"zeta": 0.5, "alpha": 0.91}
	p := llm.BuildPrompt("NAME: RAHUL", tokens)

	assert.Equal(t, p, llm.BuildPrompt("NAME: RAHUL", tokens))
	assert.Contains(t, p, "NAME: RAHUL")
	assert.Contains(t, p, "\"candidate_details\"")
	assert.Contains(t, p, "\"max_total_marks\"")
	assert.Contains(t, p, "Return ONLY the JSON")
	assert.Less(t, strings.Index(p, `"alpha": 0.91`), strings.Index(p, `"zeta": 0.5`))

	empty := llm.BuildPrompt("", nil)
	assert.Contains(t, empty, "OCR WORD CONFIDENCES:\n{}")
}

func TestParseResponse(t *testing.T) {
	t.Run("prose around object", func(t *testing.T) {
		sec, err := llm.ParseResponse("Sure! Here you go:\n```json\n{\"candidate_details\": {\"name\": {\"value\": \"A\", \"confidence\": 0.9}}}\n```")
		require.NoError(t, err)
		cd, ok := sec.Section("candidate_details")
		require.True(t, ok)
		leaf, ok := cd.Leaf("name")
		require.True(t, ok)
		assert.Equal(t, "A", leaf.Value)
		assert.Equal(t, 0.9, leaf.Confidence)

		subjects, ok := sec.List("subjects")
		require.True(t, ok)
		assert.Empty(t, subjects)
		_, ok = sec.Section("document_info")
		assert.True(t, ok)
	})

	t.Run("out of range confidence clamped", func(t *testing.T) {
		sec, err := llm.ParseResponse(`{"overall_result": {"result": {"value": "PASS", "confidence": 1.7}}}`)
		require.NoError(t, err)
		or, _ := sec.Section("overall_result")
		leaf, _ := or.Leaf("result")
		assert.Equal(t, 0.0, leaf.Confidence)
	})

	formatCases := []string{"", "no json here", "only { open", "only } close"}
	for _, raw := range formatCases {
		t.Run("format "+raw, func(t *testing.T) {
			_, err := llm.ParseResponse(raw)
			assert.ErrorIs(t, err, common.ErrResponseFormat)
		})
	}

	t.Run("invalid json keeps fragment", func(t *testing.T) {
		_, err := llm.ParseResponse(`xx {"a": [1,} yy`)
		require.ErrorIs(t, err, common.ErrInvalidJSON)
		var ee *common.ExtractionError
		require.True(t, errors.As(err, &ee))
		assert.Equal(t, `{"a": [1,}`, ee.Fragment)
	})

	t.Run("two objects", func(t *testing.T) {
		_, err := llm.ParseResponse(`{"a": 1} and {"b": 2}`)
		assert.ErrorIs(t, err, common.ErrInvalidJSON)
	})

	t.Run("object inside array is used", func(t *testing.T) {
		sec, err := llm.ParseResponse(`[{"document_info": {}}]`)
		require.NoError(t, err)
		assert.Len(t, sec, 4)
	})
}

func TestStructurer(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		gen := &fakeGenerator{reply: `{"subjects": [{"subject": {"value": "Maths", "confidence": 0.8}}]}`}
		s := llm.NewStructurer(gen, nil)
		assert.Equal(t, "fake-m1", s.ModelIdentifier())

		sec, err := s.Structure(ctx, "MATHS 88", map[string]float64{"MATHS": 0.9})
		require.NoError(t, err)
		subjects, _ := sec.List("subjects")
		require.Len(t, subjects, 1)
		assert.IsType(t, draft.Section{}, subjects[0])
		assert.Contains(t, gen.prompt, "MATHS 88")
	})

	tests := []struct {
		name  string
		gen   *fakeGenerator
		inner error
	}{
		{name: "vendor error", gen: &fakeGenerator{err: errors.New("dial tcp: refused")}, inner: common.ErrProvider},
		{name: "typed vendor error", gen: &fakeGenerator{err: common.NewExtractionError(common.KindProvider, "429", nil)}, inner: common.ErrProvider},
		{name: "no json", gen: &fakeGenerator{reply: "I cannot read this"}, inner: common.ErrResponseFormat},
		{name: "bad json", gen: &fakeGenerator{reply: "{nope}"}, inner: common.ErrInvalidJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := llm.NewStructurer(tt.gen, nil).Structure(ctx, "text", nil)
			require.Error(t, err)
			assert.Equal(t, common.KindStructuring, common.KindOf(err))
			assert.ErrorIs(t, err, tt.inner)
		})
	}
}
