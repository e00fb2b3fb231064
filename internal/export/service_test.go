package export

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/marksheet-extractor/constants"
	"github.com/joseph-ayodele/marksheet-extractor/internal/async"
	"github.com/joseph-ayodele/marksheet-extractor/internal/record"
	"github.com/joseph-ayodele/marksheet-extractor/internal/repository"
)

func sampleRecord() record.ExtractedRecord {
	return record.ExtractedRecord{
		CandidateDetails: record.CandidateDetails{
			Name:   record.FieldValue{Value: "RAHUL SHARMA", Confidence: 0.84},
			RollNo: record.FieldValue{Value: "AB123456", Confidence: 0.96},
		},
		Subjects: []record.Subject{},
		OverallResult: record.OverallResult{
			Result:     &record.FieldValue{Value: "PASS", Confidence: 0.9},
			Percentage: &record.FieldValue{Value: json.Number("78.5"), Confidence: 0.8},
		},
	}
}

func openXLSX(t *testing.T, b []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestBatchXLSX(t *testing.T) {
	rec := sampleRecord()
	res := async.BatchResult{
		Status: "completed",
		Total:  2,
		Results: []async.BatchItem{{
			Filename:          "a.png",
			Status:            constants.ItemStatusSuccess,
			Data:              &rec,
			ConfidenceSummary: map[string]float64{"name": 0.84, "roll_no": 0.96, "result": 0.9},
			ModelUsed:         "gemini-gemini-pro",
		}},
		Errors: []async.BatchError{{Filename: "b.pdf", Kind: "NoTextExtracted", Error: "no text"}},
	}

	out, err := NewService(nil, nil).BatchXLSX(res)
	require.NoError(t, err)

	f := openXLSX(t, out)
	assert.Equal(t, []string{batchSheet}, f.GetSheetList())

	rows, err := f.GetRows(batchSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, headers(), rows[0])

	assert.Equal(t, []string{"a.png", "success", "gemini-gemini-pro", "RAHUL SHARMA", "AB123456", "PASS", "78.5", "0.84", "0.96", "", "0.9"}, rows[1])
	assert.Equal(t, "b.pdf", rows[2][0])
	assert.Equal(t, "error", rows[2][1])
	assert.Equal(t, "no text", rows[2][len(rows[2])-1])
	assert.Len(t, rows[2], len(headers()))
}

func TestRunsXLSX(t *testing.T) {
	ctx := context.Background()
	repo, err := repository.OpenSQLite(ctx, "", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	recJSON, err := json.Marshal(sampleRecord())
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, repository.ExtractionRun{
		ID:        uuid.New(),
		Filename:  "stored.png",
		Status:    constants.RunStatusSucceeded,
		Model:     "openai-gpt-3.5-turbo",
		Record:    recJSON,
		Summary:   json.RawMessage(`{"name":0.5}`),
		CreatedAt: time.Now(),
	}))

	out, err := NewService(repo, nil).RunsXLSX(ctx, 10)
	require.NoError(t, err)

	rows, err := openXLSX(t, out).GetRows(runsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "stored.png", rows[1][0])
	assert.Equal(t, "SUCCEEDED", rows[1][1])
	assert.Equal(t, "RAHUL SHARMA", rows[1][3])
	assert.Equal(t, "0.5", rows[1][7])

	_, err = NewService(nil, nil).RunsXLSX(ctx, 10)
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.Equal(t, "a…", truncate("aéé", 3))
	assert.True(t, utf8.ValidString(truncate(strings.Repeat("日", 200), 300)))
}
