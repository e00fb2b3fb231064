package llm

import (
	"strings"

	"github.com/joseph-ayodele/marksheet-extractor/internal/common"
	"github.com/joseph-ayodele/marksheet-extractor/internal/draft"
)

// ParseResponse extracts the JSON object from a model reply and repairs it.
// The object spans from the first '{' to the last '}'; anything around it is
// ignored. A reply without braces is a ResponseFormatError and a fragment that
// does not parse is an InvalidJSON error carrying the fragment.
func ParseResponse(raw string) (draft.Section, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < 0 {
		return nil, common.NewExtractionError(common.KindResponseFormat, "no JSON object in model reply", nil)
	}

	fragment := ""
	if end >= start {
		fragment = raw[start : end+1]
	}
	sec, err := draft.Decode([]byte(fragment))
	if err != nil {
		ee := common.NewExtractionError(common.KindInvalidJSON, "model reply is not valid JSON", err)
		ee.Fragment = fragment
		return nil, ee
	}
	return draft.Repair(sec), nil
}
