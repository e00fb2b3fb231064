// Package confidence recalibrates the confidences of a draft record from the
// provider's own estimate, token-level recognition confidence and how well
// each value fits the shape expected for its field.
package confidence

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/marksheet-extractor/constants"
	"github.com/joseph-ayodele/marksheet-extractor/internal/draft"
)

var (
	candidateScorers = map[string]scorer{
		constants.FieldName:           scoreName,
		constants.FieldFatherName:     scoreName,
		constants.FieldMotherName:     scoreName,
		constants.FieldRollNo:         patternScorer(SetRollNumber),
		constants.FieldRegistrationNo: patternScorer(SetRegistrationNumber),
		constants.FieldDOB:            scoreDate,
	}
	subjectScorers = map[string]scorer{
		constants.FieldObtainedMarks: scoreMarks,
		constants.FieldMaxMarks:      scoreMarks,
		constants.FieldGrade:         patternScorer(SetGrade),
	}
	resultScorers = map[string]scorer{
		constants.FieldPercentage:    patternScorer(SetPercentage),
		constants.FieldResult:        patternScorer(SetGrade),
		constants.FieldGrade:         patternScorer(SetGrade),
		constants.FieldTotalMarks:    scoreMarks,
		constants.FieldMaxTotalMarks: scoreMarks,
	}
	documentScorers = map[string]scorer{
		constants.FieldIssueDate: scoreDate,
	}
)

// Engine is stateless and safe for concurrent use.
type Engine struct {
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Recalibrate returns a copy of d with every leaf confidence replaced by the
// combined score. Values, keys and non-leaf children are unchanged and d is
// never modified. It fails when a section has the wrong shape; a panic while
// scoring is returned as an error.
func (e *Engine) Recalibrate(d draft.Section, tokens map[string]float64, text string) (out draft.Section, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("recalibration panic: %v", r)
		}
	}()

	ev := evidence{tokens: tokens, text: text, lowerText: strings.ToLower(text)}
	out = d.Clone()
	scored := 0

	for _, name := range constants.Sections {
		n, ok := out[name]
		if !ok {
			continue
		}
		if name == constants.SectionSubjects {
			list, ok := n.(draft.List)
			if !ok {
				return nil, fmt.Errorf("section %q is %s, want list", name, kindOf(n))
			}
			for i, item := range list {
				sec, ok := item.(draft.Section)
				if !ok {
					return nil, fmt.Errorf("subjects[%d] is %s, want section", i, kindOf(item))
				}
				scored += scoreSection(ev, sec, subjectScorers)
			}
			continue
		}

		sec, ok := n.(draft.Section)
		if !ok {
			return nil, fmt.Errorf("section %q is %s, want section", name, kindOf(n))
		}
		scored += scoreSection(ev, sec, scorersFor(name))
	}

	e.logger.Debug("confidence.recalibrate.ok", "fields", scored, "tokens", len(tokens))
	return out, nil
}

func scorersFor(section string) map[string]scorer {
	switch section {
	case constants.SectionCandidateDetails:
		return candidateScorers
	case constants.SectionOverallResult:
		return resultScorers
	case constants.SectionDocumentInfo:
		return documentScorers
	default:
		return nil
	}
}

// scoreSection rescores the leaves of sec in place and returns how many it touched.
func scoreSection(ev evidence, sec draft.Section, scorers map[string]scorer) int {
	n := 0
	for field, node := range sec {
		leaf, ok := node.(draft.Leaf)
		if !ok {
			continue
		}
		score, ok := scorers[field]
		if !ok {
			score = scoreText
		}
		leaf.Confidence = clamp01(score(ev, leaf.Value, providerConfidence(leaf.Confidence)))
		sec[field] = leaf
		n++
	}
	return n
}

func kindOf(n draft.Node) string {
	switch n.(type) {
	case draft.Leaf:
		return "a field"
	case draft.Section:
		return "a section"
	case draft.List:
		return "a list"
	default:
		return fmt.Sprintf("%T", n)
	}
}
