package confidence

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/marksheet-extractor/constants"
)

// defaultProviderConfidence stands in for a leaf that never had its
// confidence repaired.
const defaultProviderConfidence = 0.5

var reNameShape = regexp.MustCompile(`^[A-Za-z\s.]+$`)

// Accepted date layouts: YYYY-MM-DD, DD/MM/YYYY, DD-MM-YYYY, DD Month YYYY.
var dateLayouts = []string{"2006-1-2", "2/1/2006", "2-1-2006", "2 January 2006"}

// evidence is what a scorer checks a value against.
type evidence struct {
	tokens    map[string]float64
	text      string
	lowerText string
}

type scorer func(ev evidence, value any, p float64) float64

func patternScorer(set string) scorer {
	return func(ev evidence, value any, p float64) float64 {
		return scorePattern(ev, set, value, p)
	}
}

func scoreName(ev evidence, value any, p float64) float64 {
	s := stringify(value)
	if isEmpty(value) || s == constants.UnknownValue {
		return 0.0
	}
	shape := 0.4
	if reNameShape.MatchString(s) {
		shape = 0.8
	}
	return 0.4*p + 0.3*ev.meanToken(s) + 0.2*ev.presenceLower(s, 0.3) + 0.1*shape
}

func scorePattern(ev evidence, set string, value any, p float64) float64 {
	if isEmpty(value) {
		return 0.0
	}
	s := stringify(value)
	conform := 0.1
	if matchesSet(set, s) {
		conform = 0.9
	}
	return 0.4*p + 0.4*conform + 0.2*ev.presenceLower(s, 0.2)
}

func scoreDate(ev evidence, value any, p float64) float64 {
	if isEmpty(value) {
		return 0.0
	}
	s := stringify(value)
	format := 0.1
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			format = 0.9
			break
		}
	}
	return 0.3*p + 0.4*format + 0.3*scorePattern(ev, SetDate, value, p)
}

func scoreMarks(ev evidence, value any, p float64) float64 {
	if value == nil {
		return 0.0
	}
	s := stringify(value)
	numeric := 0.1
	if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		switch {
		case n >= 0 && n <= 1000:
			numeric = 0.9
		case n > 1000:
			numeric = 0.5
		}
	}
	presence := 0.3
	if strings.Contains(ev.text, s) {
		presence = 1.0
	}
	return 0.4*p + 0.4*numeric + 0.2*presence
}

func scoreText(ev evidence, value any, p float64) float64 {
	if isEmpty(value) {
		return 0.0
	}
	s := stringify(value)
	return 0.5*p + 0.3*ev.meanToken(s) + 0.2*ev.presenceLower(s, 0.2)
}

// meanToken averages the recognition confidence of each whitespace-separated
// word of s. Unknown words count as 0.5, and so does a value with no words.
func (ev evidence) meanToken(s string) float64 {
	words := strings.Fields(s)
	if len(words) == 0 {
		return 0.5
	}
	var sum float64
	for _, w := range words {
		c, ok := ev.tokens[w]
		if !ok {
			c = 0.5
		}
		sum += c
	}
	return sum / float64(len(words))
}

func (ev evidence) presenceLower(s string, miss float64) float64 {
	if strings.Contains(ev.lowerText, strings.ToLower(s)) {
		return 1.0
	}
	return miss
}

// stringify renders a leaf value the way it would appear in source text.
// Numbers keep their literal form, so 85.0 stays "85.0".
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// isEmpty treats null, "", false and numeric zero as no value.
func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	case float64:
		return t == 0
	case int:
		return t == 0
	default:
		return false
	}
}

func clamp01(f float64) float64 {
	if math.IsNaN(f) {
		return 0.0
	}
	return math.Max(0, math.Min(1, f))
}

// PatternScore scores value against the named pattern set with provider
// confidence p, the same way the identifier fields are scored.
func PatternScore(set string, value any, p float64, text string) float64 {
	ev := evidence{text: text, lowerText: strings.ToLower(text)}
	return clamp01(scorePattern(ev, set, value, providerConfidence(p)))
}

func providerConfidence(p float64) float64 {
	if math.IsNaN(p) {
		return defaultProviderConfidence
	}
	return p
}
