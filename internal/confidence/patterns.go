package confidence

import "regexp"

// Pattern set names.
const (
	SetRollNumber         = "roll_number"
	SetRegistrationNumber = "registration_number"
	SetDate               = "date"
	SetPercentage         = "percentage"
	SetGrade              = "grade"
	SetMarks              = "marks"
)

// patternSets are matched case-insensitively anywhere in the stringified value.
var patternSets = map[string][]*regexp.Regexp{
	SetRollNumber: compile(
		`\b\d{4,12}\b`,
		`\b[A-Z]{1,3}\d{4,8}\b`,
		`\b\d{2}[A-Z]{2}\d{4,6}\b`,
	),
	SetRegistrationNumber: compile(
		`\b[A-Z]{2,4}\d{6,10}\b`,
		`\b\d{4,6}/\d{2,4}\b`,
		`\bREG\d{6,10}\b`,
	),
	SetDate: compile(
		`\b\d{1,2}[-/]\d{1,2}[-/]\d{4}\b`,
		`\b\d{4}[-/]\d{1,2}[-/]\d{1,2}\b`,
		`\b\d{1,2}\s+[A-Za-z]{3,9}\s+\d{4}\b`,
	),
	SetPercentage: compile(
		`\b\d{1,3}\.\d{1,2}%?\b`,
		`\b\d{1,3}%\b`,
	),
	SetGrade: compile(
		`\b[A-F][+-]?\b`,
		`\bFirst\s+Division\b`,
		`\bSecond\s+Division\b`,
		`\bThird\s+Division\b`,
		`\bPass\b`,
		`\bFail\b`,
	),
	// not dispatched to any field; reachable through PatternScore
	SetMarks: compile(
		`\b\d{1,3}\s*/\s*\d{1,3}\b`,
		`\b\d{1,3}\b`,
	),
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

// matchesSet reports whether any pattern of the named set occurs in s.
// Unknown sets never match.
func matchesSet(set, s string) bool {
	for _, re := range patternSets[set] {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
