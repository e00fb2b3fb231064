package draft

import (
	"math"

	"github.com/joseph-ayodele/marksheet-extractor/constants"
)

// Repair makes a decoded draft structurally usable. It inserts missing
// sections, replaces a subjects value that is not a List with an empty List,
// and sets every leaf confidence that is not a number in [0,1] to 0.0.
// Sections of the wrong kind other than subjects are left for validation.
// Repair never fails; it modifies s in place and returns it.
func Repair(s Section) Section {
	if s == nil {
		s = Section{}
	}
	for _, name := range constants.Sections {
		n, ok := s[name]
		if name == constants.SectionSubjects {
			if _, isList := n.(List); !isList {
				s[name] = List{}
			}
			continue
		}
		if !ok || n == nil {
			s[name] = Section{}
		}
	}
	for k, n := range s {
		s[k] = clampNode(n)
	}
	return s
}

func clampNode(n Node) Node {
	switch v := n.(type) {
	case Leaf:
		v.Confidence = ClampConfidence(v.Confidence)
		return v
	case Section:
		for k, c := range v {
			v[k] = clampNode(c)
		}
		return v
	case List:
		for i, c := range v {
			v[i] = clampNode(c)
		}
		return v
	default:
		return n
	}
}

// ClampConfidence maps NaN and values outside [0,1] to 0.0.
func ClampConfidence(c float64) float64 {
	if math.IsNaN(c) || c < 0 || c > 1 {
		return 0.0
	}
	return c
}
