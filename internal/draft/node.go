// Package draft holds the loosely-typed record produced by the structuring
// step before it is scored and validated.
package draft

import (
	"encoding/json"
	"math"

	"github.com/joseph-ayodele/marksheet-extractor/constants"
)

// Node is one of Leaf, Section or List.
type Node interface {
	isNode()
}

// Leaf is a field value with its confidence. Value is a JSON scalar
// (string, json.Number, bool) or nil.
type Leaf struct {
	Value      any
	Confidence float64
}

// Section maps field names to nodes.
type Section map[string]Node

// List is an ordered sequence of nodes.
type List []Node

func (Leaf) isNode()    {}
func (Section) isNode() {}
func (List) isNode()    {}

// MarshalJSON writes {"value": ..., "confidence": ...}. A confidence that is
// not a finite number is written as null.
func (l Leaf) MarshalJSON() ([]byte, error) {
	var conf any = l.Confidence
	if math.IsNaN(l.Confidence) || math.IsInf(l.Confidence, 0) {
		conf = nil
	}
	return json.Marshal(map[string]any{
		constants.KeyValue:      l.Value,
		constants.KeyConfidence: conf,
	})
}

// Clone returns a deep copy of s.
func (s Section) Clone() Section {
	if s == nil {
		return nil
	}
	out := make(Section, len(s))
	for k, n := range s {
		out[k] = cloneNode(n)
	}
	return out
}

// Clone returns a deep copy of l.
func (l List) Clone() List {
	if l == nil {
		return nil
	}
	out := make(List, len(l))
	for i, n := range l {
		out[i] = cloneNode(n)
	}
	return out
}

func cloneNode(n Node) Node {
	switch v := n.(type) {
	case Section:
		return v.Clone()
	case List:
		return v.Clone()
	default:
		return n
	}
}

// Leaf returns the named child when it is a Leaf.
func (s Section) Leaf(key string) (Leaf, bool) {
	l, ok := s[key].(Leaf)
	return l, ok
}

// Section returns the named child when it is a Section.
func (s Section) Section(key string) (Section, bool) {
	sec, ok := s[key].(Section)
	return sec, ok
}

// List returns the named child when it is a List.
func (s Section) List(key string) (List, bool) {
	l, ok := s[key].(List)
	return l, ok
}

// NewRecord returns a draft with the four sections present and empty.
func NewRecord() Section {
	return Section{
		constants.SectionCandidateDetails: Section{},
		constants.SectionSubjects:         List{},
		constants.SectionOverallResult:    Section{},
		constants.SectionDocumentInfo:     Section{},
	}
}
