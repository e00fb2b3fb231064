// Package record defines the validated marksheet record returned to callers.
package record

// FieldValue is an extracted value and its confidence in [0,1].
// Value is a string, a json.Number or nil.
type FieldValue struct {
	Value      any     `json:"value"`
	Confidence float64 `json:"confidence"`
}

type CandidateDetails struct {
	Name            FieldValue  `json:"name"`
	FatherName      *FieldValue `json:"father_name,omitempty"`
	MotherName      *FieldValue `json:"mother_name,omitempty"`
	RollNo          FieldValue  `json:"roll_no"`
	RegistrationNo  *FieldValue `json:"registration_no,omitempty"`
	DOB             *FieldValue `json:"dob,omitempty"`
	ExamYear        *FieldValue `json:"exam_year,omitempty"`
	BoardUniversity *FieldValue `json:"board_university,omitempty"`
	Institution     *FieldValue `json:"institution,omitempty"`
}

type Subject struct {
	Subject         FieldValue  `json:"subject"`
	MaxMarks        *FieldValue `json:"max_marks,omitempty"`
	ObtainedMarks   FieldValue  `json:"obtained_marks"`
	MaxCredits      *FieldValue `json:"max_credits,omitempty"`
	ObtainedCredits *FieldValue `json:"obtained_credits,omitempty"`
	Grade           *FieldValue `json:"grade,omitempty"`
}

type OverallResult struct {
	Result        *FieldValue `json:"result,omitempty"`
	Grade         *FieldValue `json:"grade,omitempty"`
	Percentage    *FieldValue `json:"percentage,omitempty"`
	CGPA          *FieldValue `json:"cgpa,omitempty"`
	TotalMarks    *FieldValue `json:"total_marks,omitempty"`
	MaxTotalMarks *FieldValue `json:"max_total_marks,omitempty"`
}

type DocumentInfo struct {
	IssueDate    *FieldValue `json:"issue_date,omitempty"`
	IssuePlace   *FieldValue `json:"issue_place,omitempty"`
	DocumentType *FieldValue `json:"document_type,omitempty"`
	SerialNumber *FieldValue `json:"serial_number,omitempty"`
}

// ExtractedRecord is the typed marksheet. Subjects is never nil once the
// record has been through validation.
type ExtractedRecord struct {
	CandidateDetails CandidateDetails `json:"candidate_details"`
	Subjects         []Subject        `json:"subjects"`
	OverallResult    OverallResult    `json:"overall_result"`
	DocumentInfo     DocumentInfo     `json:"document_info"`
}

// Summary keys.
const (
	SummaryName        = "name"
	SummaryRollNo      = "roll_no"
	SummarySubjectsAvg = "subjects_avg"
	SummaryResult      = "result"
)

// SummaryKeys lists the summary keys in display order.
var SummaryKeys = []string{SummaryName, SummaryRollNo, SummarySubjectsAvg, SummaryResult}

// Summary reports the confidences reviewers look at first: name, roll number,
// the mean subject-name confidence and the overall result. subjects_avg and
// result are omitted when the record has no subjects or no result.
func (r ExtractedRecord) Summary() map[string]float64 {
	s := map[string]float64{
		SummaryName:   r.CandidateDetails.Name.Confidence,
		SummaryRollNo: r.CandidateDetails.RollNo.Confidence,
	}
	if len(r.Subjects) > 0 {
		var sum float64
		for _, sub := range r.Subjects {
			sum += sub.Subject.Confidence
		}
		s[SummarySubjectsAvg] = sum / float64(len(r.Subjects))
	}
	if r.OverallResult.Result != nil {
		s[SummaryResult] = r.OverallResult.Result.Confidence
	}
	return s
}
