package constants

// Top-level sections of a marksheet record.
const (
	SectionCandidateDetails = "candidate_details"
	SectionSubjects         = "subjects"
	SectionOverallResult    = "overall_result"
	SectionDocumentInfo     = "document_info"
)

// Sections lists the four sections in canonical order.
var Sections = []string{
	SectionCandidateDetails,
	SectionSubjects,
	SectionOverallResult,
	SectionDocumentInfo,
}

// Leaf keys.
const (
	KeyValue      = "value"
	KeyConfidence = "confidence"
)

// Field keys that drive scoring and validation.
const (
	FieldName           = "name"
	FieldFatherName     = "father_name"
	FieldMotherName     = "mother_name"
	FieldRollNo         = "roll_no"
	FieldRegistrationNo = "registration_no"
	FieldDOB            = "dob"
	FieldExamYear       = "exam_year"
	FieldBoardUniv      = "board_university"
	FieldInstitution    = "institution"

	FieldSubject         = "subject"
	FieldMaxMarks        = "max_marks"
	FieldObtainedMarks   = "obtained_marks"
	FieldMaxCredits      = "max_credits"
	FieldObtainedCredits = "obtained_credits"
	FieldGrade           = "grade"

	FieldResult        = "result"
	FieldPercentage    = "percentage"
	FieldCGPA          = "cgpa"
	FieldTotalMarks    = "total_marks"
	FieldMaxTotalMarks = "max_total_marks"

	FieldIssueDate    = "issue_date"
	FieldIssuePlace   = "issue_place"
	FieldDocumentType = "document_type"
	FieldSerialNumber = "serial_number"
)

// UnknownValue is the sentinel used when a required value cannot be recovered.
const UnknownValue = "Unknown"

// MinimalConfidence is assigned to sentinel values in the minimal record.
const MinimalConfidence = 0.1
