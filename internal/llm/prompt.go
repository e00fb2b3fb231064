package llm

import (
	"encoding/json"
	"strings"
)

// SystemPrompt is sent as the system message by vendors that support one.
const SystemPrompt = "You are an expert data extraction assistant."

const promptInstructions = `You extract structured data from scanned educational marksheets.
Read the OCR text below and convert it into the JSON structure shown under OUTPUT FORMAT.

RULES:
1. Extract every piece of information you can find, even when it is hard to read.
2. Give every field a confidence between 0.0 and 1.0.
3. When a field is absent, set its value to null and its confidence to 0.0.
4. Base confidence on how clear the text is, the surrounding context and the OCR word confidences.
5. Prefer underestimating confidence to overestimating it.`

const promptOutputFormat = `{
  "candidate_details": {
    "name": {"value": "Full Name", "confidence": 0.95},
    "father_name": {"value": "Father's Name", "confidence": 0.90},
    "mother_name": {"value": "Mother's Name", "confidence": 0.90},
    "roll_no": {"value": "Roll Number", "confidence": 0.98},
    "registration_no": {"value": "Registration Number", "confidence": 0.95},
    "dob": {"value": "YYYY-MM-DD", "confidence": 0.85},
    "exam_year": {"value": "Year", "confidence": 0.90},
    "board_university": {"value": "Board or University", "confidence": 0.92},
    "institution": {"value": "School or College", "confidence": 0.88}
  },
  "subjects": [
    {
      "subject": {"value": "Subject Name", "confidence": 0.95},
      "max_marks": {"value": 100, "confidence": 0.98},
      "obtained_marks": {"value": 85, "confidence": 0.96},
      "max_credits": {"value": 4, "confidence": 0.90},
      "obtained_credits": {"value": 3.5, "confidence": 0.88},
      "grade": {"value": "A", "confidence": 0.92}
    }
  ],
  "overall_result": {
    "result": {"value": "PASS or FAIL", "confidence": 0.98},
    "grade": {"value": "First Division, A+, ...", "confidence": 0.90},
    "percentage": {"value": 78.5, "confidence": 0.85},
    "cgpa": {"value": 8.5, "confidence": 0.80},
    "total_marks": {"value": 425, "confidence": 0.90},
    "max_total_marks": {"value": 500, "confidence": 0.95}
  },
  "document_info": {
    "issue_date": {"value": "YYYY-MM-DD", "confidence": 0.80},
    "issue_place": {"value": "Place", "confidence": 0.75},
    "document_type": {"value": "Marksheet or Certificate", "confidence": 0.90},
    "serial_number": {"value": "Serial Number", "confidence": 0.85}
  }
}`

const promptGuidelines = `CONFIDENCE GUIDELINES:
- Combine OCR word confidence, pattern fit and context.
- Names: 0.80-0.95 depending on OCR clarity.
- Numbers such as marks and roll numbers: 0.90-0.98.
- Dates: 0.70-0.90 depending on format.
- Grades: 0.85-0.95.
- Derived values such as percentage: 0.80-0.90.`

// BuildPrompt renders the structuring prompt. The output depends only on its
// inputs: token confidences are written as indented JSON with sorted keys.
func BuildPrompt(text string, tokens map[string]float64) string {
	if tokens == nil {
		tokens = map[string]float64{}
	}
	tok, err := json.MarshalIndent(tokens, "", "  ")
	if err != nil {
		// only reachable with NaN or Inf confidences
		tok = []byte("{}")
	}

	var b strings.Builder
	b.WriteString(promptInstructions)
	b.WriteString("\n\nOCR TEXT:\n")
	b.WriteString(text)
	b.WriteString("\n\nOCR WORD CONFIDENCES:\n")
	b.Write(tok)
	b.WriteString("\n\nOUTPUT FORMAT (JSON):\n")
	b.WriteString(promptOutputFormat)
	b.WriteString("\n\n")
	b.WriteString(promptGuidelines)
	b.WriteString("\n\nReturn ONLY the JSON object, with no other text or explanation.\n")
	return b.String()
}
