package ocr

import "context"

// Box is a word bounding box in page pixels.
type Box struct {
	X, Y, W, H int
}

// RecognizedText is the output of one recognition call. It is not modified after it is returned.
type RecognizedText struct {
	Text            string
	TokenConfidence map[string]float64 // word -> confidence in [0,1]; last occurrence wins
	Boxes           []Box
	Pages           int
	Method          string // "image-ocr" | "pdf-text" | "pdf-ocr" | "pdf-mixed"
	Warnings        []string
}

// Recognizer turns document bytes into text. mediaType is a hint such as
// "application/pdf" or "image/png"; an empty hint means sniff the content.
type Recognizer interface {
	Recognize(ctx context.Context, data []byte, mediaType string) (RecognizedText, error)
}
