package constants

import "strings"

// Media types handed to the recognizer.
const (
	MediaTypePDF  = "application/pdf"
	MediaTypeJPEG = "image/jpeg"
	MediaTypePNG  = "image/png"
)

// AllowedExtensions holds the default allowed file extensions for marksheet uploads.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
}

// DefaultMaxFileSize is the upload ceiling used when config leaves it unset.
const DefaultMaxFileSize int64 = 10 << 20

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MediaTypeForExt maps an extension to the media type hint passed to OCR.
func MediaTypeForExt(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return MediaTypePDF
	case "jpg", "jpeg":
		return MediaTypeJPEG
	case "png":
		return MediaTypePNG
	default:
		return ""
	}
}
