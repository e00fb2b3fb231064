package ocr

import (
	"strconv"
	"strings"
)

// tesseract TSV columns
const (
	tsvLeft   = 6
	tsvTop    = 7
	tsvWidth  = 8
	tsvHeight = 9
	tsvConf   = 10
	tsvText   = 11
	tsvCols   = 12
)

// parseTSV reads tesseract's TSV output into word confidences and boxes.
// Rows without text or with a non-positive confidence are skipped.
func parseTSV(out []byte, tokens map[string]float64) []Box {
	var boxes []Box
	for i, ln := range strings.Split(string(out), "\n") {
		if i == 0 || strings.TrimSpace(ln) == "" {
			continue
		}
		cols := strings.Split(strings.TrimRight(ln, "\r"), "\t")
		if len(cols) < tsvCols {
			continue
		}
		word := strings.TrimSpace(cols[tsvText])
		if word == "" {
			continue
		}
		conf, err := strconv.ParseFloat(strings.TrimSpace(cols[tsvConf]), 64)
		if err != nil || conf <= 0 {
			continue
		}
		tokens[word] = min(conf/100.0, 1.0)
		boxes = append(boxes, Box{
			X: atoi(cols[tsvLeft]),
			Y: atoi(cols[tsvTop]),
			W: atoi(cols[tsvWidth]),
			H: atoi(cols[tsvHeight]),
		})
	}
	return boxes
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
