package ocr

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/marksheet-extractor/constants"
)

// recognizePDF uses the embedded text layer page by page and falls back to
// rasterizing and OCRing pages that have none.
func (e *Extractor) recognizePDF(ctx context.Context, data []byte, tmpDir string) (RecognizedText, error) {
	pages, err := e.pageCount(data)
	if err != nil {
		return RecognizedText{}, fmt.Errorf("read pdf: %w", err)
	}
	if pages == 0 {
		return RecognizedText{}, errors.New("pdf has no pages")
	}

	res := RecognizedText{TokenConfidence: map[string]float64{}}
	if e.cfg.MaxPages > 0 && pages > e.cfg.MaxPages {
		res.Warnings = append(res.Warnings, fmt.Sprintf("only the first %d of %d pages were read", e.cfg.MaxPages, pages))
		pages = e.cfg.MaxPages
	}
	res.Pages = pages

	path, err := writeInput(tmpDir, constants.MediaTypePDF, data)
	if err != nil {
		return RecognizedText{}, err
	}

	texts, warns := e.pdfToText(ctx, path, pages)
	res.Warnings = append(res.Warnings, warns...)

	var parts []string
	var textPages, ocrPages int
	var ocrErrs []error
	for i := 0; i < pages; i++ {
		pageText := ""
		if i < len(texts) {
			pageText = Normalize(texts[i])
		}
		if pageText != "" {
			for _, w := range strings.Fields(pageText) {
				res.TokenConfidence[w] = e.cfg.PDFTextConfidence
			}
			parts = append(parts, pageText)
			textPages++
			continue
		}

		img, err := e.rasterizePage(ctx, path, i+1, tmpDir)
		if err == nil {
			var pr RecognizedText
			pr, err = e.recognizeImage(ctx, img)
			if err == nil {
				for w, c := range pr.TokenConfidence {
					res.TokenConfidence[w] = c
				}
				res.Boxes = append(res.Boxes, pr.Boxes...)
				res.Warnings = append(res.Warnings, pr.Warnings...)
				if pr.Text != "" {
					parts = append(parts, pr.Text)
				}
				ocrPages++
				continue
			}
		}
		ocrErrs = append(ocrErrs, fmt.Errorf("page %d: %w", i+1, err))
		res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: %v", i+1, err))
	}

	if len(parts) == 0 && len(ocrErrs) > 0 {
		return RecognizedText{}, errors.Join(ocrErrs...)
	}

	switch {
	case ocrPages == 0:
		res.Method = "pdf-text"
	case textPages == 0:
		res.Method = "pdf-ocr"
	default:
		res.Method = "pdf-mixed"
	}
	res.Text = strings.Join(parts, "\n")
	return res, nil
}

// pdfToText returns the text layer split per page. A failure is reported as a
// warning so every page goes through OCR instead.
func (e *Extractor) pdfToText(ctx context.Context, path string, pages int) ([]string, []string) {
	// pdftotext -layout -enc UTF-8 -eol unix -l N <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext,
		"-layout", "-enc", "UTF-8", "-eol", "unix", "-l", strconv.Itoa(pages), path, "-")
	if err != nil {
		e.logger.Warn("ocr.pdftotext.failed", "error", err)
		return nil, []string{fmt.Sprintf("pdftotext: %v: %s", err, truncate(strings.TrimSpace(string(errb)), 256))}
	}
	// pages are separated by form feeds
	return strings.Split(string(out), "\f"), nil
}

func (e *Extractor) rasterizePage(ctx context.Context, path string, page int, tmpDir string) (string, error) {
	prefix := filepath.Join(tmpDir, "page"+strconv.Itoa(page))
	n := strconv.Itoa(page)
	// pdftoppm -r 300 -png -f N -l N <in.pdf> <tmp/pageN>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm,
		"-r", strconv.Itoa(e.cfg.DPI), "-png", "-f", n, "-l", n, path, prefix)
	if err != nil {
		return "", fmt.Errorf("pdftoppm: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 256))
	}
	matches, _ := filepath.Glob(prefix + "-*.png")
	if len(matches) == 0 {
		return "", errors.New("pdftoppm produced no image")
	}
	sort.Strings(matches)
	return matches[0], nil
}
