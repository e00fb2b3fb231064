package ocr

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

func (e *Extractor) recognizeImage(ctx context.Context, path string) (RecognizedText, error) {
	args := e.tesseractArgs(path)

	// tesseract <file> stdout -l <lang> --psm N --oem N
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return RecognizedText{}, fmt.Errorf("tesseract: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}
	res := RecognizedText{
		Text:            Normalize(string(out)),
		TokenConfidence: map[string]float64{},
		Pages:           1,
		Method:          "image-ocr",
	}

	tsv, _, err := e.runner.Run(ctx, e.cfg.Tesseract, append(args[:len(args):len(args)], "tsv")...)
	if err != nil {
		e.logger.Warn("ocr.tsv.failed", "path", path, "error", err)
		res.Warnings = append(res.Warnings, "tesseract tsv: "+err.Error())
		return res, nil
	}
	res.Boxes = parseTSV(tsv, res.TokenConfidence)
	return res, nil
}

func (e *Extractor) tesseractArgs(path string) []string {
	args := []string{path, "stdout", "-l", e.cfg.Lang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return args
}
