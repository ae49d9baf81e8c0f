package rag_service

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/solenne/bistoury/rag_type"
)

// OCRNormalizer turns photographed or scanned pages into text. The raster is
// preprocessed for recognition accuracy first; if any enhancement stage
// fails the plain grayscale conversion is used instead, so a bad scan
// degrades accuracy rather than aborting ingestion.
type OCRNormalizer struct {
	languages []string
	logger    *slog.Logger

	// enhance is swappable so tests can force the fallback path.
	enhance func(*image.Gray) (*image.Gray, error)
}

func NewOCRNormalizer(languages []string, logger *slog.Logger) *OCRNormalizer {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	return &OCRNormalizer{
		languages: languages,
		logger:    logger,
		enhance:   enhance,
	}
}

// Normalize decodes image bytes and returns the preprocessed grayscale
// raster. Only an undecodable input yields *rag_type.PreprocessingError;
// callers treat that as "no text recovered", not as a fatal batch error.
func (o *OCRNormalizer) Normalize(filename string, data []byte) (*image.Gray, error) {
	gray, err := decodeGray(data)
	if err != nil {
		return nil, &rag_type.PreprocessingError{Filename: filename, Err: err}
	}
	return o.normalizeGray(filename, gray), nil
}

func (o *OCRNormalizer) normalizeGray(filename string, gray *image.Gray) *image.Gray {
	enhanced, err := o.enhance(gray)
	if err != nil {
		o.logger.Warn("Image preprocessing failed, falling back to plain grayscale",
			slog.String("filename", filename),
			slog.String("error", err.Error()))
		return gray
	}
	return enhanced
}

// ExtractText recognizes text on an uploaded image. An image with no
// detectable text yields an empty string.
func (o *OCRNormalizer) ExtractText(filename string, data []byte) (string, error) {
	raster, err := o.Normalize(filename, data)
	if err != nil {
		return "", err
	}
	return o.recognize(filename, raster), nil
}

// ExtractTextFromImage recognizes text on an already decoded raster, used
// for pages rasterized out of scanned PDFs.
func (o *OCRNormalizer) ExtractTextFromImage(filename string, img image.Image) string {
	raster := o.normalizeGray(filename, grayOf(img))
	return o.recognize(filename, raster)
}

// recognize runs tesseract over the raster and joins paragraph-level blocks
// with newlines. Recognition failures are logged and reported as empty text.
func (o *OCRNormalizer) recognize(filename string, raster *image.Gray) string {
	encoded, err := encodePNG(raster)
	if err != nil {
		o.logger.Error("Failed to encode raster for recognition",
			slog.String("filename", filename),
			slog.String("error", err.Error()))
		return ""
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(o.languages...); err != nil {
		o.logger.Error("Failed to set OCR languages",
			slog.String("error", err.Error()))
		return ""
	}
	if err := client.SetImageFromBytes(encoded); err != nil {
		o.logger.Error("Failed to load raster into OCR engine",
			slog.String("filename", filename),
			slog.String("error", err.Error()))
		return ""
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_PARA)
	if err != nil {
		o.logger.Warn("Text recognition failed",
			slog.String("filename", filename),
			slog.String("error", err.Error()))
		return ""
	}

	paragraphs := make([]string, 0, len(boxes))
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if text == "" {
			continue
		}
		paragraphs = append(paragraphs, text)
	}

	o.logger.Debug("Recognized text from image",
		slog.String("filename", filename),
		slog.Int("paragraphs", len(paragraphs)))

	return strings.Join(paragraphs, "\n")
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
