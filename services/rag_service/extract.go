package rag_service

import (
	"bytes"
	"log/slog"
	"strings"

	"code.sajari.com/docconv/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"

	"github.com/solenne/bistoury/rag_type"
)

// DocumentExtractor normalizes uploaded documents into plain text. An empty
// result is valid — a blank page contributes an empty string, it is not an
// error and not a skipped page. Only a byte stream that cannot be parsed as
// a document at all fails.
type DocumentExtractor struct {
	logger *slog.Logger
	ocr    *OCRNormalizer
}

func NewDocumentExtractor(logger *slog.Logger, ocr *OCRNormalizer) *DocumentExtractor {
	return &DocumentExtractor{
		logger: logger,
		ocr:    ocr,
	}
}

// Extract dispatches on the document's declared media kind.
func (e *DocumentExtractor) Extract(doc rag_type.Document) (string, error) {
	switch doc.MediaKind {
	case rag_type.MediaKindPDF:
		return e.ExtractTextFromPDF(doc.Filename, doc.Content)
	case rag_type.MediaKindWord:
		return e.ExtractTextFromWord(doc.Filename, doc.Content)
	case rag_type.MediaKindHTML:
		return e.ExtractTextFromHTML(doc.Filename, doc.Content)
	case rag_type.MediaKindImage:
		return e.ocr.ExtractText(doc.Filename, doc.Content)
	default:
		return "", &rag_type.ExtractionError{Filename: doc.Filename, Err: errUnsupportedMediaKind(doc.MediaKind)}
	}
}

func (e *DocumentExtractor) ExtractTextFromPDF(filename string, data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		e.logger.Error("Failed to create PDF reader",
			slog.String("filename", filename),
			slog.String("error", err.Error()),
			slog.Int("data_size", len(data)))
		return "", &rag_type.ExtractionError{Filename: filename, Err: err}
	}

	totalPage := reader.NumPage()
	e.logger.Debug("Starting PDF text extraction",
		slog.String("filename", filename),
		slog.Int("total_pages", totalPage))

	var fullText strings.Builder
	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			// Contributes an empty string, keeping chunking independent
			// of which pages happened to be blank.
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			e.logger.Warn("Failed to extract text from page, treating as blank",
				slog.String("filename", filename),
				slog.Int("page_number", pageIndex),
				slog.String("error", err.Error()))
			continue
		}

		fullText.WriteString(text)
	}

	if fullText.Len() == 0 && e.ocr != nil {
		// A parseable PDF with no text layer is usually a scan. Rasterize
		// the pages and hand them to the OCR normalizer.
		if text, ok := e.ocrScannedPDF(filename, data); ok {
			return text, nil
		}
	}

	e.logger.Info("Extracted text from PDF",
		slog.String("filename", filename),
		slog.Int("total_pages", totalPage),
		slog.Int("total_text_length", fullText.Len()))

	return fullText.String(), nil
}

func (e *DocumentExtractor) ocrScannedPDF(filename string, data []byte) (string, bool) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		e.logger.Warn("Failed to rasterize PDF for OCR",
			slog.String("filename", filename),
			slog.String("error", err.Error()))
		return "", false
	}
	defer doc.Close()

	var fullText strings.Builder
	for pageIndex := 0; pageIndex < doc.NumPage(); pageIndex++ {
		img, err := doc.Image(pageIndex)
		if err != nil {
			e.logger.Warn("Failed to render PDF page, treating as blank",
				slog.String("filename", filename),
				slog.Int("page_number", pageIndex+1),
				slog.String("error", err.Error()))
			continue
		}
		fullText.WriteString(e.ocr.ExtractTextFromImage(filename, img))
	}

	e.logger.Info("Recovered text from scanned PDF via OCR",
		slog.String("filename", filename),
		slog.Int("total_pages", doc.NumPage()),
		slog.Int("total_text_length", fullText.Len()))

	return fullText.String(), true
}

func (e *DocumentExtractor) ExtractTextFromWord(filename string, data []byte) (string, error) {
	e.logger.Debug("Starting Word document text extraction",
		slog.String("filename", filename),
		slog.Int("data_size", len(data)))

	mimeType := "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	result, err := docconv.Convert(bytes.NewReader(data), mimeType, false)
	if err != nil {
		e.logger.Error("Failed to convert Word document",
			slog.String("filename", filename),
			slog.String("error", err.Error()))
		return "", &rag_type.ExtractionError{Filename: filename, Err: err}
	}

	return result.Body, nil
}

func (e *DocumentExtractor) ExtractTextFromHTML(filename string, data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		e.logger.Error("Failed to parse HTML document",
			slog.String("filename", filename),
			slog.String("error", err.Error()))
		return "", &rag_type.ExtractionError{Filename: filename, Err: err}
	}

	doc.Find("script, style, noscript").Remove()

	var blocks []string
	doc.Find("h1, h2, h3, h4, h5, h6, p, li, td, th").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})
	if len(blocks) == 0 {
		return strings.TrimSpace(doc.Text()), nil
	}
	return strings.Join(blocks, "\n"), nil
}

type errUnsupportedMediaKind rag_type.MediaKind

func (e errUnsupportedMediaKind) Error() string {
	return "unsupported media kind: " + string(e)
}
