package services

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/sahilchouksey/adaptive-tutor-api/utils/logger"
)

// PDFExtractor extracts plain text from PDFs using ledongthuc/pdf.
// Failures degrade to an empty string and are only logged.
type PDFExtractor struct {
	log *logger.Logger
}

func NewPDFExtractor(log *logger.Logger) *PDFExtractor {
	if log == nil {
		log = logger.NewNop()
	}
	return &PDFExtractor{log: log.With("component", "pdf_extractor")}
}

// sanitizePDF truncates trailing garbage after the last %%EOF marker.
// Many PDFs downloaded from the web have HTML appended.
func sanitizePDF(content []byte) []byte {
	if len(content) == 0 || !bytes.HasPrefix(content, []byte("%PDF-")) {
		return content
	}

	eofMarker := []byte("%%EOF")
	lastEOF := bytes.LastIndex(content, eofMarker)
	if lastEOF == -1 {
		return content
	}

	pdfEnd := lastEOF + len(eofMarker)
	for pdfEnd < len(content) && (content[pdfEnd] == '\n' || content[pdfEnd] == '\r') {
		pdfEnd++
	}
	if len(content)-pdfEnd > 10 {
		return content[:pdfEnd]
	}
	return content
}

// ExtractFile reads the PDF at path and returns its text, or "" when the file
// is unreadable or has no extractable text.
func (p *PDFExtractor) ExtractFile(path string) string {
	content, err := os.ReadFile(path)
	if err != nil {
		p.log.Warn("failed to read PDF", "path", path, "error", err)
		return ""
	}
	return p.ExtractBytes(content)
}

// ExtractBytes is ExtractFile for in-memory content.
func (p *PDFExtractor) ExtractBytes(content []byte) (text string) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Warn("PDF parser panicked", "panic", r)
			text = ""
		}
	}()

	text, err := p.extract(content)
	if err != nil {
		p.log.Warn("PDF text extraction failed", "error", err)
		return ""
	}
	return text
}

func (p *PDFExtractor) extract(content []byte) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("empty PDF content")
	}
	content = sanitizePDF(content)

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("failed to parse PDF: %w", err)
	}

	numPages := reader.NumPage()
	if numPages == 0 {
		return "", fmt.Errorf("PDF has no pages")
	}

	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		if text := pageText(page); text != "" {
			pages = append(pages, text)
		}
	}

	extracted := strings.TrimSpace(strings.Join(pages, "\n\n"))
	p.log.Debug("extracted PDF text", "pages", numPages, "chars", len(extracted))
	return extracted, nil
}

// pageText prefers row extraction, which keeps line structure, and falls
// back to plain text.
func pageText(page pdf.Page) string {
	rows, err := page.GetTextByRow()
	if err != nil {
		text, plainErr := page.GetPlainText(nil)
		if plainErr != nil {
			return ""
		}
		return strings.TrimSpace(text)
	}

	var b strings.Builder
	for _, row := range rows {
		var line strings.Builder
		for _, word := range row.Content {
			line.WriteString(word.S)
		}
		if s := strings.TrimSpace(line.String()); s != "" {
			b.WriteString(s)
			b.WriteString("\n")
		}
	}
	return strings.TrimSpace(b.String())
}
