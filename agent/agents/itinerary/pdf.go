package itinerary

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

// Renderer produces the document sent to the user.
type Renderer interface {
	Render(title, body string) ([]byte, error)
}

type PDFRenderer struct {
	fontFamily string
}

var _ Renderer = (*PDFRenderer)(nil)

func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{fontFamily: "Helvetica"}
}

// Render lays out body as paragraphs. Lines wrapped in ** become headings.
func (r *PDFRenderer) Render(title, body string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont(r.fontFamily, "B", 16)
	pdf.MultiCell(0, 9, tr(latin(title)), "", "C", false)
	pdf.Ln(4)

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, " \t")
		if strings.TrimSpace(line) == "" {
			pdf.Ln(3)
			continue
		}
		if heading, ok := boldLine(line); ok {
			pdf.Ln(2)
			pdf.SetFont(r.fontFamily, "B", 12)
			pdf.MultiCell(0, 7, tr(latin(heading)), "", "L", false)
			continue
		}
		pdf.SetFont(r.fontFamily, "", 11)
		pdf.MultiCell(0, 6, tr(latin(strings.ReplaceAll(line, "**", ""))), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func boldLine(line string) (string, bool) {
	t := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#"))
	if len(t) > 4 && strings.HasPrefix(t, "**") && strings.HasSuffix(t, "**") {
		return strings.TrimSpace(t[2 : len(t)-2]), true
	}
	if strings.HasPrefix(strings.TrimSpace(line), "#") {
		return strings.ReplaceAll(t, "**", ""), true
	}
	return "", false
}

// latin drops runes the core PDF fonts cannot draw, such as emoji.
func latin(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '•', '–', '—', '“', '”', '‘', '’', '…', '€':
			return r
		}
		if r > 0xFF {
			return -1
		}
		return r
	}, s)
}
