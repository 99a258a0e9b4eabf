package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"
)

// PDFRenderer converts plan markdown into PDF bytes.
type PDFRenderer interface {
	PDF(markdown string) ([]byte, error)
}

// Markdown is a PDFRenderer for the subset of markdown the plans use:
// headings, bullets, bold spans, horizontal rules, <br> breaks and inline
// base64 <img> tags.
type Markdown struct {
	FontFamily string
	FontSize   float64
	Title      string
}

var _ PDFRenderer = (*Markdown)(nil)

// NewMarkdown returns a renderer with the default font setup.
func NewMarkdown() *Markdown {
	return &Markdown{FontFamily: "Helvetica", FontSize: 11, Title: "UPBEAT learning plan"}
}

var (
	inlineToken = regexp.MustCompile(`(?i)<br\s*/?>|<img\s[^>]*>|\*\*|</?[a-z][^>]*>`)
	imgSrc      = regexp.MustCompile(`(?i)src="([^"]*)"`)
	imgWidth    = regexp.MustCompile(`(?i)width="(\d+)"`)
	headingLine = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	bulletLine  = regexp.MustCompile(`^(\s*)[-*+]\s+(.*)$`)
	ruleLine    = regexp.MustCompile(`^\s*(-{3,}|\*{3,}|_{3,})\s*$`)
)

var headingSizes = [...]float64{18, 15, 13, 12, 11, 11}

const pxToMM = 0.2646

type pdfWriter struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	family string
	size   float64
	bold   bool
	images int
}

// PDF renders markdown into an A4 document.
func (m *Markdown) PDF(markdown string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	if m.Title != "" {
		pdf.SetTitle(m.Title, true)
	}
	pdf.AddPage()

	w := &pdfWriter{
		pdf:    pdf,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		family: m.FontFamily,
		size:   m.FontSize,
	}
	if w.family == "" {
		w.family = "Helvetica"
	}
	if w.size <= 0 {
		w.size = 11
	}
	w.setFont(w.size)

	for _, line := range strings.Split(strings.ReplaceAll(markdown, "\r\n", "\n"), "\n") {
		if err := w.line(line); err != nil {
			return nil, err
		}
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (w *pdfWriter) lineHeight() float64 { return w.size * 0.5 }

func (w *pdfWriter) setFont(size float64) {
	w.size = size
	style := ""
	if w.bold {
		style = "B"
	}
	w.pdf.SetFont(w.family, style, size)
}

func (w *pdfWriter) line(line string) error {
	left, _, _, _ := w.pdf.GetMargins()
	base := w.size

	switch {
	case strings.TrimSpace(line) == "":
		w.pdf.Ln(w.lineHeight() * 0.6)
		return nil

	case ruleLine.MatchString(line):
		y := w.pdf.GetY() + 1
		pageW, _ := w.pdf.GetPageSize()
		_, _, right, _ := w.pdf.GetMargins()
		w.pdf.Line(left, y, pageW-right, y)
		w.pdf.Ln(3)
		return nil
	}

	if m := headingLine.FindStringSubmatch(line); m != nil {
		w.bold = true
		w.setFont(headingSizes[len(m[1])-1])
		w.pdf.Ln(2)
		err := w.inline(m[2])
		w.pdf.Ln(w.lineHeight() + 1)
		w.bold = false
		w.setFont(base)
		return err
	}

	if m := bulletLine.FindStringSubmatch(line); m != nil {
		indent := left + 4 + float64(len(m[1]))*1.5
		w.pdf.SetX(indent)
		w.pdf.Write(w.lineHeight(), w.tr("• "))
		w.pdf.SetLeftMargin(indent + 4)
		err := w.inline(m[2])
		w.pdf.Ln(w.lineHeight())
		w.pdf.SetLeftMargin(left)
		return err
	}

	err := w.inline(line)
	w.pdf.Ln(w.lineHeight())
	return err
}

// inline writes one line of text, honoring bold spans, breaks and images.
func (w *pdfWriter) inline(text string) error {
	wasBold := w.bold
	defer func() {
		w.bold = wasBold
		w.setFont(w.size)
	}()

	pos := 0
	for _, loc := range inlineToken.FindAllStringIndex(text, -1) {
		w.text(text[pos:loc[0]])
		tok := text[loc[0]:loc[1]]
		pos = loc[1]

		lower := strings.ToLower(tok)
		switch {
		case tok == "**":
			w.bold = !w.bold
			w.setFont(w.size)
		case strings.HasPrefix(lower, "<br"):
			w.pdf.Ln(w.lineHeight())
		case strings.HasPrefix(lower, "<img"):
			if err := w.image(tok); err != nil {
				return err
			}
		}
	}
	w.text(text[pos:])
	return nil
}

func (w *pdfWriter) text(s string) {
	if s == "" {
		return
	}
	w.pdf.Write(w.lineHeight(), w.tr(s))
}

func (w *pdfWriter) image(tag string) error {
	m := imgSrc.FindStringSubmatch(tag)
	if m == nil {
		return nil
	}
	kind, data, err := decodeDataURI(m[1])
	if err != nil {
		return err
	}
	if data == nil {
		// Only embedded images are rendered.
		return nil
	}

	size := w.lineHeight()
	if wm := imgWidth.FindStringSubmatch(tag); wm != nil {
		if px, err := strconv.Atoi(wm[1]); err == nil && px > 0 {
			size = float64(px) * pxToMM
		}
	}

	w.images++
	name := fmt.Sprintf("inline-%d", w.images)
	opts := fpdf.ImageOptions{ImageType: kind, ReadDpi: false}
	w.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	x, y := w.pdf.GetXY()
	w.pdf.ImageOptions(name, x, y-(size-w.lineHeight())/2, size, size, false, opts, 0, "")
	w.pdf.SetX(x + size + 1)
	if err := w.pdf.Error(); err != nil {
		return fmt.Errorf("embed image: %w", err)
	}
	return nil
}

// decodeDataURI returns the image type and bytes of a base64 data URI.
// Non-data sources yield nil data.
func decodeDataURI(src string) (string, []byte, error) {
	if !strings.HasPrefix(src, "data:") {
		return "", nil, nil
	}
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return "", nil, fmt.Errorf("unsupported data uri %.32q", src)
	}
	var kind string
	switch strings.TrimSuffix(meta, ";base64") {
	case "image/png":
		kind = "PNG"
	case "image/jpeg", "image/jpg":
		kind = "JPG"
	case "image/gif":
		kind = "GIF"
	default:
		return "", nil, fmt.Errorf("unsupported image type %q", meta)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("decode data uri: %w", err)
	}
	return kind, data, nil
}
