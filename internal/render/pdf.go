package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/mithun789/campus-Me/internal/models"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// A4 portrait in points.
const (
	pageWidth  = 595.0
	pageHeight = 842.0
	pageMargin = 56.0
)

// PDFRenderer lays the document out as positioned text lines and hands the
// page description to pdfcpu.
type PDFRenderer struct {
	// CharsPerLine and LinesPerPage control the text grid.
	CharsPerLine int
	LinesPerPage int
}

// NewPDFRenderer returns a renderer using an 11pt grid on A4.
func NewPDFRenderer() PDFRenderer {
	return PDFRenderer{CharsPerLine: 90, LinesPerPage: 50}
}

func (PDFRenderer) Format() models.Format { return models.FormatPDF }
func (PDFRenderer) Extension() string     { return "pdf" }
func (PDFRenderer) ContentType() string   { return "application/pdf" }

func (p PDFRenderer) Render(ctx context.Context, in Input) ([]byte, error) {
	if err := checkCtx(ctx, p.Format()); err != nil {
		return nil, err
	}
	desc, err := json.Marshal(p.layout(in))
	if err != nil {
		return nil, fmt.Errorf("failed to encode pdf page description: %w", err)
	}
	if err := checkCtx(ctx, p.Format()); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	conf := model.NewDefaultConfiguration()
	if err := api.Create(nil, bytes.NewReader(desc), &out, conf); err != nil {
		return nil, fmt.Errorf("pdfcpu create failed: %w", err)
	}
	return out.Bytes(), nil
}

// PageCount reads back the number of pages in a rendered document.
func (PDFRenderer) PageCount(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	n, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return n, nil
}

type pdfFont struct {
	Name string  `json:"name"`
	Size float64 `json:"size"`
}

type pdfText struct {
	Value string     `json:"value"`
	Pos   [2]float64 `json:"pos"`
	Font  pdfFont    `json:"font"`
}

type pdfContent struct {
	Text []pdfText `json:"text"`
}

type pdfPage struct {
	Content pdfContent `json:"content"`
}

type pdfDocument struct {
	Paper  string              `json:"paper"`
	Origin string              `json:"origin"`
	Pages  map[string]*pdfPage `json:"pages"`
}

type pdfLine struct {
	text string
	font pdfFont
	// gap adds blank lines after this one.
	gap int
}

var (
	fontTitle   = pdfFont{Name: "Helvetica-Bold", Size: 20}
	fontHeading = pdfFont{Name: "Helvetica-Bold", Size: 14}
	fontBody    = pdfFont{Name: "Helvetica", Size: 11}
)

// layout wraps the document into lines and paginates them.
func (p PDFRenderer) layout(in Input) pdfDocument {
	width := p.CharsPerLine
	if width <= 0 {
		width = 90
	}
	perPage := p.LinesPerPage
	if perPage <= 0 {
		perPage = 50
	}

	var lines []pdfLine
	add := func(text string, font pdfFont, gap int) {
		wrapped := wrapText(latin1(text), width)
		for i, w := range wrapped {
			l := pdfLine{text: w, font: font}
			if i == len(wrapped)-1 {
				l.gap = gap
			}
			lines = append(lines, l)
		}
	}

	add(in.Title, fontTitle, 0)
	add("Date: "+displayDate(in.Date), fontBody, 1)
	if len(in.Sections) > 0 {
		add("Table of Contents", fontHeading, 0)
		for i, s := range in.Sections {
			add(fmt.Sprintf("%d. %s", i+1, s.Name), fontBody, 0)
		}
		lines[len(lines)-1].gap = 1
	}
	if stats := sectionStats(in.Sections); in.Features.Tables && len(stats) > 0 {
		add("Document Overview", fontHeading, 0)
		for _, s := range stats {
			add(fmt.Sprintf("%-60.60s %6d words", s.Name, s.Words), fontBody, 0)
		}
		lines[len(lines)-1].gap = 1
	}
	for _, s := range in.Sections {
		add(s.Name, fontHeading, 0)
		for _, para := range paragraphs(s.Text) {
			add(para, fontBody, 1)
		}
	}
	if len(in.Citations) > 0 {
		add("References", fontHeading, 0)
		for i, c := range in.Citations {
			add(fmt.Sprintf("[%d] %s", i+1, c), fontBody, 0)
		}
	}

	doc := pdfDocument{Paper: "A4P", Origin: "LowerLeft", Pages: map[string]*pdfPage{}}
	page, row := 1, 0
	lineHeight := (pageHeight - 2*pageMargin) / float64(perPage)
	for _, l := range lines {
		if row >= perPage {
			page++
			row = 0
		}
		key := strconv.Itoa(page)
		pg, ok := doc.Pages[key]
		if !ok {
			pg = &pdfPage{}
			doc.Pages[key] = pg
		}
		y := pageHeight - pageMargin - float64(row+1)*lineHeight
		pg.Content.Text = append(pg.Content.Text, pdfText{Value: l.text, Pos: [2]float64{pageMargin, y}, Font: l.font})
		row += 1 + l.gap
	}
	if len(doc.Pages) == 0 {
		doc.Pages["1"] = &pdfPage{}
	}
	return doc
}

// wrapText breaks text into lines of at most width runes, splitting on
// whitespace where possible.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	var cur []rune
	for _, w := range words {
		wr := []rune(w)
		for len(wr) > width {
			if len(cur) > 0 {
				lines = append(lines, string(cur))
				cur = nil
			}
			lines = append(lines, string(wr[:width]))
			wr = wr[width:]
		}
		switch {
		case len(cur) == 0:
			cur = append(cur, wr...)
		case len(cur)+1+len(wr) <= width:
			cur = append(cur, ' ')
			cur = append(cur, wr...)
		default:
			lines = append(lines, string(cur))
			cur = append([]rune(nil), wr...)
		}
	}
	if len(cur) > 0 {
		lines = append(lines, string(cur))
	}
	return lines
}

// latin1 replaces runes the standard PDF fonts cannot encode.
func latin1(s string) string {
	return strings.Map(func(r rune) rune {
		if r > 0xFF {
			return '?'
		}
		return r
	}, s)
}
