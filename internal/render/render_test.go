package render

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/mithun789/campus-Me/internal/models"
)

func sampleInput() Input {
	return Input{
		Title: "Climate & Energy",
		Sections: models.Sections{
			{Name: "Introduction", Text: "Warming is real.\n\nIt is measurable."},
			{Name: "Methods_1", Text: "We used 100% renewable <data>."},
		},
		Citations: []string{"Doe, J. (2020). Heat. Journal."},
		Date:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestMarkdown(t *testing.T) {
	in := sampleInput()
	in.Features = models.Features{Tables: true, Charts: true}
	out, err := MarkdownRenderer{}.Render(context.Background(), in)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	md := string(out)
	for _, want := range []string{
		"# Climate & Energy",
		"*Date: March 1, 2024*",
		"1. [Introduction](#introduction)",
		"| Introduction | 6 |",
		"```text",
		"## Methods_1",
		"## References",
	} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestFeaturesOffOmitTableAndChart(t *testing.T) {
	in := sampleInput()
	for _, r := range []Renderer{MarkdownRenderer{}, HTMLRenderer{}, LaTeXRenderer{}} {
		out, err := r.Render(context.Background(), in)
		if err != nil {
			t.Fatalf("%s: %v", r.Format(), err)
		}
		if strings.Contains(string(out), "Document Overview") || strings.Contains(string(out), "<svg") {
			t.Fatalf("%s emitted optional content with features off", r.Format())
		}
	}
}

func TestHTMLEscapes(t *testing.T) {
	in := sampleInput()
	in.Features.Charts = true
	out, err := HTMLRenderer{}.Render(context.Background(), in)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	page := string(out)
	if strings.Contains(page, "<data>") || !strings.Contains(page, "&lt;data&gt;") {
		t.Fatalf("expected body text to be escaped")
	}
	if !strings.Contains(page, "<svg") || strings.Count(page, "<rect") != 2 {
		t.Fatalf("expected one chart bar per section")
	}
	if strings.Count(page, "<p>") < 3 {
		t.Fatalf("expected paragraphs to be split on blank lines")
	}
}

func TestLaTeXEscapes(t *testing.T) {
	in := sampleInput()
	in.Features.Tables = true
	out, err := LaTeXRenderer{}.Render(context.Background(), in)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	tex := string(out)
	for _, want := range []string{`\title{Climate \& Energy}`, `\section{Methods\_1}`, `100\% renewable`, `\begin{tabular}`, `\bibitem{ref1}`, `\end{document}`} {
		if !strings.Contains(tex, want) {
			t.Fatalf("latex missing %q", want)
		}
	}
}

func TestDOCXPackage(t *testing.T) {
	in := sampleInput()
	in.Features.Tables = true
	out, err := DOCXRenderer{}.Render(context.Background(), in)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		t.Fatalf("docx is not a zip: %v", err)
	}
	parts := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		b, _ := io.ReadAll(rc)
		_ = rc.Close()
		parts[f.Name] = string(b)
	}
	for _, name := range []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml"} {
		if _, ok := parts[name]; !ok {
			t.Fatalf("docx missing part %s", name)
		}
	}
	doc := parts["word/document.xml"]
	if !strings.Contains(doc, "Climate &amp; Energy") || !strings.Contains(doc, "&lt;data&gt;") {
		t.Fatalf("expected escaped text in document.xml")
	}
	if !strings.Contains(doc, "<w:tbl>") {
		t.Fatalf("expected overview table")
	}
}

func TestRenderHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, r := range Builtins() {
		if _, err := r.Render(ctx, sampleInput()); err == nil {
			t.Fatalf("%s rendered with a cancelled context", r.Format())
		}
	}
}

func TestPDFLayoutPaginates(t *testing.T) {
	in := sampleInput()
	in.Sections = append(in.Sections, models.Section{Name: "Long", Text: strings.Repeat("word ", 2000)})
	doc := PDFRenderer{CharsPerLine: 80, LinesPerPage: 40}.layout(in)
	if doc.Paper != "A4P" {
		t.Fatalf("unexpected paper %s", doc.Paper)
	}
	if len(doc.Pages) < 3 {
		t.Fatalf("expected long text to span several pages, got %d", len(doc.Pages))
	}
	first := doc.Pages["1"].Content.Text[0]
	if first.Value != "Climate & Energy" || first.Font.Name != "Helvetica-Bold" {
		t.Fatalf("unexpected first line %+v", first)
	}
	for key, pg := range doc.Pages {
		if len(pg.Content.Text) > 40 {
			t.Fatalf("page %s overflows with %d lines", key, len(pg.Content.Text))
		}
		for _, txt := range pg.Content.Text {
			if txt.Pos[1] < pageMargin || txt.Pos[1] > pageHeight-pageMargin {
				t.Fatalf("line outside margins at y=%v", txt.Pos[1])
			}
		}
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("the quick brown fox jumps", 10)
	want := []string{"the quick", "brown fox", "jumps"}
	if len(lines) != len(want) {
		t.Fatalf("expected %v got %v", want, lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d: expected %q got %q", i, want[i], lines[i])
		}
	}
	long := wrapText(strings.Repeat("x", 25), 10)
	if len(long) != 3 || long[2] != "xxxxx" {
		t.Fatalf("expected hard split of long word, got %v", long)
	}
	if got := wrapText("   ", 10); len(got) != 1 || got[0] != "" {
		t.Fatalf("expected single empty line, got %v", got)
	}
	if latin1("naïve 世界") != "naïve ??" {
		t.Fatalf("unexpected latin1 mapping %q", latin1("naïve 世界"))
	}
}

func TestSetLookupAndDescribe(t *testing.T) {
	s := NewSet(Builtins()...)
	if len(s.Formats()) != 5 {
		t.Fatalf("expected 5 builtin formats, got %v", s.Formats())
	}
	if _, ok := s.Lookup(models.FormatPDF); !ok {
		t.Fatalf("pdf renderer missing")
	}
	if ext, ct := s.Describe(models.FormatLaTeX); ext != "tex" || ct != "application/x-latex" {
		t.Fatalf("unexpected latex description %s %s", ext, ct)
	}
	if ext, _ := s.Describe("odt"); ext != "odt" {
		t.Fatalf("unexpected fallback extension %s", ext)
	}
}
