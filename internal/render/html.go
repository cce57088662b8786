package render

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/mithun789/campus-Me/internal/models"
)

var htmlTemplate = template.Must(template.New("document").Funcs(template.FuncMap{
	"inc":   func(i int) int { return i + 1 },
	"paras": paragraphs,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Georgia, serif; max-width: 48rem; margin: 2rem auto; line-height: 1.6; }
table { border-collapse: collapse; }
td, th { border: 1px solid #999; padding: .25rem .75rem; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p><em>Date: {{.Date}}</em></p>
{{- if .Sections}}
<nav><h2>Table of Contents</h2><ol>
{{- range $i, $s := .Sections}}
<li><a href="#section-{{inc $i}}">{{$s.Name}}</a></li>
{{- end}}
</ol></nav>
{{- end}}
{{- if .Table}}
<h2>Document Overview</h2>
<table><thead><tr><th>Section</th><th>Words</th></tr></thead><tbody>
{{- range .Table}}
<tr><td>{{.Name}}</td><td>{{.Words}}</td></tr>
{{- end}}
</tbody></table>
{{- end}}
{{- if .Chart}}
<figure>
<svg xmlns="http://www.w3.org/2000/svg" width="{{.Chart.Width}}" height="{{.Chart.Height}}" role="img" aria-label="Words per section">
{{- range .Chart.Bars}}
<rect x="160" y="{{.Y}}" width="{{.W}}" height="18" fill="#4a7ab5"></rect>
<text x="0" y="{{.TextY}}" font-size="12">{{.Label}}</text>
{{- end}}
</svg>
<figcaption>Words per section</figcaption>
</figure>
{{- end}}
{{- range $i, $s := .Sections}}
<section id="section-{{inc $i}}">
<h2>{{$s.Name}}</h2>
{{- range paras $s.Text}}
<p>{{.}}</p>
{{- end}}
</section>
{{- end}}
{{- if .Citations}}
<h2>References</h2>
<ol>
{{- range .Citations}}
<li>{{.}}</li>
{{- end}}
</ol>
{{- end}}
</body>
</html>
`))

// HTMLRenderer emits a standalone HTML page.
type HTMLRenderer struct{}

func (HTMLRenderer) Format() models.Format { return models.FormatHTML }
func (HTMLRenderer) Extension() string     { return "html" }
func (HTMLRenderer) ContentType() string   { return "text/html; charset=utf-8" }

type htmlBar struct {
	Label       string
	Y, TextY, W int
}

type htmlChart struct {
	Width, Height int
	Bars          []htmlBar
}

type htmlPage struct {
	Title     string
	Date      string
	Sections  models.Sections
	Citations []string
	Table     []sectionStat
	Chart     *htmlChart
}

func (h HTMLRenderer) Render(ctx context.Context, in Input) ([]byte, error) {
	if err := checkCtx(ctx, h.Format()); err != nil {
		return nil, err
	}
	page := htmlPage{
		Title:     in.Title,
		Date:      displayDate(in.Date),
		Sections:  in.Sections,
		Citations: in.Citations,
	}
	stats := sectionStats(in.Sections)
	if in.Features.Tables {
		page.Table = stats
	}
	if in.Features.Charts && len(stats) > 0 {
		page.Chart = barChart(stats)
	}
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("failed to execute html template: %w", err)
	}
	return buf.Bytes(), nil
}

func barChart(stats []sectionStat) *htmlChart {
	const maxBar = 320
	peak := maxWords(stats)
	c := &htmlChart{Width: 160 + maxBar + 20, Height: len(stats)*24 + 4}
	for i, s := range stats {
		w := 0
		if peak > 0 {
			w = s.Words * maxBar / peak
		}
		c.Bars = append(c.Bars, htmlBar{Label: s.Name, Y: i*24 + 2, TextY: i*24 + 15, W: w})
	}
	return c
}
