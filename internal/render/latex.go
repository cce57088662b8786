package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/mithun789/campus-Me/internal/models"
)

var latexEscaper = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`{`, `\{`,
	`}`, `\}`,
	`$`, `\$`,
	`&`, `\&`,
	`#`, `\#`,
	`%`, `\%`,
	`_`, `\_`,
	`^`, `\textasciicircum{}`,
	`~`, `\textasciitilde{}`,
)

// LaTeXRenderer emits a compilable article-class source file.
type LaTeXRenderer struct{}

func (LaTeXRenderer) Format() models.Format { return models.FormatLaTeX }
func (LaTeXRenderer) Extension() string     { return "tex" }
func (LaTeXRenderer) ContentType() string   { return "application/x-latex" }

func (l LaTeXRenderer) Render(ctx context.Context, in Input) ([]byte, error) {
	if err := checkCtx(ctx, l.Format()); err != nil {
		return nil, err
	}
	esc := latexEscaper.Replace
	var b strings.Builder
	b.WriteString("\\documentclass[11pt]{article}\n")
	b.WriteString("\\usepackage[utf8]{inputenc}\n\\usepackage[margin=1in]{geometry}\n\\usepackage{hyperref}\n")
	fmt.Fprintf(&b, "\\title{%s}\n\\date{%s}\n\n", esc(in.Title), esc(displayDate(in.Date)))
	b.WriteString("\\begin{document}\n\\maketitle\n\\tableofcontents\n\\newpage\n\n")

	stats := sectionStats(in.Sections)
	if in.Features.Tables && len(stats) > 0 {
		b.WriteString("\\section*{Document Overview}\n\\begin{tabular}{|l|r|}\n\\hline\nSection & Words \\\\\n\\hline\n")
		for _, s := range stats {
			fmt.Fprintf(&b, "%s & %d \\\\\n", esc(s.Name), s.Words)
		}
		b.WriteString("\\hline\n\\end{tabular}\n\n")
	}

	for _, s := range in.Sections {
		fmt.Fprintf(&b, "\\section{%s}\n", esc(s.Name))
		for _, p := range paragraphs(s.Text) {
			b.WriteString(esc(p))
			b.WriteString("\n\n")
		}
	}

	if len(in.Citations) > 0 {
		b.WriteString("\\begin{thebibliography}{99}\n")
		for i, c := range in.Citations {
			fmt.Fprintf(&b, "\\bibitem{ref%d} %s\n", i+1, esc(c))
		}
		b.WriteString("\\end{thebibliography}\n")
	}
	b.WriteString("\\end{document}\n")
	return []byte(b.String()), nil
}
