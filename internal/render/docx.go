package render

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/mithun789/campus-Me/internal/models"
)

const (
	docxContentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`
	docxRootRels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`
	docxDocumentOpen  = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n" + `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`
	docxDocumentClose = `<w:sectPr><w:pgSz w:w="11906" w:h="16838"/><w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440"/></w:sectPr></w:body></w:document>`
)

// DOCXRenderer emits a minimal WordprocessingML package.
type DOCXRenderer struct{}

func (DOCXRenderer) Format() models.Format { return models.FormatDOCX }
func (DOCXRenderer) Extension() string     { return "docx" }
func (DOCXRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}

func (d DOCXRenderer) Render(ctx context.Context, in Input) ([]byte, error) {
	if err := checkCtx(ctx, d.Format()); err != nil {
		return nil, err
	}
	body, err := docxBody(in)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct{ name, content string }{
		{"[Content_Types].xml", docxContentTypes},
		{"_rels/.rels", docxRootRels},
		{"word/document.xml", body},
	}
	for _, p := range parts {
		w, err := zw.Create(p.name)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s to docx: %w", p.name, err)
		}
		if _, err := w.Write([]byte(p.content)); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize docx: %w", err)
	}
	return buf.Bytes(), nil
}

func docxBody(in Input) (string, error) {
	var b strings.Builder
	b.WriteString(docxDocumentOpen)

	para := func(text string, size int, bold, italic bool) error {
		b.WriteString("<w:p><w:r><w:rPr>")
		if bold {
			b.WriteString("<w:b/>")
		}
		if italic {
			b.WriteString("<w:i/>")
		}
		if size > 0 {
			fmt.Fprintf(&b, `<w:sz w:val="%d"/>`, size)
		}
		b.WriteString(`</w:rPr><w:t xml:space="preserve">`)
		if err := xml.EscapeText(&b, []byte(text)); err != nil {
			return err
		}
		b.WriteString("</w:t></w:r></w:p>")
		return nil
	}
	cell := func(text string) error {
		b.WriteString(`<w:tc><w:p><w:r><w:t xml:space="preserve">`)
		if err := xml.EscapeText(&b, []byte(text)); err != nil {
			return err
		}
		b.WriteString("</w:t></w:r></w:p></w:tc>")
		return nil
	}

	if err := para(in.Title, 48, true, false); err != nil {
		return "", err
	}
	if err := para("Date: "+displayDate(in.Date), 0, false, true); err != nil {
		return "", err
	}

	if stats := sectionStats(in.Sections); in.Features.Tables && len(stats) > 0 {
		if err := para("Document Overview", 32, true, false); err != nil {
			return "", err
		}
		b.WriteString(`<w:tbl><w:tblPr><w:tblBorders><w:top w:val="single"/><w:bottom w:val="single"/><w:insideH w:val="single"/></w:tblBorders></w:tblPr>`)
		rows := append([]sectionStat{{Name: "Section"}}, stats...)
		for i, s := range rows {
			b.WriteString("<w:tr>")
			words := strconv.Itoa(s.Words)
			if i == 0 {
				words = "Words"
			}
			if err := cell(s.Name); err != nil {
				return "", err
			}
			if err := cell(words); err != nil {
				return "", err
			}
			b.WriteString("</w:tr>")
		}
		b.WriteString("</w:tbl>")
	}

	for _, s := range in.Sections {
		if err := para(s.Name, 32, true, false); err != nil {
			return "", err
		}
		for _, p := range paragraphs(s.Text) {
			if err := para(p, 0, false, false); err != nil {
				return "", err
			}
		}
	}

	if len(in.Citations) > 0 {
		if err := para("References", 32, true, false); err != nil {
			return "", err
		}
		for i, c := range in.Citations {
			if err := para(fmt.Sprintf("[%d] %s", i+1, c), 0, false, false); err != nil {
				return "", err
			}
		}
	}
	b.WriteString(docxDocumentClose)
	return b.String(), nil
}
