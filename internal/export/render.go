package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"resumegen-backend/internal/generations"
)

// Export formats.
const (
	FormatDocx = "docx"
	FormatText = "text"
)

// ContentTypeFor returns the MIME type of an export format.
func ContentTypeFor(format string) string {
	if format == FormatDocx {
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	}
	return "text/plain; charset=utf-8"
}

// FileNameFor builds the download file name for a run.
func FileNameFor(runID, format string) string {
	ext := "txt"
	if format == FormatDocx {
		ext = "docx"
	}
	return fmt.Sprintf("resume-%s.%s", runID, ext)
}

// RenderText produces the plain-text rendition of a generated resume.
func RenderText(resume *generations.GeneratedResume) []byte {
	if resume.RawText != "" {
		return []byte(resume.RawText)
	}

	var b strings.Builder
	writeSection := func(heading string, lines ...string) {
		if len(lines) == 0 {
			return
		}
		b.WriteString("**" + heading + "**\n")
		for _, line := range lines {
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	writeSection("CONTACT INFORMATION", resume.Name)
	writeSection("PROFESSIONAL SUMMARY", resume.Summary)
	if len(resume.Experience) > 0 {
		b.WriteString("**PROFESSIONAL EXPERIENCE**\n")
		for _, exp := range resume.Experience {
			header := exp.Title
			if exp.Employer != "" {
				header += " | " + exp.Employer
			}
			if exp.DateRange != "" {
				header += " | " + exp.DateRange
			}
			b.WriteString(header + "\n")
			for _, line := range strings.Split(exp.Description, "\n") {
				if line != "" {
					b.WriteString("- " + line + "\n")
				}
			}
		}
		b.WriteString("\n")
	}
	writeSection("KEY SKILLS", bulleted(resume.Skills)...)
	writeSection("EDUCATION", bulleted(resume.Education)...)

	return []byte(b.String())
}

func bulleted(items []string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = "- " + item
	}
	return out
}

// docLine is one paragraph of the rendered document.
type docLine struct {
	text    string
	heading bool
}

// RenderDocx packages the resume as a minimal WordprocessingML document.
func RenderDocx(resume *generations.GeneratedResume) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	parts := map[string]string{
		"[Content_Types].xml": contentTypesXML,
		"_rels/.rels":         relsXML,
		"word/document.xml":   documentXML(docxLines(resume)),
	}
	// zip readers tolerate any order, but Word expects the content types first.
	for _, name := range []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml"} {
		f, err := w.Create(name)
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", name, err)
		}
		if _, err := f.Write([]byte(parts[name])); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close docx package: %w", err)
	}
	return buf.Bytes(), nil
}

func docxLines(resume *generations.GeneratedResume) []docLine {
	var lines []docLine
	add := func(text string, heading bool) {
		lines = append(lines, docLine{text: text, heading: heading})
	}

	if resume.Name != "" {
		add(resume.Name, true)
	}
	if resume.Headline != "" {
		add(resume.Headline, false)
	}
	if resume.Summary != "" {
		add("Professional Summary", true)
		for _, line := range strings.Split(resume.Summary, "\n") {
			if line != "" {
				add(line, false)
			}
		}
	}
	if len(resume.Experience) > 0 {
		add("Professional Experience", true)
		for _, exp := range resume.Experience {
			header := exp.Title
			if exp.Employer != "" {
				header += " | " + exp.Employer
			}
			if exp.DateRange != "" {
				header += " | " + exp.DateRange
			}
			add(header, true)
			for _, line := range strings.Split(exp.Description, "\n") {
				if line != "" {
					add("• "+line, false)
				}
			}
		}
	}
	if len(resume.Skills) > 0 {
		add("Key Skills", true)
		for _, skill := range resume.Skills {
			add("• "+skill, false)
		}
	}
	if len(resume.Education) > 0 {
		add("Education", true)
		for _, entry := range resume.Education {
			add("• "+entry, false)
		}
	}

	if len(lines) == 0 {
		for _, line := range strings.Split(resume.RawText, "\n") {
			add(line, false)
		}
	}
	return lines
}

func documentXML(lines []docLine) string {
	var b strings.Builder
	b.WriteString(xml.Header)
	b.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, line := range lines {
		b.WriteString(`<w:p><w:r>`)
		if line.heading {
			b.WriteString(`<w:rPr><w:b/></w:rPr>`)
		}
		b.WriteString(`<w:t xml:space="preserve">`)
		b.WriteString(escapeXML(line.text))
		b.WriteString(`</w:t></w:r></w:p>`)
	}
	b.WriteString(`</w:body></w:document>`)
	return b.String()
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

const contentTypesXML = xml.Header + `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

const relsXML = xml.Header + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`
