package export

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"

	"resumegen-backend/internal/generations"
)

func sampleResume() *generations.GeneratedResume {
	return &generations.GeneratedResume{
		Name:     "Jane Doe",
		Headline: "Backend engineer with 8 years of Go experience.",
		Summary:  "Backend engineer with 8 years of Go experience.\nShipped platforms used by millions.",
		Experience: []generations.ExperienceEntry{
			{
				Title:       "Senior Engineer",
				Employer:    "Acme Corp",
				DateRange:   "2019 - Present",
				Description: "Led migration to Kubernetes\nCut deployment time by 40%",
			},
		},
		Skills:    []string{"Go", "PostgreSQL"},
		Education: []string{"BSc Computer Science"},
		Model:     "mistral",
		Method:    "ai_optimization",
	}
}

func TestRenderTextPrefersRawText(t *testing.T) {
	resume := sampleResume()
	resume.RawText = "**CONTACT INFORMATION**\nJane Doe"

	out := string(RenderText(resume))
	if out != resume.RawText {
		t.Fatalf("expected raw text passthrough, got %q", out)
	}
}

func TestRenderTextAssemblesSections(t *testing.T) {
	out := string(RenderText(sampleResume()))

	for _, want := range []string{
		"**PROFESSIONAL SUMMARY**",
		"**PROFESSIONAL EXPERIENCE**",
		"Senior Engineer | Acme Corp | 2019 - Present",
		"- Go",
		"- BSc Computer Science",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("rendered text missing %q:\n%s", want, out)
		}
	}
}

func TestRenderDocxProducesValidPackage(t *testing.T) {
	data, err := RenderDocx(sampleResume())
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open package: %v", err)
	}

	parts := make(map[string]string)
	for _, f := range reader.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		parts[f.Name] = string(content)
	}

	for _, name := range []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml"} {
		if _, ok := parts[name]; !ok {
			t.Fatalf("package missing part %s", name)
		}
	}

	doc := parts["word/document.xml"]
	for _, want := range []string{"Jane Doe", "Senior Engineer | Acme Corp", "• Go"} {
		if !strings.Contains(doc, want) {
			t.Fatalf("document.xml missing %q", want)
		}
	}
}

func TestRenderDocxEscapesMarkup(t *testing.T) {
	resume := sampleResume()
	resume.Name = `Jane <Doe> & "Co"`

	data, err := RenderDocx(resume)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open package: %v", err)
	}
	for _, f := range reader.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, _ := f.Open()
		content, _ := io.ReadAll(rc)
		rc.Close()
		if strings.Contains(string(content), "<Doe>") {
			t.Fatal("unescaped markup in document.xml")
		}
		if !strings.Contains(string(content), "Jane &lt;Doe&gt;") {
			t.Fatal("expected escaped name in document.xml")
		}
		return
	}
	t.Fatal("document.xml not found")
}

func TestFileNameFor(t *testing.T) {
	if got := FileNameFor("run-1", FormatDocx); got != "resume-run-1.docx" {
		t.Fatalf("docx name = %q", got)
	}
	if got := FileNameFor("run-1", FormatText); got != "resume-run-1.txt" {
		t.Fatalf("text name = %q", got)
	}
}
