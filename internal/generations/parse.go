package generations

import (
	"strings"

	"resumegen-backend/internal/ats"
)

// Section headings the optimizer is instructed to emit.
const (
	sectionContact    = "CONTACT INFORMATION"
	sectionSummary    = "PROFESSIONAL SUMMARY"
	sectionExperience = "PROFESSIONAL EXPERIENCE"
	sectionSkills     = "KEY SKILLS"
	sectionEducation  = "EDUCATION"
)

// parseGeneratedResume assembles the immutable result from the optimized
// text. The optimizer emits **SECTION** headings; anything it failed to
// structure stays available through RawText.
func parseGeneratedResume(optimized string, atsResult ats.Result, model, method string) GeneratedResume {
	sections := splitSections(optimized)

	resume := GeneratedResume{
		ATS:     atsResult,
		Model:   model,
		Method:  method,
		RawText: optimized,
	}

	if contact := sections[sectionContact]; len(contact) > 0 {
		resume.Name = firstContentLine(contact)
	}
	if summary := sections[sectionSummary]; len(summary) > 0 {
		resume.Summary = strings.Join(summary, "\n")
		resume.Headline = firstSentence(resume.Summary)
	}
	resume.Experience = parseExperience(sections[sectionExperience])
	resume.Skills = parseBullets(sections[sectionSkills])
	resume.Education = parseBullets(sections[sectionEducation])

	return resume
}

// splitSections groups lines under their **HEADING** markers.
func splitSections(text string) map[string][]string {
	sections := make(map[string][]string)
	current := ""
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if heading, ok := parseHeading(trimmed); ok {
			current = heading
			continue
		}
		if current == "" || trimmed == "" {
			continue
		}
		sections[current] = append(sections[current], trimmed)
	}
	return sections
}

func parseHeading(line string) (string, bool) {
	if !strings.HasPrefix(line, "**") || !strings.HasSuffix(line, "**") || len(line) <= 4 {
		return "", false
	}
	return strings.ToUpper(strings.TrimSpace(strings.Trim(line, "*"))), true
}

// firstContentLine skips placeholder lines like "[Add your contact details here]".
func firstContentLine(lines []string) string {
	for _, line := range lines {
		if strings.HasPrefix(line, "[") {
			continue
		}
		// Contact lines often pack fields with separators; the name comes first.
		for _, sep := range []string{"|", "•", ","} {
			if i := strings.Index(line, sep); i > 0 {
				line = line[:i]
				break
			}
		}
		return strings.TrimSpace(line)
	}
	return ""
}

func firstSentence(text string) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	if i := strings.Index(text, ". "); i > 0 {
		return text[:i+1]
	}
	return text
}

// parseExperience splits roles on header lines and keeps bullet lines as the
// role description. A header line is any non-bullet line; "Title, Employer,
// Dates" and "Title | Employer | Dates" layouts are both recognized.
func parseExperience(lines []string) []ExperienceEntry {
	var entries []ExperienceEntry
	var current *ExperienceEntry

	flush := func() {
		if current != nil && (current.Title != "" || current.Description != "") {
			entries = append(entries, *current)
		}
		current = nil
	}

	for _, line := range lines {
		if strings.HasPrefix(line, "[") {
			continue
		}
		if isBullet(line) {
			if current == nil {
				current = &ExperienceEntry{}
			}
			text := trimBullet(line)
			if current.Description == "" {
				current.Description = text
			} else {
				current.Description += "\n" + text
			}
			continue
		}

		flush()
		current = &ExperienceEntry{}
		parts := splitHeader(line)
		if len(parts) > 0 {
			current.Title = parts[0]
		}
		if len(parts) > 1 {
			current.Employer = parts[1]
		}
		if len(parts) > 2 {
			current.DateRange = strings.Join(parts[2:], ", ")
		}
	}
	flush()
	return entries
}

func splitHeader(line string) []string {
	sep := ","
	if strings.Contains(line, "|") {
		sep = "|"
	}
	raw := strings.Split(line, sep)
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

func parseBullets(lines []string) []string {
	var out []string
	for _, line := range lines {
		if strings.HasPrefix(line, "[") {
			continue
		}
		out = append(out, trimBullet(line))
	}
	return out
}

func isBullet(line string) bool {
	for _, prefix := range []string{"-", "•", "*", "·"} {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

func trimBullet(line string) string {
	return strings.TrimSpace(strings.TrimLeft(line, "-•*· "))
}
