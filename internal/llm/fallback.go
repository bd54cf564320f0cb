package llm

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// fallbackSkills is the vocabulary mined from the job description when the
// model backend is unavailable.
var fallbackSkills = []string{
	"javascript", "python", "java", "react", "node.js", "sql", "aws", "docker",
	"kubernetes", "git", "agile", "scrum", "machine learning", "data analysis",
}

// FallbackOptimize produces a deterministic skeleton resume when no model is
// reachable. The output keeps the same section structure the model is asked for.
func FallbackOptimize(input OptimizeInput) OptimizeResult {
	keywords := extractFallbackKeywords(input.JobDescription)

	titler := cases.Title(language.English)
	var b strings.Builder
	b.WriteString("**CONTACT INFORMATION**\n")
	b.WriteString("[Add your contact details here]\n\n")
	b.WriteString("**PROFESSIONAL SUMMARY**\n")
	b.WriteString("Results-driven professional with expertise in key areas relevant to this position.\n\n")
	b.WriteString("**PROFESSIONAL EXPERIENCE**\n")
	b.WriteString("[Your work experience with quantified achievements]\n\n")
	b.WriteString("**KEY SKILLS**\n")
	for i, kw := range keywords {
		if i >= 10 {
			break
		}
		b.WriteString("• " + titler.String(kw) + "\n")
	}
	b.WriteString("\n**EDUCATION**\n")
	b.WriteString("[Your educational background]")

	return OptimizeResult{
		Text:   b.String(),
		Model:  "fallback",
		Method: "rule_based_optimization",
	}
}

func extractFallbackKeywords(jobDescription string) []string {
	if jobDescription == "" {
		return nil
	}
	lower := strings.ToLower(jobDescription)
	var found []string
	for _, skill := range fallbackSkills {
		if strings.Contains(lower, skill) {
			found = append(found, skill)
		}
	}
	return found
}
