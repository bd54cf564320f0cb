package ats

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Category weights for the overall score.
const (
	weightKeyword     = 0.30
	weightTechnical   = 0.25
	weightSoftSkills  = 0.15
	weightExperience  = 0.15
	weightEducation   = 0.10
	weightActionVerbs = 0.05
)

// Tier labels for the overall score.
const (
	TierGood     = "good"
	TierModerate = "moderate"
	TierPoor     = "poor"
)

// CategoryScore is the match result for one scoring category.
type CategoryScore struct {
	Score      float64  `json:"score"`
	Matched    []string `json:"matched,omitempty"`
	Total      int      `json:"total,omitempty"`
	Percentage float64  `json:"percentage"`
}

// Result is the full ATS compatibility analysis.
type Result struct {
	Score           int           `json:"score"`
	Tier            string        `json:"tier"`
	GaugeFill       float64       `json:"gaugeFill"`
	Keyword         CategoryScore `json:"keyword"`
	Technical       CategoryScore `json:"technical"`
	SoftSkills      CategoryScore `json:"softSkills"`
	Experience      CategoryScore `json:"experience"`
	Education       CategoryScore `json:"education"`
	ActionVerbs     CategoryScore `json:"actionVerbs"`
	MatchedKeywords []string      `json:"matchedKeywords"`
	MissingKeywords []string      `json:"missingKeywords"`
	Suggestions     []string      `json:"suggestions"`
}

var (
	capitalizedPhrase = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
	yearsPattern      = regexp.MustCompile(`(\d+)\+?\s*years?`)
	digitPattern      = regexp.MustCompile(`\d`)
)

// Score computes the ATS compatibility of a resume against a job description.
func Score(resumeText, jobText string) Result {
	jobKeywords := extractJobKeywords(jobText)
	resumeKeywords := extractResumeKeywords(resumeText)

	keyword := matchLists(jobKeywords, resumeKeywords)
	technical := matchVocabulary(technicalSkills, resumeText, jobText)
	soft := matchVocabulary(softSkills, resumeText, jobText)
	experience := experienceScore(resumeText, jobText)
	education := educationScore(resumeText, jobText)
	verbs := actionVerbsScore(resumeText)

	overall := weightKeyword*keyword.Percentage +
		weightTechnical*technical.Percentage +
		weightSoftSkills*soft.Percentage +
		weightExperience*experience.Score +
		weightEducation*education.Score +
		weightActionVerbs*verbs.Score

	score := int(math.Round(overall))
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	matched := intersect(jobKeywords, resumeKeywords)
	missing := subtract(jobKeywords, resumeKeywords)

	return Result{
		Score:           score,
		Tier:            tierFor(score),
		GaugeFill:       float64(score) / 100,
		Keyword:         keyword,
		Technical:       technical,
		SoftSkills:      soft,
		Experience:      experience,
		Education:       education,
		ActionVerbs:     verbs,
		MatchedKeywords: matched,
		MissingKeywords: missing,
		Suggestions:     suggestions(score, missing, resumeText),
	}
}

func tierFor(score int) string {
	switch {
	case score >= 80:
		return TierGood
	case score >= 60:
		return TierModerate
	default:
		return TierPoor
	}
}

func extractJobKeywords(jobText string) []string {
	if strings.TrimSpace(jobText) == "" {
		return nil
	}
	lower := strings.ToLower(jobText)

	var keywords []string
	keywords = append(keywords, containedTerms(technicalSkills, lower)...)
	keywords = append(keywords, containedTerms(softSkills, lower)...)
	keywords = append(keywords, capitalizedTerms(jobText)...)

	if yearsPattern.MatchString(lower) {
		keywords = append(keywords, "years experience")
	}
	for _, level := range []string{"senior", "junior", "lead"} {
		if strings.Contains(lower, level) {
			keywords = append(keywords, level)
		}
	}

	return dedupe(keywords)
}

func extractResumeKeywords(resumeText string) []string {
	if strings.TrimSpace(resumeText) == "" {
		return nil
	}
	lower := strings.ToLower(resumeText)

	var keywords []string
	keywords = append(keywords, containedTerms(technicalSkills, lower)...)
	keywords = append(keywords, containedTerms(softSkills, lower)...)
	keywords = append(keywords, containedTerms(actionVerbs, lower)...)
	keywords = append(keywords, capitalizedTerms(resumeText)...)

	return dedupe(keywords)
}

func capitalizedTerms(text string) []string {
	var out []string
	for _, m := range capitalizedPhrase.FindAllString(text, -1) {
		if len(m) > 2 {
			out = append(out, strings.ToLower(m))
		}
	}
	return out
}

func containedTerms(vocabulary []string, lowerText string) []string {
	var found []string
	for _, term := range vocabulary {
		if strings.Contains(lowerText, term) {
			found = append(found, term)
		}
	}
	return found
}

func matchLists(jobKeywords, resumeKeywords []string) CategoryScore {
	if len(jobKeywords) == 0 {
		return CategoryScore{}
	}
	matched := intersect(jobKeywords, resumeKeywords)
	pct := float64(len(matched)) / float64(len(jobKeywords)) * 100
	return CategoryScore{
		Score:      float64(len(matched)),
		Matched:    matched,
		Total:      len(jobKeywords),
		Percentage: round2(pct),
	}
}

func matchVocabulary(vocabulary []string, resumeText, jobText string) CategoryScore {
	jobTerms := containedTerms(vocabulary, strings.ToLower(jobText))
	resumeTerms := containedTerms(vocabulary, strings.ToLower(resumeText))
	return matchLists(jobTerms, resumeTerms)
}

// experienceScore compares years of experience. Missing requirements in the
// job text score a neutral 50.
func experienceScore(resumeText, jobText string) CategoryScore {
	jobYears := extractYears(jobText)
	resumeYears := extractYears(resumeText)

	if jobYears == 0 {
		return CategoryScore{Score: 50, Percentage: 50}
	}

	var score float64
	switch {
	case resumeYears >= jobYears:
		score = 100
	case float64(resumeYears) >= float64(jobYears)*0.8:
		score = 80
	case float64(resumeYears) >= float64(jobYears)*0.6:
		score = 60
	default:
		score = 30
	}
	return CategoryScore{Score: score, Percentage: score}
}

func educationScore(resumeText, jobText string) CategoryScore {
	required := educationTerms(jobText)
	held := educationTerms(resumeText)

	if len(required) == 0 {
		return CategoryScore{Score: 50, Percentage: 50, Matched: held}
	}

	for _, req := range required {
		for _, h := range held {
			if req == h {
				return CategoryScore{Score: 100, Percentage: 100, Matched: held, Total: len(required)}
			}
		}
	}
	return CategoryScore{Score: 30, Percentage: 30, Matched: held, Total: len(required)}
}

func educationTerms(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	if strings.Contains(lower, "bachelor") {
		out = append(out, "Bachelor's Degree")
	}
	if strings.Contains(lower, "master") {
		out = append(out, "Master's Degree")
	}
	if strings.Contains(lower, "phd") || strings.Contains(lower, "doctorate") {
		out = append(out, "PhD")
	}
	if strings.Contains(lower, "certification") || strings.Contains(lower, "certified") {
		out = append(out, "Certification")
	}
	return out
}

// actionVerbsScore grants 10 points per verb found, capped at 100.
func actionVerbsScore(resumeText string) CategoryScore {
	found := containedTerms(actionVerbs, strings.ToLower(resumeText))
	score := float64(len(found) * 10)
	if score > 100 {
		score = 100
	}
	return CategoryScore{Score: score, Percentage: score, Matched: found, Total: len(found)}
}

func extractYears(text string) int {
	maxYears := 0
	for _, m := range yearsPattern.FindAllStringSubmatch(strings.ToLower(text), -1) {
		if years, err := strconv.Atoi(m[1]); err == nil && years > maxYears {
			maxYears = years
		}
	}
	return maxYears
}

func suggestions(score int, missing []string, resumeText string) []string {
	var out []string

	if score < 60 {
		out = append(out, "Add more relevant keywords from the job description")
	}
	if len(missing) > 0 {
		top := missing
		if len(top) > 5 {
			top = top[:5]
		}
		out = append(out, fmt.Sprintf("Consider adding these keywords: %s", strings.Join(top, ", ")))
	}
	if !digitPattern.MatchString(resumeText) {
		out = append(out, "Add quantified achievements with specific numbers and metrics")
	}
	if len(containedTerms(actionVerbs, strings.ToLower(resumeText))) < 3 {
		out = append(out, "Use more strong action verbs to describe your achievements")
	}
	lower := strings.ToLower(resumeText)
	if !strings.Contains(lower, "summary") && !strings.Contains(lower, "objective") && !strings.Contains(lower, "profile") {
		out = append(out, "Add a compelling professional summary section")
	}
	return out
}

func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, s := range b {
		set[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := set[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

func subtract(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, s := range b {
		set[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := set[s]; !ok {
			out = append(out, s)
		}
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	var out []string
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
