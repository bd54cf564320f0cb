package llm

import (
	"errors"
	"fmt"
	"strings"
)

// Tone selects the writing style of the optimized resume.
type Tone string

const (
	ToneProfessional Tone = "professional"
	ToneTech         Tone = "tech"
	ToneCreative     Tone = "creative"
)

// ErrUnknownTone is returned for tones outside the supported set.
var ErrUnknownTone = errors.New("unknown tone")

// ParseTone validates a tone value. Empty input defaults to professional.
func ParseTone(s string) (Tone, error) {
	switch Tone(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return ToneProfessional, nil
	case ToneProfessional:
		return ToneProfessional, nil
	case ToneTech:
		return ToneTech, nil
	case ToneCreative:
		return ToneCreative, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTone, s)
	}
}

var toneInstructions = map[Tone]string{
	ToneProfessional: "Use a formal, corporate tone with traditional business language and focus on achievements and responsibilities.",
	ToneTech:         "Use modern, technical language with industry-specific terminology, focus on technical achievements, and emphasize innovation and problem-solving.",
	ToneCreative:     "Use innovative, dynamic language that showcases creativity, forward-thinking approach, and artistic sensibility while maintaining professionalism.",
}

// BuildOptimizationPrompt assembles the rewrite prompt for the model.
func BuildOptimizationPrompt(resumeText, jobDescription string, tone Tone) string {
	instruction, ok := toneInstructions[tone]
	if !ok {
		instruction = toneInstructions[ToneProfessional]
	}

	return fmt.Sprintf(`You are an expert ATS (Applicant Tracking System) resume optimizer and career coach with 10+ years of experience helping professionals land their dream jobs.

TASK: Rewrite and optimize the following resume to maximize ATS compatibility and job match for the specific role.

TONE REQUIREMENT: %s

JOB DESCRIPTION:
%s

ORIGINAL RESUME:
%s

OPTIMIZATION REQUIREMENTS:
1. Use keywords from the job description naturally throughout the resume
2. Quantify achievements with specific numbers, percentages, and metrics
3. Use strong action verbs (Led, Developed, Implemented, Increased, etc.)
4. Ensure ATS-friendly formatting (no tables, simple layout)
5. Match the tone specified: %s
6. Keep content truthful but enhance impact and relevance
7. Focus on experience most relevant to this specific role
8. Include a compelling professional summary
9. Organize sections logically: Contact, Summary, Experience, Skills, Education
10. Remove any irrelevant information that doesn't support the target role

OUTPUT FORMAT:
Provide the optimized resume in the following structure:

**CONTACT INFORMATION**
[Name, Email, Phone, Location, LinkedIn (if available)]

**PROFESSIONAL SUMMARY**
[2-3 sentences highlighting key qualifications and value proposition for this specific role]

**PROFESSIONAL EXPERIENCE**
[Each role with: Job Title, Company, Dates, 3-4 bullet points with quantified achievements]

**KEY SKILLS**
[Relevant technical and soft skills from job description, organized by category]

**EDUCATION**
[Degree, Institution, Year, relevant coursework or achievements if applicable]

**ADDITIONAL SECTIONS** (if relevant)
[Certifications, Projects, Languages, etc. - only if they support the target role]

IMPORTANT GUIDELINES:
- Make sure the resume is ATS-optimized with relevant keywords
- Quantify achievements with specific metrics and numbers
- Tailor content specifically to the job description
- Use professional, compelling language
- Ensure the resume is ready for immediate use
- Focus on results and impact, not just responsibilities
- Use industry-standard terminology from the job description

Generate the complete optimized resume now:`, instruction, jobDescription, resumeText, tone)
}
