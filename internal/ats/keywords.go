package ats

// Vocabulary used for keyword extraction and category matching.

var technicalSkills = []string{
	"javascript", "python", "java", "react", "node.js", "sql", "aws", "docker",
	"kubernetes", "git", "agile", "scrum", "machine learning", "data analysis",
	"html", "css", "typescript", "angular", "vue", "mongodb", "postgresql",
	"redis", "elasticsearch", "kafka", "microservices", "api", "rest", "graphql",
	"tensorflow", "pytorch", "pandas", "numpy", "scikit-learn", "jupyter",
	"jenkins", "terraform", "ansible", "linux", "bash", "powershell",
	"tableau", "power bi", "excel", "vba", "matlab", "spark", "hadoop",
}

var softSkills = []string{
	"leadership", "communication", "teamwork", "problem solving", "project management",
	"collaboration", "time management", "adaptability", "creativity", "analytical",
	"critical thinking", "attention to detail", "multitasking", "mentoring",
	"negotiation", "presentation", "writing", "research", "organization",
	"customer service", "sales", "marketing", "strategy", "innovation",
}

var actionVerbs = []string{
	"led", "developed", "implemented", "increased", "improved", "managed", "created",
	"designed", "built", "launched", "optimized", "streamlined", "coordinated",
	"supervised", "trained", "mentored", "collaborated", "delivered", "achieved",
	"accomplished", "executed", "facilitated", "initiated", "organized", "planned",
}
