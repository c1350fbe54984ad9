package profile

import "fmt"

// Profile describes a supported interview role.
type Profile struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Seniority         string   `json:"seniority"`
	Description       string   `json:"description"`
	FocusAreas        []string `json:"focusAreas"`
	OpeningQuestion   string   `json:"openingQuestion"`
	FallbackQuestions []string `json:"-"`
}

// Seed provides the role profiles the interview engine supports.
func Seed() []Profile {
	return []Profile{
		{
			ID:              "junior-developer",
			Name:            "Junior Developer",
			Seniority:       "junior",
			Description:     "Entry-level software developer shipping features under guidance.",
			FocusAreas:      []string{"fundamentals", "learning mindset", "debugging", "teamwork", "code quality"},
			OpeningQuestion: openingFor("Junior Developer"),
			FallbackQuestions: []string{
				"Describe a bug you tracked down recently. How did you find the root cause?",
				"Tell me about a time you had to learn a new technology quickly. What was your approach?",
				"How do you make sure the code you write is correct before you hand it over for review?",
				"Describe a piece of feedback from a code review that changed how you work.",
				"Tell me about a time you were stuck on a task. What did you do to get unstuck?",
				"Walk me through how you would design a small REST endpoint from request to database.",
			},
		},
		{
			ID:              "senior-developer",
			Name:            "Senior Developer",
			Seniority:       "senior",
			Description:     "Experienced engineer owning system design and mentoring others.",
			FocusAreas:      []string{"system design", "technical leadership", "trade-offs", "reliability", "mentoring"},
			OpeningQuestion: openingFor("Senior Developer"),
			FallbackQuestions: []string{
				"Describe a system you designed end to end. Which trade-offs did you make and why?",
				"Tell me about a production incident you led the response for. What changed afterwards?",
				"How have you helped a less experienced engineer grow on your team?",
				"Describe a time you pushed back on a technical decision. How did it play out?",
				"Tell me about a large refactoring or migration you drove. How did you reduce risk?",
				"How do you decide when a piece of technical debt is worth paying down?",
			},
		},
		{
			ID:              "product-manager",
			Name:            "Product Manager",
			Seniority:       "mid",
			Description:     "Owns product discovery, prioritisation and delivery outcomes.",
			FocusAreas:      []string{"prioritisation", "stakeholder management", "metrics", "user research", "delivery"},
			OpeningQuestion: openingFor("Product Manager"),
			FallbackQuestions: []string{
				"Tell me about a time you had to say no to an important stakeholder. How did you handle it?",
				"Describe how you prioritised a backlog with more demand than capacity.",
				"Which metric did you use to judge the success of a launch, and what did it tell you?",
				"Tell me about a product decision you made based on user research.",
				"Describe a launch that did not go as planned. What did you learn?",
				"How do you align engineering, design and business on a shared roadmap?",
			},
		},
		{
			ID:              "data-analyst",
			Name:            "Data Analyst",
			Seniority:       "mid",
			Description:     "Turns raw data into decisions through analysis and communication.",
			FocusAreas:      []string{"SQL", "statistics", "data quality", "storytelling", "business impact"},
			OpeningQuestion: openingFor("Data Analyst"),
			FallbackQuestions: []string{
				"Describe an analysis that changed a business decision. How did you present it?",
				"Tell me about a time you discovered a data quality problem. What did you do?",
				"How do you explain a statistical result to a non-technical audience?",
				"Walk me through how you would investigate a sudden drop in a key metric.",
				"Tell me about a dashboard or report you built. Who used it and how?",
				"Describe a time your analysis contradicted what stakeholders expected.",
			},
		},
		{
			ID:              "ux-designer",
			Name:            "UX Designer",
			Seniority:       "mid",
			Description:     "Designs user experiences grounded in research and iteration.",
			FocusAreas:      []string{"user research", "prototyping", "accessibility", "collaboration", "design rationale"},
			OpeningQuestion: openingFor("UX Designer"),
			FallbackQuestions: []string{
				"Walk me through a design you iterated on after usability testing.",
				"Tell me about a time you defended a design decision with evidence.",
				"How do you make sure your designs are accessible?",
				"Describe how you collaborate with engineers when a design is hard to build.",
				"Tell me about a research insight that surprised you. What did you change?",
				"Describe a project where you had to balance user needs with business goals.",
			},
		},
	}
}

func openingFor(role string) string {
	return fmt.Sprintf("Welcome. For the role of %s, can you tell me about a specific project or achievement you are especially proud of?", role)
}
