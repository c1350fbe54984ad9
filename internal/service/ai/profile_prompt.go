package ai

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/interview-coach/backend/internal/model/profile"
)

// PromptTemplate defines the interviewer persona for a seniority band.
type PromptTemplate struct {
	SystemPrompt     string
	InterviewerHints []string
	ContextRules     []string
}

// ProfilePromptManager manages interviewer prompt templates.
type ProfilePromptManager struct {
	templates map[string]*PromptTemplate
}

// NewProfilePromptManager creates a prompt manager with the default templates.
func NewProfilePromptManager() *ProfilePromptManager {
	manager := &ProfilePromptManager{
		templates: make(map[string]*PromptTemplate),
	}
	manager.loadDefaultTemplates()
	return manager
}

// GetPromptTemplate returns the template for a seniority band.
func (pm *ProfilePromptManager) GetPromptTemplate(seniority string) (*PromptTemplate, error) {
	template, exists := pm.templates[seniority]
	if !exists {
		return nil, fmt.Errorf("prompt template not found for seniority: %s", seniority)
	}
	return template, nil
}

// BuildSystemPrompt creates the interviewer preamble for a role profile.
func (pm *ProfilePromptManager) BuildSystemPrompt(p profile.Profile) string {
	template, err := pm.GetPromptTemplate(p.Seniority)
	if err != nil {
		return pm.buildBasicSystemPrompt(p)
	}

	return fmt.Sprintf(`%s

Role: %s
About the role: %s
Focus areas: %s

Interviewer hints:
- %s

Rules:
- %s`,
		template.SystemPrompt,
		p.Name,
		p.Description,
		strings.Join(p.FocusAreas, ", "),
		strings.Join(template.InterviewerHints, "\n- "),
		strings.Join(template.ContextRules, "\n- "),
	)
}

func (pm *ProfilePromptManager) buildBasicSystemPrompt(p profile.Profile) string {
	return fmt.Sprintf(`You are a senior hiring manager interviewing a candidate for the role '%s'.
Focus areas: %s
Always answer in English and stay strictly within the requested output format.`,
		p.Name,
		strings.Join(p.FocusAreas, ", "),
	)
}

func (pm *ProfilePromptManager) loadDefaultTemplates() {
	pm.templates["junior"] = &PromptTemplate{
		SystemPrompt: "You are a supportive but rigorous hiring manager interviewing an early-career candidate.",
		InterviewerHints: []string{
			"Probe fundamentals and how the candidate learns, not years of experience",
			"Reward concrete examples over buzzwords",
			"Keep questions open-ended and answerable from school, side or first-job projects",
		},
		ContextRules: []string{
			"Ask exactly one question at a time",
			"Never repeat a question that was already asked",
			"Always answer in English and stay strictly within the requested output format",
		},
	}

	pm.templates["mid"] = &PromptTemplate{
		SystemPrompt: "You are an experienced hiring manager running a structured behavioural interview.",
		InterviewerHints: []string{
			"Look for ownership, measurable outcomes and collaboration",
			"Follow up on vague claims by asking for specifics",
			"Balance behavioural and role-specific questions",
		},
		ContextRules: []string{
			"Ask exactly one question at a time",
			"Never repeat a question that was already asked",
			"Always answer in English and stay strictly within the requested output format",
		},
	}

	pm.templates["senior"] = &PromptTemplate{
		SystemPrompt: "You are a principal-level interviewer assessing a senior candidate.",
		InterviewerHints: []string{
			"Probe trade-offs, failure modes and the reasoning behind decisions",
			"Expect leadership and influence beyond the candidate's own work",
			"Push for depth when answers stay at the surface",
		},
		ContextRules: []string{
			"Ask exactly one question at a time",
			"Never repeat a question that was already asked",
			"Always answer in English and stay strictly within the requested output format",
		},
	}
}
