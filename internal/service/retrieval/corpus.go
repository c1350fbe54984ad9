package retrieval

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadCorpus reads a JSON array of documents.
func LoadCorpus(path string) ([]Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus %s: %w", path, err)
	}

	var docs []Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("failed to parse corpus %s: %w", path, err)
	}
	return docs, nil
}

// SeedCorpus is the built-in interview coaching knowledge base.
func SeedCorpus() []Document {
	return []Document{
		{
			ID:   "star-method",
			Text: "Structure behavioural answers with the STAR method: describe the Situation, the Task you owned, the Actions you took, and the measurable Result.",
			Tags: []string{"structure", "behavioural"},
		},
		{
			ID:   "quantify-impact",
			Text: "Quantify impact whenever possible. Numbers such as revenue, latency, users, or time saved make a project achievement concrete and credible.",
			Tags: []string{"content"},
		},
		{
			ID:   "own-the-i",
			Text: "Say what you personally did. Interviewers want to hear 'I designed' or 'I led' rather than only 'we', so your individual contribution to the team is clear.",
			Tags: []string{"content", "communication"},
		},
		{
			ID:   "concise-answers",
			Text: "Keep answers concise: aim for one to two minutes, lead with the headline, then add detail. Rambling answers lose the interviewer.",
			Tags: []string{"communication"},
		},
		{
			ID:   "failure-stories",
			Text: "When asked about a failure or mistake, own it, explain what you learned, and show how you changed your process afterwards.",
			Tags: []string{"behavioural", "content"},
		},
		{
			ID:   "conflict-resolution",
			Text: "For conflict or disagreement questions, show empathy for the other side, focus on shared goals and data, and describe how the team reached a decision.",
			Tags: []string{"behavioural", "teamwork"},
		},
		{
			ID:   "system-design-tradeoffs",
			Text: "In system design answers, state requirements and constraints first, then discuss trade-offs such as consistency versus availability, cost, and scalability.",
			Tags: []string{"technical", "design"},
		},
		{
			ID:   "debugging-approach",
			Text: "Describe debugging systematically: reproduce the bug, form a hypothesis, narrow the scope with logs or tests, fix the root cause, and add a regression test.",
			Tags: []string{"technical"},
		},
		{
			ID:   "learning-mindset",
			Text: "Show a learning mindset by describing how you picked up a new technology quickly: documentation, small experiments, asking for feedback, and applying it to a real task.",
			Tags: []string{"growth"},
		},
		{
			ID:   "product-prioritization",
			Text: "For product prioritization, explain the framework you used, such as RICE or impact versus effort, the user data behind it, and how you aligned stakeholders.",
			Tags: []string{"product"},
		},
		{
			ID:   "metrics-definition",
			Text: "Define success metrics explicitly: a north star metric, supporting metrics, and guardrail metrics that make sure a launch does not harm users.",
			Tags: []string{"product", "data"},
		},
		{
			ID:   "data-storytelling",
			Text: "When presenting analysis, tell a story with the data: the business question, the method, the key insight, and the recommendation for stakeholders.",
			Tags: []string{"data", "communication"},
		},
		{
			ID:   "design-process",
			Text: "Walk through the design process: user research, problem framing, sketching and prototyping, usability testing, and iterating on feedback.",
			Tags: []string{"design"},
		},
		{
			ID:   "mentoring-leadership",
			Text: "Leadership answers should show how you mentored others, set technical direction, and influenced decisions without formal authority.",
			Tags: []string{"leadership"},
		},
		{
			ID:   "closing-questions",
			Text: "Prepare thoughtful questions for the interviewer about the team, its challenges, and how success is measured in the role.",
			Tags: []string{"closing"},
		},
	}
}
