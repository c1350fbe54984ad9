// Package rubric validates rubric evaluations produced by the generative model.
package rubric

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/zhouzirui/interview-coach/backend/internal/analysis/modelout"
	"github.com/zhouzirui/interview-coach/backend/internal/model/interview"
)

const (
	MinScore     = 0
	MaxScore     = 100
	NeutralScore = 50
	MaxBullets   = 6

	FallbackBullet = "Automatic scoring was unavailable for this answer; scores are neutral placeholders."
)

// Dimension names one rubric axis.
type Dimension string

const (
	Content       Dimension = "content"
	Structure     Dimension = "structure"
	Communication Dimension = "communication"
)

// Dimensions lists the rubric axes in their canonical order.
var Dimensions = []Dimension{Content, Structure, Communication}

// Evaluation is a validated rubric result for one answer.
type Evaluation struct {
	Scores   interview.Scores
	Bullets  []string
	Degraded bool
}

// Fallback is the deterministic minimal-confidence evaluation.
func Fallback() Evaluation {
	return Evaluation{
		Scores: interview.Scores{
			Content:       NeutralScore,
			Structure:     NeutralScore,
			Communication: NeutralScore,
		},
		Bullets:  []string{FallbackBullet},
		Degraded: true,
	}
}

type payload struct {
	Content         json.RawMessage `json:"content"`
	Structure       json.RawMessage `json:"structure"`
	Communication   json.RawMessage `json:"communication"`
	Scores          *payload        `json:"scores"`
	Bullets         []string        `json:"bullets"`
	FeedbackBullets []string        `json:"feedback_bullets"`
}

// Parse validates raw model output. Scores outside [0,100] are clamped; a
// missing or non-numeric score is an error.
func Parse(content string, maxBullets int) (Evaluation, error) {
	var p payload
	if err := modelout.DecodeObject(content, &p); err != nil {
		return Evaluation{}, err
	}

	src := &p
	if len(p.Content) == 0 && p.Scores != nil {
		src = p.Scores
	}

	var scores interview.Scores
	var err error
	if scores.Content, err = parseScore(Content, src.Content); err != nil {
		return Evaluation{}, err
	}
	if scores.Structure, err = parseScore(Structure, src.Structure); err != nil {
		return Evaluation{}, err
	}
	if scores.Communication, err = parseScore(Communication, src.Communication); err != nil {
		return Evaluation{}, err
	}

	bullets := p.Bullets
	if len(bullets) == 0 {
		bullets = p.FeedbackBullets
	}

	return Evaluation{
		Scores:  scores,
		Bullets: NormalizeBullets(bullets, maxBullets),
	}, nil
}

var errMissingScore = errors.New("missing score")

func parseScore(dim Dimension, raw json.RawMessage) (int, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("%s: %w", dim, errMissingScore)
	}

	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		return Clamp(num), nil
	}
	// overflowing literals such as 1e400 parse to ±Inf
	if num, err := strconv.ParseFloat(string(raw), 64); errors.Is(err, strconv.ErrRange) {
		return Clamp(num), nil
	}

	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return 0, fmt.Errorf("%s: unsupported score %s", dim, string(raw))
	}
	num, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(str), "%"), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("%s: invalid score %q: %w", dim, str, err)
	}
	return Clamp(num), nil
}

// Clamp rounds v and bounds it to [MinScore, MaxScore].
func Clamp(v float64) int {
	switch {
	case math.IsNaN(v):
		return NeutralScore
	case v <= MinScore:
		return MinScore
	case v >= MaxScore:
		return MaxScore
	}
	// bounded before the conversion, out-of-range floats do not convert to int
	return int(math.Round(v))
}

// NormalizeBullets trims, drops empties and case-insensitive duplicates, and
// keeps at most limit entries. A non-positive limit means MaxBullets.
func NormalizeBullets(raw []string, limit int) []string {
	if limit <= 0 {
		limit = MaxBullets
	}

	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, b := range raw {
		b = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(b), "-*•"))
		if b == "" {
			continue
		}
		key := strings.ToLower(b)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, b)
		if len(out) == limit {
			break
		}
	}
	return out
}

// Value returns the score for one dimension.
func Value(s interview.Scores, dim Dimension) int {
	switch dim {
	case Content:
		return s.Content
	case Structure:
		return s.Structure
	case Communication:
		return s.Communication
	default:
		return 0
	}
}
