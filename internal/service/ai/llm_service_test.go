package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/interview-coach/backend/internal/model/profile"
	"github.com/zhouzirui/interview-coach/backend/internal/service/ai/aitest"
)

func TestCompleterDisabledWithoutModel(t *testing.T) {
	c, err := NewCompleter(context.Background(), nil, time.Second)
	require.NoError(t, err)
	assert.False(t, c.Enabled())

	_, err = c.Complete(context.Background(), "sys", "q")
	assert.True(t, errors.Is(err, ErrDisabled))
}

func TestCompleterPassesPromptsThrough(t *testing.T) {
	fake := aitest.Replies("  hello there  ")
	c, err := NewCompleter(context.Background(), fake, time.Second)
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), "system {with braces}", "query text")
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)
	assert.Contains(t, fake.LastPrompt(), "system {with braces}")
	assert.Contains(t, fake.LastPrompt(), "query text")
}

func TestCompleterTimesOut(t *testing.T) {
	c, err := NewCompleter(context.Background(), aitest.Hanging(), 20*time.Millisecond)
	require.NoError(t, err)

	start := time.Now()
	_, err = c.Complete(context.Background(), "s", "q")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestCompleterEmptyReply(t *testing.T) {
	c, err := NewCompleter(context.Background(), aitest.Replies("   "), time.Second)
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "s", "q")
	assert.True(t, errors.Is(err, ErrEmptyCompletion))
}

func TestBuildSystemPromptUsesSeniorityTemplate(t *testing.T) {
	pm := NewProfilePromptManager()
	profiles := profile.Seed()

	out := pm.BuildSystemPrompt(profiles[0])
	assert.Contains(t, out, "Junior Developer")
	assert.Contains(t, out, "early-career")

	custom := profile.Profile{Name: "Astronaut", Seniority: "legendary", FocusAreas: []string{"space"}}
	basic := pm.BuildSystemPrompt(custom)
	assert.True(t, strings.HasPrefix(basic, "You are a senior hiring manager"))
}

func TestTruncateToTokens(t *testing.T) {
	long := strings.Repeat("word ", 500)
	out := TruncateToTokens(long, 10)
	assert.Less(t, len(out), len(long))
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.Equal(t, "short", TruncateToTokens("short", 10))
}

func TestTruncateToTokensKeepsValidUTF8(t *testing.T) {
	long := strings.Repeat("面试练习🙂", 200)
	for _, limit := range []int{1, 3, 7, 25} {
		out := TruncateToTokens(long, limit)
		assert.True(t, utf8.ValidString(out), "limit %d produced invalid utf-8", limit)
		assert.True(t, strings.HasSuffix(out, "..."))
	}
}

func TestCountTokens(t *testing.T) {
	assert.Equal(t, 0, CountTokens(""))
	short := CountTokens("Tell me about yourself.")
	long := CountTokens(strings.Repeat("Tell me about yourself. ", 20))
	assert.Positive(t, short)
	assert.Greater(t, long, short)
	assert.LessOrEqual(t, CountTokens(TruncateToTokens(strings.Repeat("alpha ", 1000), 50)), 60)
}
