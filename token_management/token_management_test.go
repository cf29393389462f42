package token_management

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(0))
	assert.Equal(t, 0, EstimateTokens(-3))
	assert.Equal(t, 1, EstimateTokens(1))
	assert.Equal(t, 1, EstimateTokens(4))
	assert.Equal(t, 2, EstimateTokens(5))
	assert.Equal(t, 15000, EstimateTokens(60000))
}

func TestTokenManager_Usage(t *testing.T) {
	tm := NewTokenManager()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tm.UsedTokens(100, 20)
		}()
	}
	wg.Wait()

	total, input, output := tm.GetCurrentTokenUsage()
	assert.Equal(t, 1200, total)
	assert.Equal(t, 1000, input)
	assert.Equal(t, 200, output)
}

func TestCalculateCost(t *testing.T) {
	tm := NewTokenManager()

	assert.InDelta(t, 0.15+0.6, tm.CalculateCost("openai", "gpt-4o-mini", 1_000_000, 1_000_000), 1e-9)
	assert.InDelta(t, 0.15+0.6, tm.CalculateCost("openai", "GPT-4o-Mini", 1_000_000, 1_000_000), 1e-9)
	assert.Zero(t, tm.CalculateCost("ollama", "llama3.1", 1000, 1000))
}

func TestMaxInputTokens(t *testing.T) {
	assert.Equal(t, 128000, MaxInputTokens("openai", "gpt-4o-mini"))
	assert.Zero(t, MaxInputTokens("ollama", "unknown-model"))
}
