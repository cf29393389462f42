package token_management

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/meysamhadeli/repoaudit/constants/lipgloss"
	"github.com/meysamhadeli/repoaudit/embed_data"
	"github.com/meysamhadeli/repoaudit/token_management/contracts"
)

// CharsPerToken converts the character budget into an estimated token count.
const CharsPerToken = 4

// EstimateTokens rounds a character count up to whole tokens.
func EstimateTokens(chars int) int {
	if chars <= 0 {
		return 0
	}
	return (chars + CharsPerToken - 1) / CharsPerToken
}

// TokenManager implementation
type tokenManager struct {
	mu              sync.Mutex
	usedToken       int
	usedInputToken  int
	usedOutputToken int
}

type details struct {
	MaxTokens                  int     `json:"max_tokens"`
	MaxInputTokens             int     `json:"max_input_tokens"`
	MaxOutputTokens            int     `json:"max_output_tokens"`
	InputCostPerMillionTokens  float64 `json:"input_cost_per_million_tokens,omitempty"`
	OutputCostPerMillionTokens float64 `json:"output_cost_per_million_tokens,omitempty"`
	Mode                       string  `json:"mode"`
}

type Models struct {
	ModelDetails map[string]details `json:"models"`
}

// NewTokenManager creates a new token manager
func NewTokenManager() contracts.ITokenManagement {
	return &tokenManager{}
}

// UsedTokens accumulates the token count for the session.
func (tm *tokenManager) UsedTokens(inputToken int, outputToken int) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.usedInputToken += inputToken
	tm.usedOutputToken += outputToken
	tm.usedToken += inputToken + outputToken
}

func (tm *tokenManager) DisplayTokens(chatProviderName string, chatModel string) {
	total, input, output := tm.GetCurrentTokenUsage()
	cost := tm.CalculateCost(chatProviderName, chatModel, input, output)

	tokenInfo := fmt.Sprintf("Token Used: %d (input %d / output %d) - Cost: %.6f $ - Chat Model: %s", total, input, output, cost, chatModel)

	fmt.Println(lipgloss.BoxStyle.Render(tokenInfo))
}

func (tm *tokenManager) GetCurrentTokenUsage() (total int, input int, output int) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.usedToken, tm.usedInputToken, tm.usedOutputToken
}

func (tm *tokenManager) CalculateCost(providerName string, modelName string, inputToken int, outputToken int) float64 {
	modelDetails, err := getModelDetails(providerName, modelName)
	if err != nil {
		return 0
	}
	inputCost := float64(inputToken) * modelDetails.InputCostPerMillionTokens / 1000000.0
	outputCost := float64(outputToken) * modelDetails.OutputCostPerMillionTokens / 1000000.0

	return inputCost + outputCost
}

// MaxInputTokens returns the context window of a known model, or zero.
func MaxInputTokens(providerName string, modelName string) int {
	modelDetails, err := getModelDetails(providerName, modelName)
	if err != nil {
		return 0
	}
	return modelDetails.MaxInputTokens
}

func getModelDetails(providerName string, modelName string) (details, error) {
	providerName = strings.ToLower(providerName)
	modelName = strings.ToLower(modelName)

	models := Models{
		ModelDetails: make(map[string]details),
	}

	if err := json.Unmarshal(embed_data.ModelDetails, &models); err != nil {
		slog.Warn("failed to decode model details", "error", err)
		return details{}, err
	}

	model, exists := models.ModelDetails[modelName]
	if !exists {
		return details{}, fmt.Errorf("model details price with name '%s' not found for provider '%s'", modelName, providerName)
	}

	return model, nil
}
