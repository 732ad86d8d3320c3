package gemini

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gitlab.com/yelinaung/drain-bot/internal/logger"
	"gitlab.com/yelinaung/drain-bot/internal/models"
	"google.golang.org/genai"
)

// MaxServiceNameLength is the longest service name embedded in a prompt.
const MaxServiceNameLength = 100

// MaxCategoryNameLength is the maximum allowed length for category names.
const MaxCategoryNameLength = 50

// MinConfidence is the lowest confidence CategoryFor accepts.
const MinConfidence = 0.5

var errLowConfidence = errors.New("suggestion confidence too low")

// CategorySuggestion represents a suggested category for a subscription.
type CategorySuggestion struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// CategoryFor suggests one of the subscription categories for serviceName.
// Suggestions below MinConfidence are rejected so the caller can fall back.
func (c *Client) CategoryFor(ctx context.Context, serviceName string) (models.Category, error) {
	suggestion, err := c.SuggestCategory(ctx, serviceName, models.CategoryNames())
	if err != nil {
		return "", err
	}
	if suggestion.Confidence < MinConfidence {
		return "", fmt.Errorf("%w: %.2f", errLowConfidence, suggestion.Confidence)
	}
	category, ok := models.ParseCategory(suggestion.Category)
	if !ok {
		return "", fmt.Errorf("unknown category %q", suggestion.Category)
	}
	return category, nil
}

// SuggestCategory uses Gemini to pick the best category for a subscription service.
func (c *Client) SuggestCategory(ctx context.Context, serviceName string, availableCategories []string) (*CategorySuggestion, error) {
	nameHash := hashServiceName(serviceName)
	logger.Log.Debug().
		Str("service_hash", nameHash).
		Int("category_count", len(availableCategories)).
		Msg("SuggestCategory called")

	if c.generator == nil {
		logger.Log.Error().Msg("SuggestCategory: gemini client not initialized")
		return nil, fmt.Errorf("gemini client not initialized")
	}

	if strings.TrimSpace(serviceName) == "" {
		return nil, fmt.Errorf("service name is required")
	}

	if len(availableCategories) == 0 {
		return nil, fmt.Errorf("no categories available")
	}

	prompt := buildCategorySuggestionPrompt(sanitizeServiceName(serviceName), availableCategories)

	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: prompt},
			},
		},
	}

	temp := float32(0.2)
	config := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: int32(300),
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{
				{Text: "You are a JSON API. You MUST respond with ONLY valid JSON, no preamble or explanation. Output a single JSON object."},
			},
		},
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"category": {
					Type:        genai.TypeString,
					Enum:        availableCategories,
					Description: "The most appropriate category from the provided list",
				},
				"confidence": {
					Type:        genai.TypeNumber,
					Description: "Confidence score between 0 and 1",
				},
				"reasoning": {
					Type:        genai.TypeString,
					Description: "Brief explanation for the categorization",
				},
			},
			Required: []string{"category", "confidence", "reasoning"},
		},
	}

	resp, err := c.generator.GenerateContent(timeoutCtx, ModelName, contents, config)
	if err != nil {
		logger.Log.Error().Err(err).
			Str("service_hash", nameHash).
			Msg("SuggestCategory: Gemini API call failed")
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}

	if resp == nil {
		return nil, fmt.Errorf("no response from Gemini")
	}

	fullText := resp.Text()
	if fullText == "" {
		logger.Log.Warn().
			Str("service_hash", nameHash).
			Msg("SuggestCategory: no text content in Gemini response")
		return nil, fmt.Errorf("no text content in response")
	}

	// Gemini sometimes includes preamble text even in JSON mode.
	jsonText := extractJSON(fullText)
	if jsonText == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var suggestion CategorySuggestion
	if err := json.Unmarshal([]byte(jsonText), &suggestion); err != nil {
		logger.Log.Error().Err(err).
			Str("service_hash", nameHash).
			Msg("SuggestCategory: failed to parse JSON response")
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}

	validCategory := false
	for _, cat := range availableCategories {
		if strings.EqualFold(cat, suggestion.Category) {
			suggestion.Category = cat
			validCategory = true
			break
		}
	}

	if !validCategory {
		logger.Log.Warn().
			Str("service_hash", nameHash).
			Str("suggested_category", suggestion.Category).
			Msg("SuggestCategory: suggested category not in available list")
		return nil, fmt.Errorf("suggested category '%s' not in available categories", suggestion.Category)
	}

	if suggestion.Confidence < 0.0 || suggestion.Confidence > 1.0 {
		return nil, fmt.Errorf("confidence out of range: %f", suggestion.Confidence)
	}

	suggestion.Reasoning = sanitizeReasoning(suggestion.Reasoning)

	logger.Log.Debug().
		Str("service_hash", nameHash).
		Str("category", suggestion.Category).
		Float64("confidence", suggestion.Confidence).
		Msg("SuggestCategory: matched category")

	return &suggestion, nil
}

func buildCategorySuggestionPrompt(serviceName string, categories []string) string {
	categoriesList := strings.Join(categories, "\n- ")

	return fmt.Sprintf(`Categorize this paid subscription service: "%s"

Available categories:
- %s

Rules:
- Choose the MOST appropriate category from the list
- "OTT" for video streaming, "Music" for audio streaming and podcasts
- "Cloud" for storage and backup, "Software" for desktop and creative tools
- "Other" only when nothing else fits
- Higher confidence (0.8-1.0) for well-known services, lower (0.5-0.7) for ambiguous names

Return JSON only:
{"category": "exact category name", "confidence": 0.0-1.0, "reasoning": "brief explanation"}`, serviceName, categoriesList)
}

// extractJSON extracts a JSON object from text that may contain preamble.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start == -1 {
		return ""
	}

	end := strings.LastIndex(text, "}")
	if end == -1 || end <= start {
		return ""
	}

	return text[start : end+1]
}

// SanitizeForPrompt strips characters that could break prompt structure,
// collapses whitespace and truncates to maxLength.
func SanitizeForPrompt(input string, maxLength int) string {
	input = strings.ReplaceAll(input, `"`, `'`)
	input = strings.ReplaceAll(input, "`", "'")
	input = strings.ReplaceAll(input, "\x00", "")

	// Also handles newline injection.
	input = strings.Join(strings.Fields(input), " ")

	if len(input) > maxLength {
		input = strings.TrimSpace(input[:maxLength])
	}

	return input
}

// SanitizeCategoryName sanitizes a category name for safe embedding in prompts.
func SanitizeCategoryName(name string) string {
	return SanitizeForPrompt(name, MaxCategoryNameLength)
}

func sanitizeServiceName(name string) string {
	return SanitizeForPrompt(name, MaxServiceNameLength)
}

func sanitizeReasoning(reasoning string) string {
	reasoning = strings.Join(strings.Fields(reasoning), " ")

	const maxReasoningLength = 500
	if len(reasoning) > maxReasoningLength {
		reasoning = strings.TrimSpace(reasoning[:maxReasoningLength])
	}

	return reasoning
}

// hashServiceName keeps service names out of the logs.
func hashServiceName(name string) string {
	hash := sha256.Sum256([]byte(name))
	return hex.EncodeToString(hash[:8])
}
