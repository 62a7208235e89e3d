package domain

import (
	"strings"
	"time"
)

const MaxPromptLength = 20000

// EnhancementResult возвращается наружу и дальше не меняется.
// Из кеша отдается тот же указатель, поэтому мутировать его нельзя.
type EnhancementResult struct {
	OriginalPrompt    string
	EnhancedPrompt    string
	MatchedCategories []string
	WebContext        []ScrapedContent
	SearchQueries     []string
	Metadata          EnhancementMetadata
}

type EnhancementMetadata struct {
	SearchTime    time.Duration
	ScrapeTime    time.Duration
	TotalTime     time.Duration
	URLsAttempted int
	SuccessRate   float64
	Iterations    int
	Cost          float64
	TokensUsed    int
	Degraded      bool
}

// SuccessRate = retained/attempted, 0 если ничего не пробовали.
func SuccessRate(retained, attempted int) float64 {
	if attempted <= 0 || retained <= 0 {
		return 0
	}
	if retained >= attempted {
		return 1
	}
	return float64(retained) / float64(attempted)
}

// Passthrough - результат без обогащения, промпт как есть.
func Passthrough(prompt string) *EnhancementResult {
	return &EnhancementResult{
		OriginalPrompt:    prompt,
		EnhancedPrompt:    prompt,
		MatchedCategories: []string{},
		WebContext:        []ScrapedContent{},
		SearchQueries:     []string{},
		Metadata:          EnhancementMetadata{Degraded: true},
	}
}

func ValidatePrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return ErrEmptyPrompt
	}
	if len(prompt) > MaxPromptLength {
		return ErrPromptTooLong
	}
	return nil
}
