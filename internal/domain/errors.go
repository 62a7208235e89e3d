package domain

import "errors"

// Классы ошибок пайплайна. Ошибки пакетов оборачивают их через %w.
var (
	ErrConfiguration       = errors.New("configuration error")
	ErrTransientNetwork    = errors.New("transient network error")
	ErrContentQuality      = errors.New("content quality too low")
	ErrAcquisition         = errors.New("browser acquisition failed")
	ErrEnhancementProvider = errors.New("enhancement provider failed")
)

var (
	ErrEmptyPrompt   = errors.New("empty prompt")
	ErrPromptTooLong = errors.New("prompt too long")
)
