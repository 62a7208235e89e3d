package enhancer

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// заголовки markdown, маркированные и нумерованные списки
var structureMarkers = regexp.MustCompile(`(?m)^\s*(#{1,6}\s+\S|[-*•]\s+\S|\d{1,2}[.)]\s+\S)`)

// AcceptancePolicy решает, принимать ли очередную итерацию.
// Нулевое значение принимает любой непустой ответ, который не короче предыдущего.
type AcceptancePolicy struct {
	MinLengthDelta   int  // насколько символов новая версия должна быть длиннее
	RequireStructure bool // требовать заголовки или списки
}

func DefaultPolicy() AcceptancePolicy {
	return AcceptancePolicy{MinLengthDelta: 20}
}

func (p AcceptancePolicy) Accept(prev, next string) bool {
	next = strings.TrimSpace(next)
	if next == "" {
		return false
	}
	if utf8.RuneCountInString(next)-utf8.RuneCountInString(strings.TrimSpace(prev)) < p.MinLengthDelta {
		return false
	}
	if p.RequireStructure && !HasStructure(next) {
		return false
	}
	return true
}

func HasStructure(s string) bool {
	return structureMarkers.MatchString(s)
}
