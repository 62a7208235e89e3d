package planner

import (
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinQueryLength = 10
	MaxQueryLength = 200
)

// ParseQueryCandidates разбирает ответ модели на поисковые запросы.
//
// Грамматика:
//
//	response  = line { ("\n" | "\r\n" | "\r") line }
//	line      = [ bullet ] [ label ] [ number ] quoted-or-bare
//	bullet    = "-" | "*" | "•" | "+" | "–"
//	label     = ("query" | "q") [ digits ] ( ":" | "." | ")" )   регистр не важен
//	number    = digits ( "." | ")" | ":" | "-" ) | "(" digits ")" | "#" digits
//	quoted    = открывающая и закрывающая кавычка из " ' ` “” ‘’ «»
//
// После разделителя в label и number должен идти пробел или конец строки,
// поэтому "2.0 OAuth" и "3.12 release notes" остаются как есть.
// Ответ целиком в виде {"queries": [...]} тоже принимается, каждый элемент идет как line.
// Строки, оканчивающиеся на ":" (заголовки), пустые и вне [MinQueryLength, MaxQueryLength]
// рун отбрасываются. Дубликаты без учета регистра убираются, порядок сохраняется.
func ParseQueryCandidates(raw string) []string {
	lines := jsonQueries(raw)
	if lines == nil {
		raw = strings.ReplaceAll(raw, "\r\n", "\n")
		raw = strings.ReplaceAll(raw, "\r", "\n")
		lines = strings.Split(raw, "\n")
	}

	seen := make(map[string]bool)
	var out []string
	for _, line := range lines {
		q, ok := parseLine(line)
		if !ok {
			continue
		}
		key := strings.ToLower(q)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, q)
	}
	return out
}

func jsonQueries(raw string) []string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		return nil
	}
	var payload struct {
		Queries []string `json:"queries"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil
	}
	if payload.Queries == nil {
		return []string{}
	}
	return payload.Queries
}

func parseLine(line string) (string, bool) {
	s := strings.TrimSpace(line)
	if s == "" || strings.HasSuffix(s, ":") {
		return "", false
	}

	s = stripBullet(s)
	s = stripLabel(s)
	s = stripNumber(s)
	s = stripBullet(s)
	s = unquote(strings.TrimSpace(s))
	s = strings.Join(strings.Fields(s), " ")

	n := utf8.RuneCountInString(s)
	if n < MinQueryLength || n > MaxQueryLength {
		return "", false
	}
	return s, true
}

func stripBullet(s string) string {
	for _, b := range []string{"-", "*", "•", "+", "–"} {
		if rest, ok := strings.CutPrefix(s, b); ok {
			return strings.TrimSpace(rest)
		}
	}
	return s
}

func stripLabel(s string) string {
	lower := strings.ToLower(s)
	for _, label := range []string{"query", "q"} {
		if !strings.HasPrefix(lower, label) {
			continue
		}
		rest := strings.TrimLeft(s[len(label):], " ")
		rest = strings.TrimLeftFunc(rest, unicode.IsDigit)
		if rest != "" && strings.ContainsRune(":.)", rune(rest[0])) && delimited(rest[1:]) {
			return strings.TrimSpace(rest[1:])
		}
	}
	return s
}

func stripNumber(s string) string {
	switch {
	case strings.HasPrefix(s, "(") || strings.HasPrefix(s, "#"):
		digits := strings.TrimLeftFunc(s[1:], unicode.IsDigit)
		if len(digits) == len(s)-1 {
			return s
		}
		if s[0] == '(' {
			if !strings.HasPrefix(digits, ")") {
				return s
			}
			digits = digits[1:]
		}
		return strings.TrimSpace(digits)
	}

	rest := strings.TrimLeftFunc(s, unicode.IsDigit)
	if len(rest) == len(s) || rest == "" {
		return s
	}
	if strings.ContainsRune(".):-", rune(rest[0])) && delimited(rest[1:]) {
		return strings.TrimSpace(rest[1:])
	}
	return s
}

// delimited: за разделителем нумерации пробел или конец строки,
// иначе это часть числа вроде "2.0" или "3.12".
func delimited(after string) bool {
	if after == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(after)
	return unicode.IsSpace(r)
}

var quotePairs = [][2]string{
	{`"`, `"`}, {"'", "'"}, {"`", "`"}, {"“", "”"}, {"‘", "’"}, {"«", "»"},
}

func unquote(s string) string {
	for _, p := range quotePairs {
		if len(s) >= len(p[0])+len(p[1]) && strings.HasPrefix(s, p[0]) && strings.HasSuffix(s, p[1]) {
			return strings.TrimSpace(s[len(p[0]) : len(s)-len(p[1])])
		}
	}
	return s
}
