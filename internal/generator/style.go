package generator

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// #region style-config
// StyleConfig bounds generated quest text.
type StyleConfig struct {
	MaxChars int
}

// DefaultStyleConfig returns the quest text limits.
func DefaultStyleConfig() StyleConfig {
	return StyleConfig{MaxChars: 600}
}

// Style violations reported by CheckStyle.
const (
	ViolationEmpty           = "empty"
	ViolationCodeFence       = "code_fence"
	ViolationHeading         = "markdown_heading"
	ViolationTooLong         = "too_long"
	ViolationNoTerminal      = "no_terminal_punctuation"
	ViolationOuterWhitespace = "surrounding_whitespace"
)

// #endregion style-config

// #region check
// CheckStyle lists the format violations in text; nil means it passes.
func CheckStyle(text string, cfg StyleConfig) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return []string{ViolationEmpty}
	}

	var violations []string
	if trimmed != text {
		violations = append(violations, ViolationOuterWhitespace)
	}
	if strings.Contains(text, "```") {
		violations = append(violations, ViolationCodeFence)
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			violations = append(violations, ViolationHeading)
			break
		}
	}
	if cfg.MaxChars > 0 && utf8.RuneCountInString(text) > cfg.MaxChars {
		violations = append(violations, ViolationTooLong)
	}
	if !endsWithTerminal(trimmed) {
		violations = append(violations, ViolationNoTerminal)
	}
	return violations
}

// #endregion check

// #region repair
// RepairStyle applies the automatic fixes: drop code fences and heading
// markers, collapse blank runs, trim, truncate at a sentence boundary and
// close the final sentence. Empty text stays empty.
func RepairStyle(text string, cfg StyleConfig) string {
	var lines []string
	blank := 0
	for _, line := range strings.Split(text, "\n") {
		t := strings.TrimSpace(line)
		if strings.HasPrefix(t, "```") {
			continue
		}
		t = strings.TrimSpace(strings.TrimLeft(t, "#"))
		if t == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		lines = append(lines, t)
	}
	out := strings.TrimSpace(strings.Join(lines, "\n"))
	if out == "" {
		return ""
	}

	if cfg.MaxChars > 0 && utf8.RuneCountInString(out) > cfg.MaxChars {
		out = truncateAtSentence(out, cfg.MaxChars)
	}
	if !endsWithTerminal(out) {
		out = strings.TrimRightFunc(out, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSpace(r)
		})
		if out == "" {
			return ""
		}
		// Reserve room for the closing period.
		if cfg.MaxChars > 0 && utf8.RuneCountInString(out) >= cfg.MaxChars {
			out = string([]rune(out)[:cfg.MaxChars-1])
		}
		out += "."
	}
	return out
}

func truncateAtSentence(s string, max int) string {
	runes := []rune(s)[:max]
	for i := len(runes) - 1; i >= max/2; i-- {
		if isTerminal(runes[i]) {
			return string(runes[:i+1])
		}
	}
	cut := strings.LastIndexFunc(string(runes), unicode.IsSpace)
	if cut > 0 {
		return strings.TrimSpace(string(runes)[:cut])
	}
	return string(runes)
}

func endsWithTerminal(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return isTerminal(r) || r == '"' && len(s) > 1 && isTerminal(lastButOne(s))
}

func lastButOne(s string) rune {
	runes := []rune(s)
	return runes[len(runes)-2]
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// #endregion repair
