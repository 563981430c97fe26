package parser

import (
	"strings"
	"unicode/utf8"
)

const DefaultMinLineLength = 5

// DefaultBoilerplateKeywords match the page markers, year stamps and
// organisation names found in broker report headers and footers.
var DefaultBoilerplateKeywords = []string{"第 ", "页", "2024", "2025", "券商名称", "研究所"}

// Cleaner strips per-page boilerplate from extracted text.
type Cleaner struct {
	Keywords      []string
	MinLineLength int
}

func NewCleaner(keywords []string, minLineLength int) *Cleaner {
	if keywords == nil {
		keywords = DefaultBoilerplateKeywords
	}
	if minLineLength <= 0 {
		minLineLength = DefaultMinLineLength
	}
	return &Cleaner{Keywords: keywords, MinLineLength: minLineLength}
}

// CleanPages returns the surviving lines of all pages joined by single
// spaces, with runs of whitespace collapsed.
func (c *Cleaner) CleanPages(pages []string) string {
	var kept []string
	for _, page := range pages {
		for _, line := range strings.Split(page, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || c.isBoilerplate(line) {
				continue
			}
			if utf8.RuneCountInString(line) < c.MinLineLength {
				continue
			}
			kept = append(kept, line)
		}
	}
	return strings.Join(strings.Fields(strings.Join(kept, " ")), " ")
}

func (c *Cleaner) isBoilerplate(line string) bool {
	for _, kw := range c.Keywords {
		if kw != "" && strings.Contains(line, kw) {
			return true
		}
	}
	return false
}
