package cli

import (
	"strings"
)

// splitStatements splits a script on semicolons that are outside of quotes
// and comments. Empty statements are dropped, comments are kept.
func splitStatements(script string) []string {
	var (
		statements []string
		current    strings.Builder
		quote      rune
		inLine     bool
		inBlock    bool
	)

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" && !onlyComments(s) {
			statements = append(statements, s)
		}
		current.Reset()
	}

	runes := []rune(script)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch {
		case inLine:
			if c == '\n' {
				inLine = false
			}
		case inBlock:
			if c == '*' && next == '/' {
				inBlock = false
				current.WriteRune(c)
				i++
				c = next
			}
		case quote != 0:
			if c == quote {
				// doubled quotes are escapes
				if next == quote {
					current.WriteRune(c)
					i++
					c = next
				} else {
					quote = 0
				}
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '-' && next == '-':
			inLine = true
		case c == '/' && next == '*':
			inBlock = true
		case c == ';':
			flush()
			continue
		}

		current.WriteRune(c)
	}
	flush()

	return statements
}

func onlyComments(s string) bool {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}
