package translator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// A numbered reply row: optional indent, the number, one separator, free text.
var numberedRowRe = regexp.MustCompile(`^\s*(\d+)\s*[.)、:：\s]\s*(.*)`)

// ParseNumbered maps a numbered-list reply back onto expected lines. For each
// number 1..expected it returns the parsed text, or a "[missing line N]"
// placeholder; a later duplicate number wins and rows with no text count as
// absent. missing lists the numbers that were substituted.
func ParseNumbered(raw string, expected int) (lines []string, missing []int) {
	parsed := make(map[int]string)
	for _, row := range strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n") {
		m := numberedRowRe.FindStringSubmatch(row)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if text := strings.TrimSpace(m[2]); text != "" {
			parsed[n] = text
		}
	}

	lines = make([]string, expected)
	for i := 1; i <= expected; i++ {
		text, ok := parsed[i]
		if !ok {
			lines[i-1] = MissingLine(i)
			missing = append(missing, i)
			continue
		}
		lines[i-1] = text
	}
	return lines, missing
}

// MissingLine is the placeholder for line n of a batch absent from the reply.
func MissingLine(n int) string {
	return fmt.Sprintf(placeholderMissingLine, n)
}

// Repeat returns n copies of placeholder.
func Repeat(placeholder string, n int) []string {
	ret := make([]string, n)
	for i := range ret {
		ret[i] = placeholder
	}
	return ret
}
