package subtitle

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// SRT timing: 00:02:16,612 --> 00:02:19,376, '.' tolerated before milliseconds,
// anything after the end stamp (position coordinates) ignored.
var timingRe = regexp.MustCompile(`^(\d+):(\d{1,2}):(\d{1,2})[,.](\d{1,3})\s*-->\s*(\d+):(\d{1,2}):(\d{1,2})[,.](\d{1,3})(?:\s.*)?$`)

// Parse decodes SRT text into entries in source order.
func Parse(text string) ([]Line, error) {
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	rows := strings.Split(text, "\n")

	var lines []Line
	i := 0
	for {
		for i < len(rows) && strings.TrimSpace(rows[i]) == "" {
			i++
		}
		if i >= len(rows) {
			break
		}

		indexRow := strings.TrimSpace(rows[i])
		index, err := strconv.Atoi(indexRow)
		if err != nil {
			return nil, &FormatError{Line: i + 1, Reason: fmt.Sprintf("expected entry index, got %q", indexRow)}
		}
		i++

		if i >= len(rows) || strings.TrimSpace(rows[i]) == "" {
			return nil, &FormatError{Line: i + 1, Reason: fmt.Sprintf("entry %d has no timing line", index)}
		}
		start, end, err := parseTiming(strings.TrimSpace(rows[i]))
		if err != nil {
			return nil, &FormatError{Line: i + 1, Reason: err.Error()}
		}
		if end < start {
			return nil, &FormatError{Line: i + 1, Reason: fmt.Sprintf("entry %d ends before it starts", index)}
		}
		i++

		var content []string
		for i < len(rows) && strings.TrimSpace(rows[i]) != "" {
			content = append(content, strings.TrimRight(rows[i], " \t"))
			i++
		}

		lines = append(lines, Line{
			Index:     index,
			StartTime: start,
			EndTime:   end,
			Text:      strings.Join(content, "\n"),
		})
	}
	return lines, nil
}

// Compose encodes entries as SRT using each entry's own Index, in slice order.
// Blank content lines are dropped so that the output always parses back.
func Compose(lines []Line) string {
	var sb strings.Builder
	for _, line := range lines {
		fmt.Fprintf(&sb, "%d\n%s --> %s\n", line.Index, FormatTimestamp(line.StartTime), FormatTimestamp(line.EndTime))
		if content := legalContent(line.Text); content != "" {
			sb.WriteString(content)
			sb.WriteByte('\n')
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// FormatTimestamp renders d as HH:MM:SS,mmm. Negative durations clamp to zero.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	hours := ms / int64(time.Hour/time.Millisecond)
	ms -= hours * int64(time.Hour/time.Millisecond)
	minutes := ms / int64(time.Minute/time.Millisecond)
	ms -= minutes * int64(time.Minute/time.Millisecond)
	seconds := ms / 1000
	ms -= seconds * 1000

	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, ms)
}

func parseTiming(row string) (time.Duration, time.Duration, error) {
	m := timingRe.FindStringSubmatch(row)
	if m == nil {
		return 0, 0, fmt.Errorf("invalid timing line %q", row)
	}
	start, err := stamp(m[1], m[2], m[3], m[4])
	if err != nil {
		return 0, 0, err
	}
	end, err := stamp(m[5], m[6], m[7], m[8])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func stamp(hours, minutes, seconds, millis string) (time.Duration, error) {
	h, _ := strconv.Atoi(hours)
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)
	if m > 59 || s > 59 {
		return 0, fmt.Errorf("timestamp %s:%s:%s out of range", hours, minutes, seconds)
	}
	// "5" and "50" are fractions of a second, not milliseconds
	for len(millis) < 3 {
		millis += "0"
	}
	ms, _ := strconv.Atoi(millis)

	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond, nil
}

func legalContent(text string) string {
	rows := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	kept := rows[:0]
	for _, row := range rows {
		row = strings.TrimRight(row, " \t\r")
		if strings.TrimSpace(row) == "" {
			continue
		}
		kept = append(kept, row)
	}
	return strings.Join(kept, "\n")
}

func joinContent(original, translated string) string {
	original = strings.TrimSpace(original)
	translated = strings.TrimSpace(translated)
	switch {
	case original == "":
		return translated
	case translated == "":
		return original
	default:
		return original + "\n" + translated
	}
}
