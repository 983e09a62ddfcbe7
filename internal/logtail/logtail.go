package logtail

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line. A missing file yields no lines.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Attr is one extra key/value from a structured log line.
type Attr struct {
	Key   string
	Value string
}

// Entry is a parsed log line.
type Entry struct {
	Time  time.Time
	Level string
	Msg   string
	Attrs []Attr
	Raw   string
}

// Structured reports whether the line parsed as a JSON record.
func (e Entry) Structured() bool {
	return e.Level != "" || e.Msg != ""
}

// hidden keys are present on every record and add nothing on screen.
var hidden = map[string]struct{}{
	"time":    {},
	"level":   {},
	"msg":     {},
	"service": {},
	"source":  {},
}

// Parse decodes a JSON log record. Lines that are not JSON come back with
// only Raw set.
func Parse(line string) Entry {
	entry := Entry{Raw: line}
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return entry
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(trimmed), &rec); err != nil {
		return entry
	}

	if ts, ok := rec["time"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			entry.Time = parsed
		}
	}
	entry.Level, _ = rec["level"].(string)
	entry.Msg, _ = rec["msg"].(string)

	keys := make([]string, 0, len(rec))
	for k := range rec {
		if _, skip := hidden[k]; !skip {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		entry.Attrs = append(entry.Attrs, Attr{Key: k, Value: formatValue(rec[k])})
	}
	return entry
}

// ParseLines parses every line.
func ParseLines(lines []string) []Entry {
	out := make([]Entry, len(lines))
	for i, line := range lines {
		out[i] = Parse(line)
	}
	return out
}

// Format renders an entry as a single plain-text line:
//
//	14:32:15 WARN  fetch failed error="timeout" user=alice
func Format(e Entry) string {
	if !e.Structured() {
		return e.Raw
	}
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Local().Format("15:04:05"))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s %s", e.Level, e.Msg)
	for _, a := range e.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Key)
		b.WriteByte('=')
		b.WriteString(a.Value)
	}
	return b.String()
}

// AtLeast keeps entries at or above level. Unstructured lines are kept.
func AtLeast(entries []Entry, level string) []Entry {
	floor := rank(level)
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !e.Structured() || rank(e.Level) >= floor {
			out = append(out, e)
		}
	}
	return out
}

func rank(level string) int {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return 0
	case "WARN", "WARNING":
		return 2
	case "ERROR":
		return 3
	default:
		return 1
	}
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		if strings.ContainsAny(val, " \t=\"") || val == "" {
			return fmt.Sprintf("%q", val)
		}
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case nil:
		return "null"
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}
