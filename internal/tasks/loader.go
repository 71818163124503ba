package tasks

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/desertthunder/songlist/internal/shared"
)

// LoadQueries reads the file at path and returns its normalized queries.
//
// A missing or unreadable file returns an error wrapping [shared.ErrFileIO].
func LoadQueries(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrFileIO, err)
	}
	return NormalizeQueries(string(data)), nil
}

// NormalizeQueries splits text into queries.
//
// Every carriage return becomes a newline, doubled newlines are collapsed in a single pass,
// and lines that contain only whitespace are dropped. Kept lines are returned unmodified and in order.
func NormalizeQueries(text string) []string {
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\n\n", "\n")

	lines := strings.Split(text, "\n")
	queries := make([]string, 0, len(lines))
	for _, line := range lines {
		if isBlank(line) {
			continue
		}
		queries = append(queries, line)
	}
	return queries
}

func isBlank(line string) bool {
	return strings.IndexFunc(line, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}
