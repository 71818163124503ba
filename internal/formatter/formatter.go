// package formatter writes import reports: the unmatched query list and full run summaries (CSV, Markdown, JSON, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/songlist/internal/shared"
	"github.com/desertthunder/songlist/internal/tasks"
)

// DefaultReportPath is where unmatched queries are written unless configured otherwise.
const DefaultReportPath = "unable_to_find.txt"

// Format selects the encoding of a run summary.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts a format name, with "md" and "txt" as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (want text, json, csv or markdown)", shared.ErrInvalidArgument, s)
	}
}

// UnmatchedReport renders queries one per line, each terminated by a newline.
func UnmatchedReport(unmatched []string) []byte {
	var buf bytes.Buffer
	for _, query := range unmatched {
		buf.WriteString(query)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// WriteUnmatchedReport overwrites path with the unmatched queries. No queries produce an empty file.
func WriteUnmatchedReport(path string, unmatched []string) error {
	if path == "" {
		path = DefaultReportPath
	}
	if err := os.WriteFile(path, UnmatchedReport(unmatched), 0644); err != nil {
		return fmt.Errorf("%w: failed to write report: %w", shared.ErrFileIO, err)
	}
	return nil
}

type outcomeSummary struct {
	Position int    `json:"position"`
	Query    string `json:"query"`
	Status   string `json:"status"`
	URI      string `json:"uri,omitempty"`
	Track    string `json:"track,omitempty"`
	Album    string `json:"album,omitempty"`
	Attempts int    `json:"attempts"`
	Cached   bool   `json:"cached,omitempty"`
	Error    string `json:"error,omitempty"`
}

type runSummary struct {
	RunID      string           `json:"run_id,omitempty"`
	Playlist   string           `json:"playlist"`
	PlaylistID string           `json:"playlist_id"`
	SourceFile string           `json:"source_file,omitempty"`
	RetryMode  string           `json:"retry_mode"`
	Total      int              `json:"total"`
	Processed  int              `json:"processed"`
	Added      int              `json:"added"`
	Unmatched  []string         `json:"unmatched"`
	MatchRate  float64          `json:"match_rate"`
	Cancelled  bool             `json:"cancelled"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Outcomes   []outcomeSummary `json:"outcomes"`
}

func status(o tasks.QueryOutcome) string {
	if o.Matched() {
		return "added"
	}
	return "unmatched"
}

func summarizeOutcome(o tasks.QueryOutcome) outcomeSummary {
	s := outcomeSummary{
		Position: o.Index + 1,
		Query:    o.Query,
		Status:   status(o),
		Attempts: o.Attempts,
		Cached:   o.Cached,
	}
	if o.Track != nil {
		s.URI = o.Track.URI
		s.Track = o.Track.String()
		s.Album = o.Track.Album
	}
	if o.Err != nil {
		s.Error = o.Err.Error()
	}
	return s
}

func summarize(result *tasks.ImportResult, playlistName string) runSummary {
	if playlistName == "" {
		playlistName = result.PlaylistID
	}

	s := runSummary{
		RunID:      result.RunID,
		Playlist:   playlistName,
		PlaylistID: result.PlaylistID,
		SourceFile: result.SourceFile,
		RetryMode:  string(result.RetryMode),
		Total:      result.Total,
		Processed:  len(result.Outcomes),
		Added:      result.Added,
		Unmatched:  result.Unmatched,
		MatchRate:  result.MatchPercentage(),
		Cancelled:  result.Cancelled,
		StartedAt:  result.StartedAt,
		FinishedAt: result.FinishedAt,
		Outcomes:   make([]outcomeSummary, 0, len(result.Outcomes)),
	}
	if s.Unmatched == nil {
		s.Unmatched = []string{}
	}
	for _, o := range result.Outcomes {
		s.Outcomes = append(s.Outcomes, summarizeOutcome(o))
	}
	return s
}

// ExportToJSON renders an indented JSON summary of result.
func ExportToJSON(result *tasks.ImportResult, playlistName string) ([]byte, error) {
	return shared.MarshalJSON(summarize(result, playlistName), true)
}

// ExportToCSV renders one row per processed query with columns: Position, Query, Status, URI, Track, Album, Attempts, Error
func ExportToCSV(result *tasks.ImportResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "Query", "Status", "URI", "Track", "Album", "Attempts", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, o := range result.Outcomes {
		s := summarizeOutcome(o)
		record := []string{
			strconv.Itoa(s.Position),
			s.Query,
			s.Status,
			s.URI,
			s.Track,
			s.Album,
			strconv.Itoa(s.Attempts),
			s.Error,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders a summary with the added tracks and the unmatched queries.
func ExportToMarkdown(result *tasks.ImportResult, playlistName string) ([]byte, error) {
	s := summarize(result, playlistName)
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Import into %s\n\n", s.Playlist)
	if s.SourceFile != "" {
		fmt.Fprintf(&buf, "**Source**: %s\n", s.SourceFile)
	}
	fmt.Fprintf(&buf, "**Added**: %d of %d (%.1f%%)\n", s.Added, s.Processed, s.MatchRate)
	fmt.Fprintf(&buf, "**Unable to find**: %d\n", len(s.Unmatched))
	fmt.Fprintf(&buf, "**Retry mode**: %s\n", s.RetryMode)
	fmt.Fprintf(&buf, "**Duration**: %s\n", elapsed(result))
	if s.Cancelled {
		fmt.Fprintf(&buf, "**Cancelled** after %d of %d queries\n", s.Processed, s.Total)
	}

	buf.WriteString("\n## Added\n\n")
	for _, o := range s.Outcomes {
		if o.Status != "added" {
			continue
		}
		fmt.Fprintf(&buf, "%d. %s → %s", o.Position, o.Query, o.Track)
		if o.Album != "" {
			fmt.Fprintf(&buf, " (%s)", o.Album)
		}
		buf.WriteString("\n")
	}

	if len(s.Unmatched) > 0 {
		buf.WriteString("\n## Unable to find\n\n")
		for _, o := range s.Outcomes {
			if o.Status == "added" {
				continue
			}
			fmt.Fprintf(&buf, "- %s: %s\n", o.Query, o.Error)
		}
	}

	return buf.Bytes(), nil
}

// ExportToText renders a plain text summary.
func ExportToText(result *tasks.ImportResult, playlistName string) ([]byte, error) {
	s := summarize(result, playlistName)
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", s.Playlist)
	fmt.Fprintf(&buf, "Processed: %d/%d\n", s.Processed, s.Total)
	fmt.Fprintf(&buf, "Added: %d (%.1f%%)\n", s.Added, s.MatchRate)
	fmt.Fprintf(&buf, "Unable to find: %d\n", len(s.Unmatched))
	fmt.Fprintf(&buf, "Duration: %s\n", elapsed(result))
	if s.Cancelled {
		buf.WriteString("Status: cancelled\n")
	}

	if len(s.Unmatched) > 0 {
		buf.WriteString("\n")
		for i, query := range s.Unmatched {
			fmt.Fprintf(&buf, "%d. %s\n", i+1, query)
		}
	}

	return buf.Bytes(), nil
}

// Export renders result in format.
func Export(result *tasks.ImportResult, format Format, playlistName string) ([]byte, error) {
	switch format {
	case FormatJSON:
		return ExportToJSON(result, playlistName)
	case FormatCSV:
		return ExportToCSV(result)
	case FormatMarkdown:
		return ExportToMarkdown(result, playlistName)
	case FormatText, "":
		return ExportToText(result, playlistName)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteRunReport writes the run summary for result to path in format.
func WriteRunReport(path string, format Format, result *tasks.ImportResult, playlistName string) error {
	data, err := Export(result, format, playlistName)
	if err != nil {
		return fmt.Errorf("failed to generate %s summary: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("%w: failed to write summary: %w", shared.ErrFileIO, err)
	}
	return nil
}

func elapsed(result *tasks.ImportResult) string {
	if result.StartedAt.IsZero() || result.FinishedAt.IsZero() {
		return "-"
	}
	return result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond).String()
}
