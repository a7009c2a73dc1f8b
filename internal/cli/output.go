// Package cli provides output formatting and an HTTP client for the CogniDocs command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/hyperjump/cognidocs/internal/models"
	"github.com/hyperjump/cognidocs/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat maps a flag value to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use text or json)", s)
	}
}

const separator = "─────────────────────────────────────────────────────────"

// StatusReport is the shape of GET /api/v1/status.
type StatusReport struct {
	Mode           string                 `json:"mode"`
	DocumentsCount int64                  `json:"documents_count"`
	ChunkCount     int64                  `json:"chunk_count"`
	DiskUsageBytes *int64                 `json:"disk_usage_bytes,omitempty"`
	Config         map[string]interface{} `json:"config,omitempty"`
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAnswer writes an answer and its sources to w in the given format.
func WriteAnswer(w io.Writer, ans *models.Answer, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, ans)
	}
	fmt.Fprintf(w, "\n%s\n\n", ans.Answer)
	if ans.Suggestion != "" {
		fmt.Fprintf(w, "Suggestion: %s\n\n", ans.Suggestion)
	}
	if len(ans.Sources) > 0 {
		fmt.Fprintln(w, separator)
		fmt.Fprintf(w, "Sources (%d chunks used, %dms):\n", ans.ContextUsed, ans.QueryTime)
		for i, src := range ans.Sources {
			fmt.Fprintf(w, "  %d. %s, page %d, chunk %d [%s]\n", i+1, src.Document, src.PageNumber, src.ChunkIndex, src.Relevance)
		}
	}
	return nil
}

// WriteStatus writes a status report to w in the given format.
func WriteStatus(w io.Writer, st *StatusReport, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintln(w, "CogniDocs status")
	fmt.Fprintln(w, separator)
	fmt.Fprintf(w, "Mode:       %s\n", st.Mode)
	fmt.Fprintf(w, "Documents:  %d\n", st.DocumentsCount)
	fmt.Fprintf(w, "Chunks:     %d\n", st.ChunkCount)
	if st.DiskUsageBytes != nil {
		fmt.Fprintf(w, "Disk usage: %s\n", FormatBytes(*st.DiskUsageBytes))
	}
	if len(st.Config) > 0 {
		keys := make([]string, 0, len(st.Config))
		for k := range st.Config {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintln(w, "\nConfiguration:")
		for _, k := range keys {
			fmt.Fprintf(w, "  %s: %v\n", k, st.Config[k])
		}
	}
	return nil
}

// WriteDocuments writes document records to w in the given format.
func WriteDocuments(w io.Writer, docs []*models.DocumentRecord, format OutputFormat) error {
	if format == OutputJSON {
		if docs == nil {
			docs = []*models.DocumentRecord{}
		}
		return writeJSON(w, docs)
	}
	if len(docs) == 0 {
		fmt.Fprintln(w, "No documents ingested.")
		return nil
	}
	fmt.Fprintf(w, "%d documents\n", len(docs))
	fmt.Fprintln(w, separator)
	for _, d := range docs {
		line := fmt.Sprintf("%-40s %-9s %4d chunks %4d pages", utils.Truncate(d.Filename, 37), d.Status, d.Chunks, d.Pages)
		if d.Error != "" {
			line += "  " + utils.Truncate(d.Error, 60)
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

// WriteUpload writes the outcome of an upload to w in the given format.
func WriteUpload(w io.Writer, resp *models.UploadResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintln(w, resp.Message)
	for _, r := range resp.Results {
		if r.Status == string(models.StatusProcessed) {
			fmt.Fprintf(w, "  ok      %s (%d pages, %d chunks)\n", r.Filename, r.Pages, r.Chunks)
			continue
		}
		fmt.Fprintf(w, "  failed  %s [%s] %s\n", r.Filename, r.ErrorKind, r.Error)
	}
	return nil
}

// FormatBytes renders n as a human-readable size.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
