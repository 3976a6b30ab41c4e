package headless

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExecutionSummary is the machine-readable record of one unattended
// run.
type ExecutionSummary struct {
	Task      string        `json:"task"`
	Status    string        `json:"status"`
	Result    string        `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`

	ToolCalls  int `json:"tool_calls"`
	ToolErrors int `json:"tool_errors"`
	TokensUsed int `json:"tokens_used"`
	PlanCycles int `json:"plan_cycles"`

	// Narration collects the engine's progress commentary.
	Narration []string `json:"narration,omitempty"`
}

// ArtifactWriter writes run reports to the configured directory.
type ArtifactWriter struct {
	outputDir string
	formats   ArtifactConfig
}

// NewArtifactWriter creates an artifact writer.
func NewArtifactWriter(outputDir string, formats ArtifactConfig) *ArtifactWriter {
	return &ArtifactWriter{outputDir: outputDir, formats: formats}
}

// WriteAll writes every configured artifact format.
func (w *ArtifactWriter) WriteAll(summary *ExecutionSummary) error {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}

	if w.formats.JSON {
		if err := w.writeJSON(summary); err != nil {
			return err
		}
	}
	if w.formats.Markdown {
		if err := w.writeMarkdown(summary); err != nil {
			return err
		}
	}
	return nil
}

func (w *ArtifactWriter) writeJSON(summary *ExecutionSummary) error {
	path := filepath.Join(w.outputDir, "run.json")
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding run summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing run JSON: %w", err)
	}
	return nil
}

func (w *ArtifactWriter) writeMarkdown(summary *ExecutionSummary) error {
	path := filepath.Join(w.outputDir, "summary.md")

	var md strings.Builder
	md.WriteString("# Pilot Run Summary\n\n")
	fmt.Fprintf(&md, "**Task:** %s\n\n", summary.Task)
	fmt.Fprintf(&md, "**Status:** %s\n\n", summary.Status)
	fmt.Fprintf(&md, "**Started:** %s\n\n", summary.StartTime.Format(time.RFC3339))
	fmt.Fprintf(&md, "**Duration:** %s\n\n", summary.Duration.Round(time.Second))

	md.WriteString("## Result\n\n")
	if summary.Error != "" {
		fmt.Fprintf(&md, "Error: %s\n\n", summary.Error)
	}
	if summary.Result != "" {
		fmt.Fprintf(&md, "%s\n\n", summary.Result)
	}

	if len(summary.Narration) > 0 {
		md.WriteString("## Progress\n\n")
		for _, line := range summary.Narration {
			fmt.Fprintf(&md, "- %s\n", line)
		}
		md.WriteString("\n")
	}

	md.WriteString("## Metrics\n\n")
	fmt.Fprintf(&md, "- **Tool calls:** %d\n", summary.ToolCalls)
	fmt.Fprintf(&md, "- **Tool errors:** %d\n", summary.ToolErrors)
	fmt.Fprintf(&md, "- **Plan cycles:** %d\n", summary.PlanCycles)
	fmt.Fprintf(&md, "- **Tokens used:** %d\n", summary.TokensUsed)

	if err := os.WriteFile(path, []byte(md.String()), 0o600); err != nil {
		return fmt.Errorf("writing summary markdown: %w", err)
	}
	return nil
}
