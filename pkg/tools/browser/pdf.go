package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/entrhq/pilot/pkg/agent/tools"
)

// PDFTool renders the current page to a PDF file. The rendered bytes
// are validated with pdfcpu before the file is reported back, so the
// model never gets a path to a corrupt document.
type PDFTool struct {
	manager *SessionManager
	outDir  string
}

func NewPDFTool(manager *SessionManager) *PDFTool {
	return &PDFTool{manager: manager, outDir: os.TempDir()}
}

func (t *PDFTool) Name() string {
	return "browser_pdf"
}

func (t *PDFTool) Description() string {
	return "Save the current page as a PDF file. Only available in headless mode."
}

func (t *PDFTool) Schema() map[string]any {
	return tools.ObjectSchema(map[string]any{}, nil)
}

func (t *PDFTool) Execute(ctx context.Context, args json.RawMessage) (*tools.Result, error) {
	session, err := t.manager.Session()
	if err != nil {
		return tools.Fail("no active browser session; navigate to a page first"), nil
	}
	data, err := session.PDF()
	if err != nil {
		return tools.Fail(err.Error()), nil
	}

	pages, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return tools.Fail(fmt.Sprintf("rendered PDF is not readable: %v", err)), nil
	}

	path := filepath.Join(t.outDir, fmt.Sprintf("pilot-page-%d.pdf", time.Now().UnixNano()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return tools.Fail(fmt.Sprintf("saving PDF: %v", err)), nil
	}
	return tools.Ok(fmt.Sprintf("PDF saved to %s (%d pages, %d bytes)", path, pages, len(data))), nil
}
