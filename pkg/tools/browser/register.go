package browser

import (
	"github.com/entrhq/pilot/pkg/agent/tools"
)

// Registrar is anything that accepts tool registrations. The agent
// engine satisfies it.
type Registrar interface {
	RegisterTool(t tools.Tool) error
}

// RegisterAll registers the full browser toolset. All tools share one
// session manager.
func RegisterAll(registrar Registrar, manager *SessionManager) error {
	all := []tools.Tool{
		NewNavigateTool(manager),
		NewClickTool(manager),
		NewTypeTool(manager),
		NewScrollTool(manager),
		NewExtractContentTool(manager),
		NewScreenshotTool(manager),
		NewWaitTool(manager),
		NewPDFTool(manager),
	}
	for _, tool := range all {
		if err := registrar.RegisterTool(tool); err != nil {
			return err
		}
	}
	return nil
}
