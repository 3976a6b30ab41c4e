package scratchpad

import (
	"github.com/entrhq/pilot/pkg/agent/memory/findings"
	"github.com/entrhq/pilot/pkg/agent/tools"
)

// Registrar is anything that accepts tool registrations.
type Registrar interface {
	RegisterTool(t tools.Tool) error
}

// RegisterAll registers the scratchpad toolset backed by one shared
// finding manager.
func RegisterAll(registrar Registrar, manager *findings.Manager) error {
	all := []tools.Tool{
		NewRecordFindingTool(manager),
		NewListFindingsTool(manager),
		NewSearchFindingsTool(manager),
	}
	for _, tool := range all {
		if err := registrar.RegisterTool(tool); err != nil {
			return err
		}
	}
	return nil
}
