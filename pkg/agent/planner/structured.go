// Package planner holds the model-backed decision components of the
// engine: task classification, plan generation, and completion
// validation. All three wrap schema-constrained model calls and decode
// the output as untrusted external data.
package planner

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/entrhq/pilot/pkg/llm"
	"github.com/entrhq/pilot/pkg/types"
)

// completeStructured performs a schema-constrained completion and
// decodes the JSON output into out. Transient failures and malformed
// output share the model-invocation retry policy.
func completeStructured(ctx context.Context, provider llm.Provider, messages []*types.Message, schema *llm.ResponseSchema, out any) error {
	err := llm.Invoke(ctx, func() error {
		msg, err := provider.Complete(ctx, &llm.Request{
			Messages:       messages,
			ResponseSchema: schema,
		})
		if err != nil {
			return err
		}
		if err := json.Unmarshal([]byte(msg.Content), out); err != nil {
			return fmt.Errorf("decoding structured output: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("structured completion failed: %w", err)
	}
	return nil
}
