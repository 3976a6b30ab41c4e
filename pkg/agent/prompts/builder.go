// Package prompts assembles the system prompt and per-turn message
// lists for the execution engine.
package prompts

import (
	"strings"

	"github.com/entrhq/pilot/pkg/types"
)

// PromptBuilder constructs the system prompt from its sections.
type PromptBuilder struct {
	customInstructions string
	allowedDomains     []string
}

// NewPromptBuilder creates a new prompt builder with default settings.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// WithCustomInstructions adds user-provided instructions. These are
// appended to, never replace, the base system prompt.
func (pb *PromptBuilder) WithCustomInstructions(instructions string) *PromptBuilder {
	pb.customInstructions = instructions
	return pb
}

// WithAllowedDomains tells the model which domains navigation is
// restricted to, so it does not waste turns on blocked URLs.
func (pb *PromptBuilder) WithAllowedDomains(patterns []string) *PromptBuilder {
	pb.allowedDomains = patterns
	return pb
}

// Build constructs the complete system prompt by assembling all sections.
func (pb *PromptBuilder) Build() string {
	var builder strings.Builder

	if pb.customInstructions != "" {
		builder.WriteString("<custom_instructions>\n")
		builder.WriteString(pb.customInstructions)
		builder.WriteString("\n</custom_instructions>\n\n")
	}

	builder.WriteString(SystemCapabilitiesPrompt)
	builder.WriteString("\n\n")

	builder.WriteString(AgentLoopPrompt)
	builder.WriteString("\n\n")

	builder.WriteString(GroundingPrompt)
	builder.WriteString("\n\n")

	builder.WriteString(ToolUseRulesPrompt)

	if len(pb.allowedDomains) > 0 {
		builder.WriteString("\n\n<allowed_domains>\n")
		builder.WriteString("Navigation is restricted to these domain patterns:\n")
		for _, pattern := range pb.allowedDomains {
			builder.WriteString("- ")
			builder.WriteString(pattern)
			builder.WriteString("\n")
		}
		builder.WriteString("</allowed_domains>")
	}

	return builder.String()
}

// BuildMessages creates the per-turn message list: the system prompt,
// the conversation history with any stored system messages filtered
// out, and an optional instruction for this turn.
func BuildMessages(systemPrompt string, history []*types.Message, instruction string) []*types.Message {
	messages := make([]*types.Message, 0, len(history)+2)

	messages = append(messages, types.NewSystemMessage(systemPrompt))

	for _, msg := range history {
		if msg.Role != types.RoleSystem {
			messages = append(messages, msg)
		}
	}

	if instruction != "" {
		messages = append(messages, types.NewUserMessage(instruction))
	}

	return messages
}
