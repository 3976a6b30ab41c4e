package types

// InputType defines the type of input being sent to the engine.
type InputType string

const (
	InputTypeTask               InputType = "task"                 // InputTypeTask starts a new task execution.
	InputTypeCancel             InputType = "cancel"               // InputTypeCancel requests cancellation of the active execution.
	InputTypeHumanInputResponse InputType = "human_input_response" // InputTypeHumanInputResponse answers a pending human-input request.
)

// HumanAction is the decision carried by a human-input response.
type HumanAction string

const (
	HumanActionDone  HumanAction = "done"  // HumanActionDone means the human finished their part; resume.
	HumanActionAbort HumanAction = "abort" // HumanActionAbort means stop the task.
)

// HumanInputResponse answers a human-input request. It is correlated to the
// request strictly by RequestID; responses with unknown ids are ignored.
type HumanInputResponse struct {
	RequestID string
	Action    HumanAction
}

// ExecutionMode selects how a task is planned.
type ExecutionMode string

const (
	ModeDynamic    ExecutionMode = "dynamic"    // ModeDynamic lets the classifier and planner drive execution.
	ModePredefined ExecutionMode = "predefined" // ModePredefined seeds the first cycle with a supplied plan.
)

// PredefinedPlan is a named plan supplied with a predefined-mode task.
type PredefinedPlan struct {
	Name  string   `yaml:"name"`
	Goal  string   `yaml:"goal"`
	Steps []string `yaml:"steps"`
}

// TaskMetadata carries optional execution metadata alongside a task.
type TaskMetadata struct {
	Mode ExecutionMode
	Plan *PredefinedPlan
}

// Input represents the inbound control messages the engine consumes.
type Input struct {
	// Type indicates the kind of input.
	Type InputType

	// Content is the task text for task inputs.
	Content string

	// Task carries optional execution metadata for task inputs.
	Task *TaskMetadata

	// Response is set for human-input responses.
	Response *HumanInputResponse

	// Metadata holds optional additional information about the input.
	Metadata map[string]any
}

// NewTaskInput creates a new task input.
func NewTaskInput(content string) *Input {
	return &Input{Type: InputTypeTask, Content: content, Metadata: make(map[string]any)}
}

// NewTaskInputWithMetadata creates a new task input with execution metadata.
func NewTaskInputWithMetadata(content string, meta *TaskMetadata) *Input {
	return &Input{Type: InputTypeTask, Content: content, Task: meta, Metadata: make(map[string]any)}
}

// NewCancelInput creates a new cancellation input.
func NewCancelInput() *Input {
	return &Input{Type: InputTypeCancel, Metadata: make(map[string]any)}
}

// NewHumanInputResponseInput creates an input answering a human-input request.
func NewHumanInputResponseInput(requestID string, action HumanAction) *Input {
	return &Input{
		Type:     InputTypeHumanInputResponse,
		Response: &HumanInputResponse{RequestID: requestID, Action: action},
		Metadata: make(map[string]any),
	}
}

// IsTask returns true if this is a task input.
func (i *Input) IsTask() bool {
	return i.Type == InputTypeTask
}

// IsCancel returns true if this is a cancellation input.
func (i *Input) IsCancel() bool {
	return i.Type == InputTypeCancel
}

// IsHumanInputResponse returns true if this answers a human-input request.
func (i *Input) IsHumanInputResponse() bool {
	return i.Type == InputTypeHumanInputResponse
}
