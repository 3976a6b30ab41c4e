package agent

const simpleTurnInstruction = "Take the next best action toward completing the task. " +
	"Call the done tool when the task is finished."

// runSimple executes a simple task: a bounded loop of one turn per
// attempt with a fixed instruction, stopping on done, handling
// human-input inline, and failing on the iteration limit or a detected
// loop.
func (e *Engine) runSimple(exec *execution) (*runResult, error) {
	for attempt := 0; attempt < e.limits.SimpleMaxAttempts; attempt++ {
		if err := exec.checkCancelled(); err != nil {
			return nil, err
		}

		if isLooping(e.log.RecentAssistantTexts(loopLookback), loopLookback, loopThreshold) {
			return nil, ErrLoopDetected
		}

		outcome, err := e.executeTurn(exec, simpleTurnInstruction)
		if err != nil {
			return nil, err
		}

		if outcome.humanInput {
			if err := e.awaitHumanInput(exec, outcome.humanPrompt); err != nil {
				return nil, err
			}
			continue
		}

		if outcome.done {
			return &runResult{message: outcome.doneMessage, success: outcome.success}, nil
		}
	}

	return nil, &IterationLimitError{Scope: "simple task", Limit: e.limits.SimpleMaxAttempts}
}
