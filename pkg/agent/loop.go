package agent

import "strings"

const (
	loopLookback  = 8
	loopThreshold = 4
)

// isLooping inspects the most recent lookback texts and reports whether
// any normalized text repeats threshold times or more. Used as a guard
// against the model re-emitting the same response without progress.
func isLooping(texts []string, lookback, threshold int) bool {
	if lookback <= 0 || threshold <= 0 {
		return false
	}
	if len(texts) > lookback {
		texts = texts[len(texts)-lookback:]
	}

	counts := make(map[string]int, len(texts))
	for _, text := range texts {
		normalized := strings.ToLower(strings.TrimSpace(text))
		if normalized == "" {
			continue
		}
		counts[normalized]++
		if counts[normalized] >= threshold {
			return true
		}
	}
	return false
}
