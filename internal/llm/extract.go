package llm

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
)

// Pre-compiled patterns; compiling per parse is measurably slower.
var (
	// Code fences the model wraps JSON in: ```json\n{...}\n``` and
	// variants without the language tag or newlines.
	codeFenceRegex = regexp.MustCompile("(?s)`{3}(?:json)?\\s*\\n?([\\s\\S]*?)\\n?`{3}")

	// Greedy brace match captures nested objects; Extract checks the
	// first character to avoid pulling an object out of an array.
	objectRegex = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
)

// ExtractResult is the typed outcome of extracting a JSON value from
// free-text model output. OK=false means no parsable JSON was found —
// distinct from the completion call itself failing, which surfaces as
// an error from Executor.Complete.
type ExtractResult[T any] struct {
	OK   bool
	Data T
	Err  string
}

// Extract locates and parses the first JSON object in model output.
// Strategy sequence:
//  1. Direct parse of the trimmed text
//  2. Strip markdown code fences and retry
//  3. Extract the first brace-delimited block and retry
func Extract[T any](text string) ExtractResult[T] {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ExtractResult[T]{Err: "empty input"}
	}

	if data, err := tryParse[T](trimmed); err == nil {
		return ExtractResult[T]{OK: true, Data: data}
	}

	withoutFences := strings.TrimSpace(codeFenceRegex.ReplaceAllString(trimmed, "$1"))
	if withoutFences != trimmed {
		if data, err := tryParse[T](withoutFences); err == nil {
			return ExtractResult[T]{OK: true, Data: data}
		}
	}

	if block := objectRegex.FindString(withoutFences); block != "" {
		if data, err := tryParse[T](block); err == nil {
			return ExtractResult[T]{OK: true, Data: data}
		}
	}

	slog.Debug("no parsable JSON in model output", "preview", truncate(text, 120))
	return ExtractResult[T]{Err: "no parsable JSON object found"}
}

// ExtractOrDefault parses model output and returns fallback when no
// JSON object can be extracted.
func ExtractOrDefault[T any](text string, fallback T) T {
	result := Extract[T](text)
	if result.OK {
		return result.Data
	}
	return fallback
}

func tryParse[T any](text string) (T, error) {
	var result T
	err := json.Unmarshal([]byte(text), &result)
	return result, err
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
