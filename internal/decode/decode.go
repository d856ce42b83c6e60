// Package decode recovers a JSON object from free-form model output.
//
// Generative engines asked for JSON often wrap it in code fences or surround
// it with commentary. Extract runs an ordered chain of recovery strategies and
// stops at the first one that yields a syntactically valid object.
package decode

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrInvalidFormat is matched by every terminal decode failure.
var ErrInvalidFormat = errors.New("response format invalid")

// Strategy names the recovery step that produced the object.
type Strategy int

const (
	StrategyDirect Strategy = iota + 1
	StrategyFenceStripped
	StrategyBraceSpan
	StrategyEmbeddedScan
)

func (s Strategy) String() string {
	switch s {
	case StrategyDirect:
		return "direct"
	case StrategyFenceStripped:
		return "fence_stripped"
	case StrategyBraceSpan:
		return "brace_span"
	case StrategyEmbeddedScan:
		return "embedded_scan"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// Error is returned when no strategy recovers an object. Raw holds the
// offending text for diagnostics; it must never be shown to the user.
type Error struct {
	Raw string
}

func (e *Error) Error() string { return ErrInvalidFormat.Error() }

func (e *Error) Unwrap() error { return ErrInvalidFormat }

var fences = strings.NewReplacer("```json", "", "```", "")

// Extract returns the first JSON object recoverable from text and the
// strategy that found it. Later strategies only run when earlier ones fail.
func Extract(text string) (json.RawMessage, Strategy, error) {
	if obj, ok := object(text); ok {
		return obj, StrategyDirect, nil
	}

	if obj, ok := object(fences.Replace(text)); ok {
		return obj, StrategyFenceStripped, nil
	}

	first := strings.IndexByte(text, '{')
	last := strings.LastIndexByte(text, '}')
	if first != -1 && last > first {
		if obj, ok := object(text[first : last+1]); ok {
			return obj, StrategyBraceSpan, nil
		}
	}

	// The span above fails when commentary between two objects contains
	// braces. Decoding from each opening brace finds the first complete
	// object without guessing at brace balance.
	for i := first; i != -1 && i < len(text); {
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err == nil {
			if obj, ok := object(string(raw)); ok {
				return obj, StrategyEmbeddedScan, nil
			}
		}
		next := strings.IndexByte(text[i+1:], '{')
		if next == -1 {
			break
		}
		i += next + 1
	}

	return nil, 0, &Error{Raw: text}
}

// object reports whether s, trimmed, is a single valid JSON object.
func object(s string) (json.RawMessage, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") || !json.Valid([]byte(s)) {
		return nil, false
	}
	return json.RawMessage(s), true
}

// Into extracts an object from text and unmarshals it into T. The raw text
// is logged only when no object can be recovered.
func Into[T any](text string, log *slog.Logger) (T, error) {
	var out T
	obj, strategy, err := Extract(text)
	if err != nil {
		log.Error("unrecoverable model response", "raw", text, "length", len(text))
		return out, err
	}
	if strategy != StrategyDirect {
		log.Debug("model response recovered", "strategy", strategy.String())
	}
	if err := json.Unmarshal(obj, &out); err != nil {
		return out, fmt.Errorf("unmarshaling %T: %w", out, err)
	}
	return out, nil
}
