package agent

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Action is the result of recovering a structured tool invocation from raw
// model output. Exactly one of two shapes is populated:
//
//   - success: Tool and Parameters are set (Parameters is non-nil, possibly
//     empty) and Err is empty;
//   - failure: Err carries a diagnostic and OriginalText the unmodified
//     input, while Tool is empty and Parameters nil.
//
// A decoded object that lacks the "tool" or "parameters" key yields an
// Action with only the present parts filled in; callers treat that as "no
// tool result", not as a failure.
type Action struct {
	// Tool is the tool name the model asked for.
	Tool string

	// Parameters holds the named arguments. Values carry JSON types
	// (string, float64, bool); salvaged integer literals become int.
	Parameters map[string]any

	// Salvaged reports that strict decoding failed and the action was
	// reassembled by pattern extraction. Diagnostic only.
	Salvaged bool

	// Err is a human-readable description of why no action could be
	// recovered. Empty on success.
	Err string

	// OriginalText is the unmodified input, kept for diagnostics when Err
	// is set.
	OriginalText string
}

// Recovery regexes, mirroring the layered extraction order: fenced code
// block, then first brace span, then raw text.
var (
	fencedRe = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")
	braceRe  = regexp.MustCompile(`(?s)(\{.*\})`)

	// Near-miss JSON rewrites: single-quoted keys and bare-word keys.
	singleQuotedKeyRe = regexp.MustCompile(`'([^']*)'(\s*):`)
	bareKeyRe         = regexp.MustCompile(`(^|[\s{,])(\w+)(\s*):`)

	// Last-resort pattern extraction.
	toolFieldRe   = regexp.MustCompile(`"tool"\s*:\s*"([^"]+)"`)
	paramsFieldRe = regexp.MustCompile(`"parameters"\s*:\s*\{([^}]+)\}`)
	keyValueRe    = regexp.MustCompile(`"([^"]+)"\s*:\s*("[^"]*"|[0-9]+)`)
)

// ParseAction recovers a structured tool action from raw, possibly malformed
// model text. Model output claiming to be JSON is frequently near-miss
// malformed — trailing prose, single quotes, unquoted keys — so a strict
// decode alone would reject a large fraction of real outputs. The layers,
// applied in order and stopping at first success:
//
//  1. Take the interior of a fenced code block, else the first {...} span,
//     else the whole text.
//  2. Trim and rewrite single-quoted and bare-word keys to double-quoted.
//  3. Strict JSON decode.
//  4. On decode failure, regex-extract the "tool" field and any
//     "parameters" key/value pairs, returning the assembled action even if
//     incomplete.
//  5. If no tool pattern exists at all, return an error Action carrying the
//     original text.
//
// ParseAction never panics and never returns a Go error; every failure path
// produces a value.
func ParseAction(text string) Action {
	candidate := text
	if m := fencedRe.FindStringSubmatch(text); m != nil {
		candidate = m[1]
	} else if m := braceRe.FindStringSubmatch(text); m != nil {
		candidate = m[1]
	}

	candidate = normalizeJSON(strings.TrimSpace(candidate))

	var decoded map[string]any
	if err := json.Unmarshal([]byte(candidate), &decoded); err == nil {
		action := Action{}
		if tool, ok := decoded["tool"].(string); ok {
			action.Tool = tool
		}
		if params, ok := decoded["parameters"].(map[string]any); ok {
			action.Parameters = params
		}
		return action
	}

	// Strict decode failed — fall back to direct pattern extraction against
	// the original text.
	if m := toolFieldRe.FindStringSubmatch(text); m != nil {
		action := Action{Tool: m[1], Parameters: map[string]any{}, Salvaged: true}
		if pm := paramsFieldRe.FindStringSubmatch(text); pm != nil {
			for _, kv := range keyValueRe.FindAllStringSubmatch(pm[1], -1) {
				key, value := kv[1], kv[2]
				if strings.HasPrefix(value, `"`) {
					action.Parameters[key] = strings.Trim(value, `"`)
				} else if n, err := strconv.Atoi(value); err == nil {
					action.Parameters[key] = n
				}
			}
		}
		return action
	}

	return Action{
		Err:          "failed to parse tool action from model output",
		OriginalText: text,
	}
}

// normalizeJSON rewrites common near-miss JSON produced by language models
// into strictly decodable form: single-quoted keys and bare-word keys become
// double-quoted. Values are left untouched except for single-quoted strings,
// which strict JSON also rejects.
func normalizeJSON(s string) string {
	s = singleQuotedKeyRe.ReplaceAllString(s, `"$1"$2:`)
	s = bareKeyRe.ReplaceAllString(s, `$1"$2"$3:`)
	// Single-quoted values commonly accompany single-quoted keys.
	s = rewriteSingleQuotedValues(s)
	return s
}

// rewriteSingleQuotedValues converts 'value' spans that follow a colon into
// "value". Apostrophes inside double-quoted strings are left alone.
var singleQuotedValueRe = regexp.MustCompile(`:(\s*)'([^']*)'`)

func rewriteSingleQuotedValues(s string) string {
	return singleQuotedValueRe.ReplaceAllString(s, `:$1"$2"`)
}
