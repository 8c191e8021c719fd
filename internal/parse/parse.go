// Package parse turns raw model output into validated candidate
// entries. The model is not trusted: near-JSON is recovered where
// possible and entries violating shape invariants are dropped with
// warnings, never silently corrected.
package parse

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Flag classifies a value against its reference range.
type Flag string

const (
	FlagBelow  Flag = "below"
	FlagWithin Flag = "within"
	FlagAbove  Flag = "above"
)

// Candidate is one extracted entry, traceable to the page it came from.
type Candidate struct {
	RawName string
	Value   *float64 // numeric value when the model reported one
	Text    string   // textual value fallback (e.g. "negative")
	Unit    string
	RefLow  *float64
	RefHigh *float64
	Flag    Flag
	Page    int
}

// wire types mirror the JSON contract the instruction templates ask the
// model to produce.
type wirePayload struct {
	Entries []wireEntry `json:"entries"`
}

type wireEntry struct {
	Name           string     `json:"name"`
	Value          any        `json:"value"`
	Unit           string     `json:"unit"`
	ReferenceRange *wireRange `json:"reference_range"`
	Flag           string     `json:"flag"`
}

type wireRange struct {
	Low  any `json:"low"`
	High any `json:"high"`
}

// Entries parses one page's raw model text into candidates.
// Returned warnings describe entries that were dropped or adjusted; a
// non-nil error means the page contributed nothing at all.
func Entries(text string, page int) ([]Candidate, []string, error) {
	raw, err := RecoverJSON(text)
	if err != nil {
		return nil, nil, err
	}

	if err := validatePayload(raw); err != nil {
		return nil, nil, fmt.Errorf("model output failed shape validation: %w", err)
	}

	var payload wirePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, nil, fmt.Errorf("decoding model output: %w", err)
	}

	var candidates []Candidate
	var warnings []string
	for i, entry := range payload.Entries {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			warnings = append(warnings, fmt.Sprintf("page %d: dropped entry %d with empty name", page, i))
			continue
		}

		c := Candidate{RawName: name, Unit: strings.TrimSpace(entry.Unit), Page: page}
		c.Value, c.Text = toNumber(entry.Value)

		if entry.ReferenceRange != nil {
			low, _ := toNumber(entry.ReferenceRange.Low)
			high, _ := toNumber(entry.ReferenceRange.High)
			if low != nil && high != nil && *low > *high {
				warnings = append(warnings, fmt.Sprintf(
					"page %d: dropped %q: reference range low %g > high %g", page, name, *low, *high))
				continue
			}
			c.RefLow, c.RefHigh = low, high
		}

		flag, known := normalizeFlag(entry.Flag)
		if entry.Flag != "" && !known {
			warnings = append(warnings, fmt.Sprintf("page %d: %q: unrecognized flag %q ignored", page, name, entry.Flag))
		}
		// A flag is only meaningful relative to a reference range.
		if c.RefLow == nil && c.RefHigh == nil {
			flag = ""
		}
		c.Flag = flag

		candidates = append(candidates, c)
	}

	return candidates, warnings, nil
}

// toNumber coerces a decoded JSON value into a float where possible,
// otherwise keeps it as text.
func toNumber(v any) (*float64, string) {
	switch n := v.(type) {
	case nil:
		return nil, ""
	case float64:
		f := n
		return &f, ""
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return nil, ""
		}
		cleaned := strings.ReplaceAll(s, ",", "")
		if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
			return &f, ""
		}
		return nil, s
	case bool:
		return nil, strconv.FormatBool(n)
	default:
		return nil, fmt.Sprintf("%v", n)
	}
}

func normalizeFlag(raw string) (Flag, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return "", true
	case "below", "low", "l", "below range":
		return FlagBelow, true
	case "within", "normal", "n", "within range", "in range":
		return FlagWithin, true
	case "above", "high", "h", "above range":
		return FlagAbove, true
	default:
		return "", false
	}
}
