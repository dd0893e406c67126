package datagen

import (
	"fmt"
	"strings"

	"github.com/altheris/mysql-data-apis/types"
)

// sequenceState is the mutable counter of one declared sequence. State is
// created once per request, so sequences keep advancing across record groups.
type sequenceState struct {
	def     types.SequenceDef
	counter int64
}

func newSequenceState(def types.SequenceDef) *sequenceState {
	return &sequenceState{def: def}
}

// Next produces the sequence's value for the current record and advances the
// counter. INCREMENT derives its number from startValue and step;
// PATTERN counts up by one from startValue on every call regardless of step;
// CUSTOM_VALUES walks its list and either cycles or repeats the last element
// once exhausted.
func (s *sequenceState) Next() types.Value {
	i := s.counter
	s.counter++

	switch s.def.Type {
	case types.SequenceCustomValues:
		values := s.def.CustomValues
		idx := int(i)
		if idx >= len(values) {
			if s.def.Cycle {
				idx = idx % len(values)
			} else {
				idx = len(values) - 1
			}
		}
		return values[idx]
	case types.SequencePattern:
		n := s.def.StartValue + i
		return types.Text(renderPattern(s.def.Pattern, n))
	default:
		return types.Int(s.def.StartValue + i*s.def.Step)
	}
}

// renderPattern substitutes {seq} and {seq:FORMAT} tokens with the sequence
// number. FORMAT is a printf integer verb without the percent sign, for
// example "03d".
func renderPattern(pattern string, n int64) string {
	var sb strings.Builder
	for {
		start := strings.Index(pattern, "{seq")
		if start < 0 {
			sb.WriteString(pattern)
			return sb.String()
		}
		end := strings.Index(pattern[start:], "}")
		if end < 0 {
			sb.WriteString(pattern)
			return sb.String()
		}
		end += start

		sb.WriteString(pattern[:start])
		token := pattern[start+len("{seq") : end]
		if strings.HasPrefix(token, ":") {
			sb.WriteString(fmt.Sprintf("%"+token[1:], n))
		} else {
			sb.WriteString(fmt.Sprintf("%d", n))
		}
		pattern = pattern[end+1:]
	}
}
