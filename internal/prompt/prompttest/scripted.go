// Package prompttest provides a Prompter that replays canned answers.
package prompttest

import (
	"fmt"

	"tagdeploy/internal/prompt"
)

// Scripted answers prompts in order. Inputs are returned verbatim (an empty
// string takes the question default), confirms and selections are consumed
// from their own queues. Running out of answers returns prompt.ErrNoInput.
type Scripted struct {
	Inputs     []string
	Confirms   []bool
	Selections [][]string

	// Asked records every message shown, in order.
	Asked []string
	// Offered records the options of every MultiSelect call.
	Offered [][]string
	// Defaults records the default of every Input call.
	Defaults []string
}

var _ prompt.Prompter = (*Scripted)(nil)

func (s *Scripted) Input(q prompt.Question) (string, error) {
	s.Asked = append(s.Asked, q.Message)
	s.Defaults = append(s.Defaults, q.Default)
	for {
		if len(s.Inputs) == 0 {
			return "", prompt.ErrNoInput
		}
		answer := s.Inputs[0]
		s.Inputs = s.Inputs[1:]
		if answer == "" {
			answer = q.Default
		}
		validate := q.Validate
		if validate == nil {
			validate = prompt.NonEmpty
		}
		if validate(answer) == nil {
			return answer, nil
		}
	}
}

func (s *Scripted) Confirm(msg string, defaultYes bool) (bool, error) {
	s.Asked = append(s.Asked, msg)
	if len(s.Confirms) == 0 {
		return false, prompt.ErrNoInput
	}
	answer := s.Confirms[0]
	s.Confirms = s.Confirms[1:]
	return answer, nil
}

func (s *Scripted) MultiSelect(label string, options []string) ([]string, error) {
	s.Asked = append(s.Asked, label)
	s.Offered = append(s.Offered, options)
	if len(s.Selections) == 0 {
		return nil, prompt.ErrNoInput
	}
	picked := s.Selections[0]
	s.Selections = s.Selections[1:]
	for _, p := range picked {
		if !contains(options, p) {
			return nil, fmt.Errorf("scripted selection %q not offered", p)
		}
	}
	return picked, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
