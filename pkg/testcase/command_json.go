// SPDX-License-Identifier: MPL-2.0

package testcase

import (
	"encoding/json"
	"fmt"
)

// rawCommand is used to structurally discriminate a Command variant before
// decoding it into its concrete type: presence of "cmd" means GenericCmd,
// presence of "code" means ControlSignal, neither means StartShell. CUE
// validates the closed shape of each variant against the embedded schema
// before this ever runs; this switch only picks which Go type to decode
// into, it does not re-validate field constraints.
type rawCommand struct {
	Cmd  *string `json:"cmd"`
	Code *string `json:"code"`
}

// unmarshalCommand decodes a Command tagged union via structural discrimination.
func unmarshalCommand(data []byte) (Command, error) {
	var probe rawCommand
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode command: %w", err)
	}

	switch {
	case probe.Cmd != nil:
		var cmd GenericCmd
		if err := json.Unmarshal(data, &cmd); err != nil {
			return nil, fmt.Errorf("decode GenericCmd: %w", err)
		}
		return cmd, nil
	case probe.Code != nil:
		var cs ControlSignal
		if err := json.Unmarshal(data, &cs); err != nil {
			return nil, fmt.Errorf("decode ControlSignal: %w", err)
		}
		return cs, nil
	default:
		var ss StartShell
		if err := json.Unmarshal(data, &ss); err != nil {
			return nil, fmt.Errorf("decode StartShell: %w", err)
		}
		return ss, nil
	}
}

// commandList decodes a JSON array of tagged-union Command values.
type commandList []Command

func (l *commandList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode cmds array: %w", err)
	}
	cmds := make([]Command, 0, len(raw))
	for i, item := range raw {
		cmd, err := unmarshalCommand(item)
		if err != nil {
			return fmt.Errorf("cmds[%d]: %w", i, err)
		}
		cmds = append(cmds, cmd)
	}
	*l = cmds
	return nil
}

// UnmarshalJSON decodes a TestCase, resolving its Command tagged union and
// defaulting TimeoutSeconds when absent from the source JSON.
func (t *TestCase) UnmarshalJSON(data []byte) error {
	type alias TestCase
	aux := struct {
		Cmds           commandList `json:"cmds"`
		TimeoutSeconds *float64    `json:"timeout"`
		*alias
	}{alias: (*alias)(t)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	t.Commands = aux.Cmds
	if aux.TimeoutSeconds != nil {
		t.TimeoutSeconds = *aux.TimeoutSeconds
	} else {
		t.TimeoutSeconds = DefaultTimeoutSeconds
	}
	t.Timeout = durationFromSeconds(t.TimeoutSeconds)
	return nil
}

// MarshalJSON encodes a TestCase, flattening its Command tagged union back
// into plain JSON objects (each variant already carries its own fields).
func (t TestCase) MarshalJSON() ([]byte, error) {
	type alias TestCase
	return json.Marshal(struct {
		Cmds []Command `json:"cmds"`
		alias
	}{
		Cmds:  t.Commands,
		alias: alias(t),
	})
}
