// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bot

import "fmt"

// State is an instance's position in the game's menu flow.
type State uint8

const (
	// StateBoot is the initial state. The first tick moves to
	// StateMainMenu unconditionally.
	StateBoot State = iota

	// StateMainMenu is any screen before the lobby.
	StateMainMenu

	// StateLobby is the lobby, identified by a visible READY button.
	StateLobby

	// StateMatchFound means an ACCEPT prompt was seen.
	StateMatchFound

	// StateLoading follows a clicked ACCEPT, until the session HUD
	// appears or the loading budget runs out.
	StateLoading

	// StateInSession is entered whenever the presence probe fires,
	// from any state.
	StateInSession

	// StateRecovery is entered when the window disappears or a
	// state times out without progress.
	StateRecovery

	stateCount
)

var stateNames = [stateCount]string{
	StateBoot:       "BOOT",
	StateMainMenu:   "MAIN_MENU",
	StateLobby:      "LOBBY",
	StateMatchFound: "MATCH_FOUND",
	StateLoading:    "LOADING",
	StateInSession:  "IN_SESSION",
	StateRecovery:   "RECOVERY",
}

func (s State) String() string {
	if s < stateCount {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	if s >= stateCount {
		return nil, fmt.Errorf("invalid state %d", uint8(s))
	}
	return []byte(stateNames[s]), nil
}

// UnmarshalText parses a state name as written by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	state, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = state
	return nil
}

// ParseState returns the state with the given name.
func ParseState(name string) (State, error) {
	for state, stateName := range stateNames {
		if stateName == name {
			return State(state), nil
		}
	}
	return 0, fmt.Errorf("unknown state %q", name)
}
