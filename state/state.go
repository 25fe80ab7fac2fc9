// Package state is the C6 component: the two-field HEAD record (current
// branch, current commit) persisted whole-file.
package state

import (
	"encoding/json"
	"fmt"

	"github.com/go-git/go-billy/v6"

	"github.com/nickyhof/vcs/fsio"
	"github.com/nickyhof/vcs/id"
)

// Master is the name of the one branch that exists from init onward.
const Master = "master"

// State is the two-field HEAD record. CurrentCommit is nil until the first
// commit.
type State struct {
	CurrentBranch string `json:"current_branch"`
	CurrentCommit *id.ID `json:"current_commit"`
}

// Initial returns the State created by init: on master, no commit yet.
func Initial() State {
	return State{CurrentBranch: Master}
}

// HasCommit reports whether CurrentCommit is set.
func (s State) HasCommit() bool {
	return s.CurrentCommit != nil
}

// Save persists s as whole-file JSON.
func Save(fs billy.Filesystem, path string, s State) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("state: marshal: %w", err)
	}
	return fsio.WriteFile(fs, path, data)
}

// Load reads a State previously written by Save.
func Load(fs billy.Filesystem, path string) (State, error) {
	data, err := fsio.ReadFile(fs, path)
	if err != nil {
		return State{}, fmt.Errorf("state: load: %w", err)
	}
	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("state: unmarshal: %w", err)
	}
	return s, nil
}
