// Roadbed - Routing Database Provisioning for PostGIS and pgRouting
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/roadbed

package pipeline

import "fmt"

// State is a provisioning milestone. States are totally ordered.
type State int

const (
	StateNotStarted State = iota
	StatePackagesInstalled
	StateDatasetFetched
	StateRegionExtracted
	StateDatabaseReady
	StateSchemaImported
	StateIndexesBuilt
	StateCostsAnnotated
	StateVerified
)

var stateNames = [...]string{
	StateNotStarted:        "NotStarted",
	StatePackagesInstalled: "PackagesInstalled",
	StateDatasetFetched:    "DatasetFetched",
	StateRegionExtracted:   "RegionExtracted",
	StateDatabaseReady:     "DatabaseReady",
	StateSchemaImported:    "SchemaImported",
	StateIndexesBuilt:      "IndexesBuilt",
	StateCostsAnnotated:    "CostsAnnotated",
	StateVerified:          "Verified",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText encodes the state by name for the journal.
func (s State) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(stateNames) {
		return nil, fmt.Errorf("invalid state %d", int(s))
	}
	return []byte(stateNames[s]), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	name := string(text)
	for i, n := range stateNames {
		if n == name {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", name)
}
