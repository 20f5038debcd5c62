// Package state persists pipeline runs and their output in SQLite.
//
// Core types are defined in pkg/core; this package re-exports the ones its
// callers need.
package state

import (
	"errors"

	"github.com/leapstack-labs/leapphon/pkg/core"
)

type (
	// Store is an alias for core.Store.
	Store = core.Store

	// Run is an alias for core.Run.
	Run = core.Run

	// RunStatus is an alias for core.RunStatus.
	RunStatus = core.RunStatus
)

// ErrNotFound is returned when a requested run, phoneme or inventory does not exist.
var ErrNotFound = errors.New("not found")

var errNotOpened = errors.New("database not opened")
