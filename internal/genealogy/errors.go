package genealogy

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownLanguoid is returned when a code is not in the classification tree.
var ErrUnknownLanguoid = errors.New("unknown languoid")

// CycleError reports a loop in the parent links.
type CycleError struct {
	// Path lists the codes around the loop; the first code is repeated last.
	Path []string
}

func (e *CycleError) Error() string {
	return "cycle in classification tree: " + strings.Join(e.Path, " -> ")
}

// DanglingParentError reports a parent id that names no languoid.
type DanglingParentError struct {
	ID       string
	ParentID string
}

func (e *DanglingParentError) Error() string {
	return fmt.Sprintf("languoid %s: parent %q does not exist", e.ID, e.ParentID)
}
