package common

import (
	"errors"
	"fmt"
)

// ErrModulePaused is returned by every mutating call on a paused module.
var ErrModulePaused = errors.New("module paused")

// PauseView reports operator pause switches by module name.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard fails with ErrModulePaused, naming the module, when p pauses it. A nil
// view never pauses anything.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return fmt.Errorf("%w: %s", ErrModulePaused, module)
	}
	return nil
}
