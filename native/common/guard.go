package common

import "errors"

// ErrModulePaused is returned when an engine module has been switched off by
// the operator of the deployment.
var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a named engine module is currently paused.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects calls into a paused module. A nil view means no pause switch
// is configured and all modules run.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// StaticPauses is a fixed pause set, typically loaded from configuration.
type StaticPauses map[string]bool

// IsPaused implements PauseView.
func (s StaticPauses) IsPaused(module string) bool {
	if s == nil {
		return false
	}
	return s[module]
}
