package engine

import (
	"quick-flip-scalper/internal/interfaces"
	"quick-flip-scalper/internal/store"
)

// New builds the engine from cfg. Configuration errors wrap store.ErrConfiguration.
func New(cfg *store.Config) (interfaces.Engine, error) {
	e, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}
	return e, nil
}
