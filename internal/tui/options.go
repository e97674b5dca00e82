package tui

import (
	"strings"

	"charm.land/bubbles/v2/key"

	"github.com/rivergate/tally/internal/board"
	"github.com/rivergate/tally/internal/config"
)

type Option func(*Model)

func WithBoardConfig(cfg config.BoardConfig) Option {
	return func(m *Model) {
		m.showClientNames = cfg.ShowClientNames
		m.showStageRoles = cfg.ShowStageRoles
	}
}

func WithKeyConfig(cfg config.KeyConfig) Option {
	return func(m *Model) {
		if k := strings.TrimSpace(cfg.MultiSelect); k != "" {
			m.keys.multiSelect = key.NewBinding(key.WithKeys(k), key.WithHelp(k, "select card"))
		}
		if k := strings.TrimSpace(cfg.MoveLeft); k != "" {
			m.keys.moveCardLeft = key.NewBinding(key.WithKeys(k), key.WithHelp(k, "move card left"))
		}
		if k := strings.TrimSpace(cfg.MoveRight); k != "" {
			m.keys.moveCardRight = key.NewBinding(key.WithKeys(k), key.WithHelp(k, "move card right"))
		}
	}
}

func WithResolver(resolver board.Resolver) Option {
	return func(m *Model) {
		if resolver != nil {
			m.resolver = resolver
		}
	}
}
