package tui

import "charm.land/bubbles/v2/key"

// keyMap represents key map data used by this package.
type keyMap struct {
	quit          key.Binding
	reload        key.Binding
	toggleHelp    key.Binding
	moveLeft      key.Binding
	moveRight     key.Binding
	moveUp        key.Binding
	moveDown      key.Binding
	multiSelect   key.Binding
	moveCardLeft  key.Binding
	moveCardRight key.Binding
	complete      key.Binding
	reopen        key.Binding
	notes         key.Binding
	addNote       key.Binding
	yank          key.Binding
	types         key.Binding
	toggleClients key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:        key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		moveLeft:      key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "column left")),
		moveRight:     key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "column right")),
		moveUp:        key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "card up")),
		moveDown:      key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "card down")),
		multiSelect:   key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "select card")),
		moveCardLeft:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "move card left")),
		moveCardRight: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "move card right")),
		complete:      key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "complete project")),
		reopen:        key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "reopen project")),
		notes:         key.NewBinding(key.WithKeys("i", "enter"), key.WithHelp("i/enter", "view notes")),
		addNote:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "add note")),
		yank:          key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy project id")),
		types:         key.NewBinding(key.WithKeys("p", "P"), key.WithHelp("p/P", "project types")),
		toggleClients: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "toggle client names")),
	}
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.multiSelect, k.moveCardLeft, k.moveCardRight, k.complete, k.notes, k.types, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.multiSelect, k.complete, k.reopen, k.notes, k.addNote, k.yank, k.types, k.toggleClients, k.toggleHelp, k.reload, k.quit},
		{k.moveLeft, k.moveRight, k.moveUp, k.moveDown, k.moveCardLeft, k.moveCardRight},
	}
}
