package model

// Bubble Tea message types

// ErrorMsg represents an error message.
type ErrorMsg struct {
	Err error
}

// InfoMsg is a transient status line message.
type InfoMsg struct {
	Text string
}

// NavigateMsg asks the app to route to a target such as "/test-cases/12".
type NavigateMsg struct {
	Target string
}

// DetailLoadedMsg is sent when a single record is loaded.
type DetailLoadedMsg struct {
	Screen Screen
	ID     int64
	Record map[string]any
}

// MutatedMsg is sent after a row action changed backend data.
type MutatedMsg struct {
	Screen Screen
	ID     int64
	// Verb is the past-tense action for the status line: "archived", "deleted".
	Verb string
	// Previous is the status before the change; empty when it cannot be undone.
	Previous string
	// Undo marks a mutation that reverted an earlier one.
	Undo bool
}
