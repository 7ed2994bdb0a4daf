package query

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
)

// Observer tracks the current query of one table. Only the result of the
// latest descriptor is applied; results of superseded descriptors are dropped.
type Observer struct {
	id     string
	client *Client
	desc   Descriptor
	key    string
	active bool
	state  State
}

func newObserver(c *Client) *Observer {
	return &Observer{id: uuid.NewString(), client: c}
}

// ID identifies the observer in ResultMsg values.
func (o *Observer) ID() string { return o.id }

// State returns the current lifecycle snapshot.
func (o *Observer) State() State { return o.state }

// SetQuery switches to d. It returns nil when d has the same key as the
// current query, and serves cached results without a fetch.
func (o *Observer) SetQuery(d Descriptor) tea.Cmd {
	key := d.Key()
	if o.active && key == o.key {
		return nil
	}
	o.desc, o.key, o.active = d, key, true

	if data, ok := o.client.Cached(key); ok {
		o.state = State{Data: data, HasData: true}
		return nil
	}
	return o.start()
}

// Refetch drops the cached result of the current query and fetches it again.
func (o *Observer) Refetch() tea.Cmd {
	if !o.active {
		return nil
	}
	o.client.cache.Remove(o.key)
	return o.start()
}

func (o *Observer) start() tea.Cmd {
	// Previous data stays visible while the next result is in flight.
	o.state.IsFetching = true
	o.state.IsLoading = !o.state.HasData
	o.state.IsError = false
	o.state.Err = nil

	id, key, desc, client := o.id, o.key, o.desc, o.client
	return func() tea.Msg {
		data, err := client.Fetch(context.Background(), desc)
		return ResultMsg{Observer: id, Key: key, Data: data, Err: err}
	}
}

// Update applies msg when it is the result of the current query and reports
// whether the state changed.
func (o *Observer) Update(msg tea.Msg) bool {
	res, ok := msg.(ResultMsg)
	if !ok || res.Observer != o.id || res.Key != o.key {
		return false
	}
	if res.Err != nil {
		o.state.IsFetching = false
		o.state.IsLoading = false
		o.state.IsError = true
		o.state.Err = res.Err
		return true
	}
	o.state = State{Data: res.Data, HasData: true}
	return true
}
