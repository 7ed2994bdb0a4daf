// Package query runs list fetches for tables and tracks their lifecycle
// inside the Bubble Tea loop.
package query

import (
	"context"
	"net/url"
)

// Descriptor identifies one fetch: a backend resource and its parameters.
type Descriptor struct {
	Resource string
	Params   url.Values
}

// Key returns a stable identity for the descriptor. Parameter order does not matter.
func (d Descriptor) Key() string {
	if len(d.Params) == 0 {
		return d.Resource
	}
	return d.Resource + "?" + d.Params.Encode()
}

// IsZero reports whether the descriptor names no resource.
func (d Descriptor) IsZero() bool { return d.Resource == "" }

// Fetcher executes a descriptor against a backend and returns the decoded
// response: a JSON-like tree of maps, slices and scalars.
type Fetcher func(ctx context.Context, d Descriptor) (any, error)

// State is the lifecycle of the current query of one observer.
type State struct {
	Data    any
	HasData bool

	// IsLoading is set while a fetch is in flight and there is no data yet.
	IsLoading bool
	// IsFetching is set while any fetch is in flight.
	IsFetching bool

	IsError bool
	Err     error
}

// ResultMsg carries the outcome of one fetch back into the update loop.
type ResultMsg struct {
	Observer string
	Key      string
	Data     any
	Err      error
}
