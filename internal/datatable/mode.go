package datatable

import "testdeck/internal/query"

// Mode decides who sorts, filters and paginates: the table or the backend.
type Mode int

const (
	ModeClient Mode = iota
	ModeServer
)

func (m Mode) String() string {
	if m == ModeServer {
		return "server"
	}
	return "client"
}

// Source is where a table gets its rows. It is fixed for the table's lifetime.
type Source struct {
	mode    Mode
	fixed   query.Descriptor
	factory func(Params) query.Descriptor
}

// ClientQuery fetches the complete result set once; the table derives
// sorting, filtering and pagination locally.
func ClientQuery(d query.Descriptor) Source {
	return Source{mode: ModeClient, fixed: d}
}

// ServerQuery builds a descriptor from the table state on every change;
// the backend returns the requested page.
func ServerQuery(factory func(Params) query.Descriptor) Source {
	return Source{mode: ModeServer, factory: factory}
}

func (s Source) Mode() Mode { return s.mode }

// Resolve returns the descriptor to fetch for params.
func (s Source) Resolve(p Params) query.Descriptor {
	if s.mode == ModeServer {
		if s.factory == nil {
			return query.Descriptor{}
		}
		return s.factory(p)
	}
	return s.fixed
}
