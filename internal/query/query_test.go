package query

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorKeyIsOrderIndependent(t *testing.T) {
	a := Descriptor{Resource: "projects", Params: url.Values{"page": {"1"}, "sortBy": {"name"}}}
	b := Descriptor{Resource: "projects", Params: url.Values{"sortBy": {"name"}, "page": {"1"}}}
	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, "projects?page=1&sortBy=name", a.Key())
	assert.Equal(t, "testers", Descriptor{Resource: "testers"}.Key())
}

type countingFetcher struct {
	calls atomic.Int32
	err   error
}

func (f *countingFetcher) fetch(_ context.Context, d Descriptor) (any, error) {
	n := f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return map[string]any{"resource": d.Resource, "call": int(n)}, nil
}

func TestClientCachesAndInvalidates(t *testing.T) {
	f := &countingFetcher{}
	c := NewClient(f.fetch, Options{})
	d := Descriptor{Resource: "projects", Params: url.Values{"page": {"2"}}}

	_, err := c.Fetch(context.Background(), d)
	require.NoError(t, err)
	_, ok := c.Cached(d.Key())
	assert.True(t, ok)

	other := Descriptor{Resource: "projects_archive"}
	_, err = c.Fetch(context.Background(), other)
	require.NoError(t, err)

	c.Invalidate("projects")
	_, ok = c.Cached(d.Key())
	assert.False(t, ok)
	_, ok = c.Cached(other.Key())
	assert.True(t, ok, "prefix match must stop at the resource boundary")
}

func TestClientSharesConcurrentFetches(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	c := NewClient(func(ctx context.Context, d Descriptor) (any, error) {
		calls.Add(1)
		<-release
		return []any{}, nil
	}, Options{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Fetch(context.Background(), Descriptor{Resource: "testers"})
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientAppliesTimeout(t *testing.T) {
	c := NewClient(func(ctx context.Context, d Descriptor) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, Options{Timeout: 10 * time.Millisecond})
	_, err := c.Fetch(context.Background(), Descriptor{Resource: "slow"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func run(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	return cmd()
}

func TestObserverLifecycle(t *testing.T) {
	f := &countingFetcher{}
	o := NewClient(f.fetch, Options{}).Observe()

	cmd := o.SetQuery(Descriptor{Resource: "projects"})
	require.NotNil(t, cmd)
	assert.True(t, o.State().IsLoading)
	assert.True(t, o.State().IsFetching)

	assert.True(t, o.Update(run(cmd)))
	st := o.State()
	assert.False(t, st.IsLoading)
	assert.False(t, st.IsFetching)
	assert.True(t, st.HasData)

	assert.Nil(t, o.SetQuery(Descriptor{Resource: "projects"}), "same key does not refetch")
}

func TestObserverKeepsPreviousDataWhileRefetching(t *testing.T) {
	f := &countingFetcher{}
	o := NewClient(f.fetch, Options{}).Observe()
	o.Update(run(o.SetQuery(Descriptor{Resource: "projects", Params: url.Values{"page": {"1"}}})))

	cmd := o.SetQuery(Descriptor{Resource: "projects", Params: url.Values{"page": {"2"}}})
	require.NotNil(t, cmd)
	st := o.State()
	assert.False(t, st.IsLoading)
	assert.True(t, st.IsFetching)
	assert.True(t, st.HasData)
}

func TestObserverDropsSupersededResults(t *testing.T) {
	f := &countingFetcher{}
	o := NewClient(f.fetch, Options{}).Observe()

	first := o.SetQuery(Descriptor{Resource: "projects", Params: url.Values{"search": {"a"}}})
	second := o.SetQuery(Descriptor{Resource: "projects", Params: url.Values{"search": {"ab"}}})

	assert.True(t, o.Update(run(second)))
	latest := o.State().Data
	assert.False(t, o.Update(run(first)), "stale result is ignored")
	assert.Equal(t, latest, o.State().Data)
}

func TestObserverIgnoresOtherObservers(t *testing.T) {
	c := NewClient((&countingFetcher{}).fetch, Options{})
	a, b := c.Observe(), c.Observe()
	msg := run(a.SetQuery(Descriptor{Resource: "users"}))
	b.SetQuery(Descriptor{Resource: "users"})
	assert.False(t, b.Update(msg))
	assert.True(t, a.Update(msg))
}

func TestObserverError(t *testing.T) {
	boom := errors.New("backend down")
	o := NewClient((&countingFetcher{err: boom}).fetch, Options{}).Observe()
	assert.True(t, o.Update(run(o.SetQuery(Descriptor{Resource: "users"}))))
	st := o.State()
	assert.True(t, st.IsError)
	assert.ErrorIs(t, st.Err, boom)
	assert.False(t, st.IsLoading)
}

func TestObserverServesCacheAndRefetch(t *testing.T) {
	f := &countingFetcher{}
	c := NewClient(f.fetch, Options{})
	d := Descriptor{Resource: "testers"}
	_, err := c.Fetch(context.Background(), d)
	require.NoError(t, err)

	o := c.Observe()
	assert.Nil(t, o.SetQuery(d))
	assert.True(t, o.State().HasData)
	assert.Equal(t, int32(1), f.calls.Load())

	cmd := o.Refetch()
	require.NotNil(t, cmd)
	assert.True(t, o.State().IsFetching)
	o.Update(run(cmd))
	assert.Equal(t, int32(2), f.calls.Load())
}
