package signals

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type changed struct {
	schemeID int64
}

func TestSignalNotifiesInAttachOrder(t *testing.T) {
	s := NewSignal[changed]()
	var order []int64
	s.Attach(func(e changed) { order = append(order, e.schemeID) }, "first")
	s.Attach(func(e changed) { order = append(order, -e.schemeID) }, "second")

	s.Notify(changed{7})

	assert.Equal(t, []int64{7, -7}, order)
}

func TestSignalAttachIsIdempotentPerID(t *testing.T) {
	s := NewSignal[changed]()
	calls := 0
	observer := Observer[changed](func(changed) { calls++ })
	s.Attach(observer, "obs")
	s.Attach(observer, "obs")

	s.Notify(changed{1})

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, s.Len())
}

func TestSignalDispose(t *testing.T) {
	s := NewSignal[changed]()
	called := false
	d := s.Attach(func(changed) { called = true })
	d.Dispose()

	s.Notify(changed{1})

	assert.False(t, called)
	assert.Zero(t, s.Len())
}

func TestSignalDetachUnknownIsSilent(t *testing.T) {
	s := NewSignal[changed]()
	s.Detach(func(changed) {}, "missing")
	assert.Zero(t, s.Len())
}

func TestSignalObserverMayDetachItself(t *testing.T) {
	s := NewSignal[changed]()
	calls := 0
	var d Disposable
	d = s.Attach(func(changed) {
		calls++
		d.Dispose()
	}, "once")

	s.Notify(changed{1})
	s.Notify(changed{2})

	assert.Equal(t, 1, calls)
}

func TestSignalConcurrentNotify(t *testing.T) {
	s := NewSignal[changed]()
	var mu sync.Mutex
	total := int64(0)
	s.Attach(func(e changed) {
		mu.Lock()
		total += e.schemeID
		mu.Unlock()
	}, "sum")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Notify(changed{1})
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(20), total)
}

func TestCompositeSignal(t *testing.T) {
	a, b := NewSignal[changed](), NewSignal[changed]()
	composite := NewCompositeSignal[changed](a, b)
	var seen []int64
	d := composite.Attach(func(e changed) { seen = append(seen, e.schemeID) }, "obs")

	a.Notify(changed{1})
	b.Notify(changed{2})
	composite.Notify(changed{3})
	assert.Equal(t, []int64{1, 2, 3, 3}, seen)

	d.Dispose()
	assert.Zero(t, a.Len())
	assert.Zero(t, b.Len())
}
