package signals

type Observer[E any] func(E)

// Disposable detaches whatever Attach registered.
type Disposable interface {
	Dispose()
}

type Signal[E any] interface {
	Attach(observer Observer[E], observerID ...any) Disposable
	Detach(observer Observer[E], observerID ...any)
	Notify(event E)
}
