package signals

type compositeDisposable []Disposable

func (d compositeDisposable) Dispose() {
	for _, item := range d {
		item.Dispose()
	}
}

// CompositeSignalImp fans every call out to its delegates, e.g. to watch
// several schema providers with one observer.
type CompositeSignalImp[E any] struct {
	delegates []Signal[E]
}

func NewCompositeSignal[E any](delegates ...Signal[E]) *CompositeSignalImp[E] {
	return &CompositeSignalImp[E]{delegates: delegates}
}

func (s *CompositeSignalImp[E]) Attach(observer Observer[E], observerID ...any) Disposable {
	disposables := make(compositeDisposable, 0, len(s.delegates))
	for _, delegate := range s.delegates {
		disposables = append(disposables, delegate.Attach(observer, observerID...))
	}
	return disposables
}

func (s *CompositeSignalImp[E]) Detach(observer Observer[E], observerID ...any) {
	for _, delegate := range s.delegates {
		delegate.Detach(observer, observerID...)
	}
}

func (s *CompositeSignalImp[E]) Notify(event E) {
	for _, delegate := range s.delegates {
		delegate.Notify(event)
	}
}
