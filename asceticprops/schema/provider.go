package schema

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/signals"
)

// SchemaChanged is emitted after the structures of a scheme were replaced.
type SchemaChanged struct {
	SchemeID int64
}

// StaticProvider serves schemes kept in memory, e.g. declared with Builder
// at startup or loaded from YAML.
type StaticProvider struct {
	mu      sync.RWMutex
	schemes map[int64]*Schema
	changed *signals.SignalImp[SchemaChanged]
}

func NewStaticProvider(schemes ...*Schema) *StaticProvider {
	p := &StaticProvider{
		schemes: make(map[int64]*Schema, len(schemes)),
		changed: signals.NewSignal[SchemaChanged](),
	}
	for _, s := range schemes {
		p.schemes[s.ID] = s
	}
	return p
}

// Put replaces the metadata of a scheme and notifies Changed observers once
// the new version is visible.
func (p *StaticProvider) Put(s *Schema) {
	p.mu.Lock()
	p.schemes[s.ID] = s
	p.mu.Unlock()
	p.changed.Notify(SchemaChanged{SchemeID: s.ID})
}

func (p *StaticProvider) Changed() signals.Signal[SchemaChanged] {
	return p.changed
}

func (p *StaticProvider) Schema(ctx context.Context, schemeID int64) (*Schema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.schemes[schemeID]
	if !ok {
		return nil, errors.Wrapf(ErrSchemaNotFound, "scheme %d", schemeID)
	}
	return s, nil
}
