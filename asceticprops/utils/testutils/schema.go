package testutils

import (
	"context"
	"sync"

	"github.com/krew-solutions/ascetic-props-go/asceticprops/schema"
)

const EmployeeSchemeID int64 = 100

// EmployeeSchema is the fixture scheme shared by resolver, builder and
// compiler tests.
func EmployeeSchema() *schema.Schema {
	return schema.NewBuilder(EmployeeSchemeID, "Employee").
		Field(1, "Name", schema.DbString).
		Field(2, "Age", schema.DbLong).
		Field(3, "Salary", schema.DbNumeric).
		Field(4, "Active", schema.DbBoolean).
		Field(5, "HiredAt", schema.DbDateTime).
		Field(6, "ExternalID", schema.DbGuid).
		ListItem(7, "Status").
		Class(10, "Address", func(b *schema.Builder) {
			b.Field(11, "City", schema.DbString).
				Field(12, "Street", schema.DbString)
		}).
		Dictionary(20, "PhoneBook", schema.DbString).
		DictionaryOf(21, "AddressBook", func(b *schema.Builder) {
			b.Field(22, "City", schema.DbString)
		}).
		Array(30, "Roles", schema.DbListItem).
		Array(31, "Tags", schema.DbString).
		ArrayOf(32, "Skills", func(b *schema.Builder) {
			b.Field(33, "Title", schema.DbString).
				Field(34, "Level", schema.DbLong)
		}).
		Field(40, "Manager", schema.DbObject).
		Build()
}

// CountingProvider serves fixed schemes and counts fetches.
type CountingProvider struct {
	mu      sync.Mutex
	schemes map[int64]*schema.Schema
	Err     error
	calls   int
}

func NewCountingProvider(schemes ...*schema.Schema) *CountingProvider {
	p := &CountingProvider{schemes: make(map[int64]*schema.Schema)}
	for _, s := range schemes {
		p.schemes[s.ID] = s
	}
	return p
}

func (p *CountingProvider) Schema(ctx context.Context, schemeID int64) (*schema.Schema, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.Err != nil {
		return nil, p.Err
	}
	s, ok := p.schemes[schemeID]
	if !ok {
		return nil, schema.ErrSchemaNotFound
	}
	return s, nil
}

// Put replaces a scheme, as a schema migration would.
func (p *CountingProvider) Put(s *schema.Schema) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.schemes[s.ID] = s
}

func (p *CountingProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// GatedProvider reads the inner provider, reports the call on Entered and
// holds the answer until Release.
type GatedProvider struct {
	schema.Provider
	Entered chan int64
	release chan struct{}
}

func NewGatedProvider(inner schema.Provider) *GatedProvider {
	return &GatedProvider{
		Provider: inner,
		Entered:  make(chan int64, 16),
		release:  make(chan struct{}),
	}
}

func (p *GatedProvider) Schema(ctx context.Context, schemeID int64) (*schema.Schema, error) {
	s, err := p.Provider.Schema(ctx, schemeID)
	p.Entered <- schemeID
	select {
	case <-p.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s, err
}

// Release lets every pending and later Schema call through.
func (p *GatedProvider) Release() {
	close(p.release)
}
