package entity

import (
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/Breeze/breeze.sharp-sub000"
	"github.com/Breeze/breeze.sharp-sub000/graph"
	"github.com/Breeze/breeze.sharp-sub000/schema/field"
)

// KeyGenerator produces temporary key values for new entities.
type KeyGenerator interface {
	// NextTempID returns a new temporary value for the key property p.
	NextTempID(p *graph.Property) (any, error)
	// IsTempID reports whether v was produced by the generator for p.
	IsTempID(p *graph.Property, v any) bool
	// Reset forgets the produced values and restarts the sequences.
	Reset()
}

// DefaultKeyGenerator produces negative integers (-1, -2, ...) for integer
// keys, random UUIDs for UUID keys and "K_1", "K_2", ... for string keys.
type DefaultKeyGenerator struct {
	mu     sync.Mutex
	num    int64
	str    int64
	issued map[tempID]struct{}
}

type tempID struct {
	typ  string
	prop string
	val  any
}

// NewKeyGenerator returns a DefaultKeyGenerator.
func NewKeyGenerator() *DefaultKeyGenerator {
	return &DefaultKeyGenerator{issued: make(map[tempID]struct{})}
}

// NextTempID implements KeyGenerator.
func (g *DefaultKeyGenerator) NextTempID(p *graph.Property) (any, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var v any
	switch p.Type {
	case field.TypeInt16, field.TypeInt32, field.TypeInt, field.TypeInt64:
		g.num--
		if p.Type == field.TypeInt16 && g.num < math.MinInt16 || p.Type == field.TypeInt32 && g.num < math.MinInt32 {
			return nil, fmt.Errorf("breeze: temporary keys of %s exhausted", p)
		}
		c, err := p.Type.Coerce(g.num)
		if err != nil {
			return nil, err
		}
		v = c
	case field.TypeUUID:
		v = uuid.New()
	case field.TypeString:
		g.str++
		v = fmt.Sprintf("K_%d", g.str)
	default:
		return nil, breeze.NewUnknownKeyGeneratorError(p.Owner.Name, p.Name)
	}
	if g.issued == nil {
		g.issued = make(map[tempID]struct{})
	}
	g.issued[g.id(p, v)] = struct{}{}
	return v, nil
}

// IsTempID implements KeyGenerator.
func (g *DefaultKeyGenerator) IsTempID(p *graph.Property, v any) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.issued[g.id(p, v)]
	return ok
}

// Reset implements KeyGenerator.
func (g *DefaultKeyGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.num, g.str = 0, 0
	g.issued = make(map[tempID]struct{})
}

func (g *DefaultKeyGenerator) id(p *graph.Property, v any) tempID {
	return tempID{typ: p.Owner.Root().Name, prop: p.Name, val: p.Type.Portable(v)}
}

// maxKeyAttempts bounds the collision loop of generateKey.
const maxKeyAttempts = 1 << 16

// generateKey returns a temporary key value for e that is used neither by
// a cached entity of its hierarchy nor by the reserved ids.
func (m *Manager) generateKey(e *Entity, reserved map[string]*Entity) (any, error) {
	p := e.typ.Keys[0]
	if m.keygen == nil {
		return nil, breeze.NewUnknownKeyGeneratorError(e.typ.Name, p.Name)
	}
	for range maxKeyAttempts {
		v, err := m.keygen.NextTempID(p)
		if err != nil {
			if breeze.IsUnknownKeyGenerator(err) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", breeze.NewUnknownKeyGeneratorError(e.typ.Name, p.Name), err)
		}
		if v, err = p.Coerce(v); err != nil {
			return nil, err
		}
		id := keyID(e.typ, []any{v})
		if m.findByID(e.typ, id) != nil || reserved[id] != nil {
			m.log.Debug("temporary key collision", "type", e.typ.Name, "key", id)
			continue
		}
		return v, nil
	}
	return nil, fmt.Errorf("breeze: no free temporary key for %s after %d attempts", e.typ.Name, maxKeyAttempts)
}

// GenerateKey assigns a temporary key to e. Attached entities are
// re-indexed and registered as holding a temporary key right away;
// detached entities are registered when they are attached.
func (m *Manager) GenerateKey(e *Entity) error {
	if e.manager != nil && e.manager != m {
		return breeze.NewCrossCacheAssociationError(e.String(), "", "")
	}
	if len(e.typ.Keys) != 1 {
		return breeze.NewUnknownKeyGeneratorError(e.typ.Name, "")
	}
	v, err := m.generateKey(e, nil)
	if err != nil {
		return err
	}
	return m.run(false, func() error {
		p := e.typ.Keys[0]
		if err := e.setValue(p, v, fixup|notify); err != nil {
			return err
		}
		if e.manager == nil {
			e.pendingTemp = true
			return nil
		}
		m.tempKeys[e] = struct{}{}
		return nil
	})
}

// IsTempKey reports whether the key of e is a temporary key pending save.
func (m *Manager) IsTempKey(e *Entity) bool {
	_, ok := m.tempKeys[e]
	return ok
}

// TempKeys returns the keys of the entities holding temporary keys.
func (m *Manager) TempKeys() []Key {
	keys := make([]Key, 0, len(m.tempKeys))
	for _, g := range m.groupList {
		for _, e := range g.slots {
			if _, ok := m.tempKeys[e]; ok && e != nil {
				keys = append(keys, e.key)
			}
		}
	}
	return keys
}
