package param

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateID is returned when two parameters share an ID
	ErrDuplicateID = errors.New("param: duplicate parameter id")
	// ErrSparseID is returned when IDs do not form the range 0..n-1
	ErrSparseID = errors.New("param: parameter ids must be dense")
)

// Store is a flat, indexed array of parameters. It is built once and never
// resized, so lookups need no lock: any goroutine may Set while the audio
// thread calls Get.
type Store struct {
	params []*Parameter
}

// NewStore creates a store. Parameter IDs must be exactly 0..len(params)-1
// in any order.
func NewStore(params ...*Parameter) (*Store, error) {
	s := &Store{params: make([]*Parameter, len(params))}
	for _, p := range params {
		if p == nil {
			return nil, fmt.Errorf("%w: nil parameter", ErrSparseID)
		}
		if int(p.ID) >= len(params) {
			return nil, fmt.Errorf("%w: id %d (%s) out of range 0..%d", ErrSparseID, p.ID, p.Name, len(params)-1)
		}
		if s.params[p.ID] != nil {
			return nil, fmt.Errorf("%w: %d (%s, %s)", ErrDuplicateID, p.ID, s.params[p.ID].Name, p.Name)
		}
		s.params[p.ID] = p
	}
	return s, nil
}

// Param returns the parameter with the given ID, or nil
func (s *Store) Param(id uint32) *Parameter {
	if int(id) >= len(s.params) {
		return nil
	}
	return s.params[id]
}

// Get returns the normalized value, or 0 for an unknown ID
func (s *Store) Get(id uint32) float64 {
	if int(id) >= len(s.params) {
		return 0
	}
	return s.params[id].GetValue()
}

// Set stores a normalized value. Unknown IDs are ignored.
func (s *Store) Set(id uint32, value float64) {
	if int(id) >= len(s.params) {
		return
	}
	s.params[id].SetValue(value)
}

// Plain returns the scaled value, or 0 for an unknown ID
func (s *Store) Plain(id uint32) float64 {
	if int(id) >= len(s.params) {
		return 0
	}
	return s.params[id].GetPlainValue()
}

// SetPlain stores a value given in the parameter's plain range
func (s *Store) SetPlain(id uint32, plain float64) {
	if int(id) >= len(s.params) {
		return
	}
	s.params[id].SetPlainValue(plain)
}

// Count returns the number of parameters
func (s *Store) Count() int {
	return len(s.params)
}

// All returns all parameters in ID order
func (s *Store) All() []*Parameter {
	out := make([]*Parameter, len(s.params))
	copy(out, s.params)
	return out
}

// Lookup finds a parameter by name or short name
func (s *Store) Lookup(name string) (*Parameter, bool) {
	for _, p := range s.params {
		if p.Name == name || p.ShortName == name {
			return p, true
		}
	}
	return nil, false
}

// ResetToDefaults restores every parameter's default value
func (s *Store) ResetToDefaults() {
	for _, p := range s.params {
		p.Reset()
	}
}
