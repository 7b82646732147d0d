// SPDX-License-Identifier: Apache-2.0

package acceptor

import (
	"errors"
	"slices"
	"sync"
)

var ErrMechanismNotFound = errors.New("mechanism not found")

var registry struct {
	sync.Mutex
	mechs map[string]MechanismConstructor
}

func init() {
	registry.mechs = make(map[string]MechanismConstructor)
}

// MechanismConstructor creates a new instance of a registered mechanism.
type MechanismConstructor func() (Mechanism, error)

// RegisterMechanism associates a constructor with the unique name of a mechanism
// implementation.  An existing registration under the same name is replaced.
//
// Implementations register themselves from an init function and document the name
// they use.
func RegisterMechanism(name string, f MechanismConstructor) {
	registry.Lock()
	defer registry.Unlock()

	registry.mechs[name] = f
}

// NewMechanism instantiates the mechanism registered under name.
func NewMechanism(name string) (Mechanism, error) {
	registry.Lock()
	f, ok := registry.mechs[name]
	registry.Unlock()

	if !ok {
		return nil, ErrMechanismNotFound
	}

	return f()
}

// MustNewMechanism wraps NewMechanism in a panic.
func MustNewMechanism(name string) Mechanism {
	m, err := NewMechanism(name)
	if err != nil {
		panic("mechanism " + name + ": " + err.Error())
	}

	return m
}

// Mechanisms returns the sorted names of the registered mechanisms.
func Mechanisms() []string {
	registry.Lock()
	defer registry.Unlock()

	names := make([]string, 0, len(registry.mechs))
	for name := range registry.mechs {
		names = append(names, name)
	}
	slices.Sort(names)

	return names
}
