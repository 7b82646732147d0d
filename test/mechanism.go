// SPDX-License-Identifier: Apache-2.0

package test

import (
	"sync"

	"github.com/golang-auth/go-gssapi-acceptor"
)

// Step scripts the result of one AcceptSecContext call on a Mechanism.
type Step struct {
	Status  acceptor.Status
	Output  []byte // nil for no output token
	Flags   acceptor.ContextFlag
	TimeRec uint32
}

// Mechanism is a scripted acceptor.Mechanism that records every call and tracks the
// mechanism buffers it has handed out.  Every context follows the same script.
type Mechanism struct {
	Script    []Step
	Principal string

	DisplayStatus   acceptor.Status
	AttributeStatus acceptor.Status
	AttributeValues [][]byte
	Authenticated   bool
	Complete        bool

	ReleaseStatus acceptor.Status
	DeleteStatus  acceptor.Status

	mu          sync.Mutex
	allocated   int
	released    int
	accepts     int
	deletes     int
	attrQueries int
	creds       []acceptor.Credential
	mechs       []acceptor.Oid
	attrNames   []string
}

type fakeContext struct {
	step int
}

type fakeName struct {
	principal string
}

var _ acceptor.Mechanism = (*Mechanism)(nil)

func (m *Mechanism) newBuffer(value []byte) *acceptor.Buffer {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.allocated++
	return acceptor.NewMechBuffer(m, append([]byte{}, value...), m.allocated)
}

func (m *Mechanism) AcceptSecContext(ctx *acceptor.ContextHandle, cred acceptor.Credential, input *acceptor.Buffer, mech acceptor.Oid) acceptor.AcceptResult {
	m.mu.Lock()
	m.accepts++
	m.creds = append(m.creds, cred)
	m.mechs = append(m.mechs, mech)
	m.mu.Unlock()

	fc, _ := (*ctx).(*fakeContext)
	if fc == nil {
		fc = &fakeContext{}
		*ctx = fc
	}

	if fc.step >= len(m.Script) {
		return acceptor.AcceptResult{Status: acceptor.Failed(acceptor.MajorNoContext, 0)}
	}

	step := m.Script[fc.step]
	fc.step++

	res := acceptor.AcceptResult{
		Status:  step.Status,
		Flags:   step.Flags,
		TimeRec: step.TimeRec,
	}
	if step.Output != nil {
		res.OutputToken = m.newBuffer(step.Output)
	}
	if step.Status.IsComplete() {
		res.SourceName = &fakeName{principal: m.Principal}
	}

	return res
}

func (m *Mechanism) DisplayName(name acceptor.NameHandle) (acceptor.Status, *acceptor.Buffer) {
	if !m.DisplayStatus.IsComplete() {
		return m.DisplayStatus, nil
	}

	n, ok := name.(*fakeName)
	if !ok {
		return acceptor.Failed(acceptor.MajorBadName, 0), nil
	}

	return acceptor.Complete(), m.newBuffer([]byte(n.principal))
}

func (m *Mechanism) GetNameAttribute(name acceptor.NameHandle, attr *acceptor.Buffer, more *int) (acceptor.NameAttribute, acceptor.Status) {
	m.mu.Lock()
	m.attrQueries++
	m.attrNames = append(m.attrNames, string(attr.Copy()))
	m.mu.Unlock()

	if !m.AttributeStatus.IsComplete() {
		return acceptor.NameAttribute{}, m.AttributeStatus
	}
	if len(m.AttributeValues) == 0 {
		return acceptor.NameAttribute{}, acceptor.Failed(acceptor.MajorUnavailable, 0)
	}

	idx := 0
	if *more > 0 {
		idx = *more
	}
	if idx >= len(m.AttributeValues) {
		return acceptor.NameAttribute{}, acceptor.Failed(acceptor.MajorUnavailable, 0)
	}

	*more = 0
	if idx+1 < len(m.AttributeValues) {
		*more = idx + 1
	}

	return acceptor.NameAttribute{
		Authenticated: m.Authenticated,
		Complete:      m.Complete,
		Value:         m.newBuffer(m.AttributeValues[idx]),
		DisplayValue:  m.newBuffer([]byte("display")),
	}, acceptor.Complete()
}

func (m *Mechanism) ReleaseBuffer(b *acceptor.Buffer) acceptor.Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.released++
	return m.ReleaseStatus
}

func (m *Mechanism) DeleteSecContext(ctx *acceptor.ContextHandle) acceptor.Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deletes++
	*ctx = nil

	return m.DeleteStatus
}

// Outstanding returns the number of mechanism buffers handed out and not yet released.
func (m *Mechanism) Outstanding() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.allocated - m.released
}

// Allocated returns the number of mechanism buffers handed out.
func (m *Mechanism) Allocated() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.allocated
}

// Accepts returns the number of AcceptSecContext calls.
func (m *Mechanism) Accepts() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.accepts
}

// Deletes returns the number of DeleteSecContext calls.
func (m *Mechanism) Deletes() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.deletes
}

// AttributeQueries returns the number of GetNameAttribute calls.
func (m *Mechanism) AttributeQueries() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.attrQueries
}

// AttributeNames returns the attribute names queried, in order.
func (m *Mechanism) AttributeNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string{}, m.attrNames...)
}

// Credentials returns the credentials passed to AcceptSecContext, in order.
func (m *Mechanism) Credentials() []acceptor.Credential {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]acceptor.Credential{}, m.creds...)
}

// Mechs returns the mechanism OIDs passed to AcceptSecContext, in order.
func (m *Mechanism) Mechs() []acceptor.Oid {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]acceptor.Oid{}, m.mechs...)
}
