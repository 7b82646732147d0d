// SPDX-License-Identifier: Apache-2.0

package krb5

import (
	"github.com/jcmturner/gokrb5/v8/types"

	"github.com/golang-auth/go-gssapi-acceptor"
)

// peerName is the mechanism name of an authenticated initiator.
type peerName struct {
	cname types.PrincipalName
	realm string

	pac         *pacBuffers
	pacVerified bool // the PAC server signature checked out under the service key
}

func (n *peerName) String() string {
	return n.cname.PrincipalNameString() + "@" + n.realm
}

// DisplayName returns the initiator's principal as "name@REALM".
func (m *Mechanism) DisplayName(name acceptor.NameHandle) (acceptor.Status, *acceptor.Buffer) {
	n, ok := name.(*peerName)
	if !ok || n == nil {
		return acceptor.Failed(acceptor.MajorBadName, 0), nil
	}

	return acceptor.Complete(), m.newBuffer([]byte(n.String()))
}

// GetNameAttribute returns one value of a PAC name attribute.  Values are
// authenticated when the PAC server signature verifies.
func (m *Mechanism) GetNameAttribute(name acceptor.NameHandle, attr *acceptor.Buffer, more *int) (acceptor.NameAttribute, acceptor.Status) {
	n, ok := name.(*peerName)
	if !ok || n == nil {
		return acceptor.NameAttribute{}, acceptor.Failed(acceptor.MajorBadName, 0)
	}
	if more == nil {
		return acceptor.NameAttribute{}, acceptor.Failed(acceptor.MajorCallInaccessibleWrite, 0)
	}

	if n.pac == nil {
		m.logger.Debug("name attribute unavailable", "principal", n.String(), "error", errNoPAC)
		return acceptor.NameAttribute{}, acceptor.Failed(acceptor.MajorUnavailable, minorNoEntry)
	}

	values, err := n.pac.values(string(attr.Copy()))
	if err != nil {
		return acceptor.NameAttribute{}, acceptor.Failed(acceptor.MajorUnavailable, minorNoEntry)
	}

	idx := 0
	if *more > 0 {
		idx = *more
	}
	if idx >= len(values) {
		return acceptor.NameAttribute{}, acceptor.Failed(acceptor.MajorUnavailable, minorNoEntry)
	}

	*more = 0
	if idx+1 < len(values) {
		*more = idx + 1
	}

	return acceptor.NameAttribute{
		Authenticated: n.pacVerified,
		Complete:      true,
		Value:         m.newBuffer(append([]byte{}, values[idx]...)),
	}, acceptor.Complete()
}
