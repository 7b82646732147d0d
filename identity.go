// SPDX-License-Identifier: Apache-2.0

package acceptor

import "errors"

// maxAttributeValues bounds attribute paging against a mechanism that never clears the cursor.
const maxAttributeValues = 64

// Identity is the authenticated initiator of an established context.
type Identity struct {
	Principal string      // display form of the initiator name, e.g. "alice@EXAMPLE.COM"
	Flags     ContextFlag // services negotiated for the context
	ExpiresAt GssLifetime // context lifetime

	// AuthorizationData is the first value of the authorization attribute.  The payload
	// is opaque; for the default attribute it is an NDR encoded KERB_VALIDATION_INFO.
	AuthorizationData []byte

	// AuthorizationValues holds every value fetched.  Without attribute paging it holds
	// at most one element.
	AuthorizationValues [][]byte

	AuthorizationAuthenticated bool // every value fetched was authenticated
	AuthorizationComplete      bool // the mechanism reported the values as complete
	AuthorizationMore          bool // the mechanism reported further values not fetched
}

func (c *SecContext) extractIdentity(res AcceptResult) (*Identity, error) {
	status, nameBuf := c.mech.DisplayName(res.SourceName)
	if !status.IsComplete() {
		err := newStatusError(ErrDisplayNameFailed, status, MechSPNEGO)
		return nil, joinRelease(err, nameBuf)
	}

	principal, err := nameBuf.CopyAndRelease()
	if err != nil {
		return nil, err
	}
	if len(principal) == 0 {
		return nil, newStatusError(ErrDisplayNameFailed, Failed(MajorBadName, 0), MechSPNEGO)
	}

	id := &Identity{
		Principal: string(principal),
		Flags:     res.Flags,
		ExpiresAt: MakeGssLifetime(c.now(), res.TimeRec),
	}

	attr := FromText(c.attribute)
	defer attr.Release() //nolint:errcheck

	more := -1
	for len(id.AuthorizationValues) < maxAttributeValues {
		value, status := c.mech.GetNameAttribute(res.SourceName, attr, &more)
		if !status.IsComplete() {
			err := newStatusError(ErrAuthorizationDataFailed, status, MechSPNEGO)
			return nil, joinRelease(err, value.Value, value.DisplayValue)
		}

		data, err := value.Value.CopyAndRelease()
		if err = errors.Join(err, value.DisplayValue.Release()); err != nil {
			return nil, err
		}

		first := len(id.AuthorizationValues) == 0
		id.AuthorizationValues = append(id.AuthorizationValues, data)
		id.AuthorizationAuthenticated = value.Authenticated && (first || id.AuthorizationAuthenticated)
		id.AuthorizationComplete = value.Complete
		id.AuthorizationMore = more > 0

		if !c.paging || !id.AuthorizationMore {
			break
		}
	}

	id.AuthorizationData = id.AuthorizationValues[0]
	c.logger.Debug("identity extracted",
		"principal", id.Principal,
		"attribute", c.attribute,
		"values", len(id.AuthorizationValues),
		"authenticated", id.AuthorizationAuthenticated,
		"more", id.AuthorizationMore)

	return id, nil
}

// joinRelease releases bufs and joins any release failure to err.
func joinRelease(err error, bufs ...*Buffer) error {
	errs := []error{err}
	for _, b := range bufs {
		errs = append(errs, b.Release())
	}

	return errors.Join(errs...)
}
