// SPDX-License-Identifier: Apache-2.0

package acceptor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusErrorUnwrap(t *testing.T) {
	assert := assert.New(t)

	var err error = newStatusError(ErrNegotiationFailed, Failed(MajorDefectiveToken, 7), MechSPNEGO)

	assert.ErrorIs(err, ErrNegotiationFailed)
	assert.ErrorIs(err, ErrDefectiveToken)
	assert.NotErrorIs(err, ErrDisplayNameFailed)

	var se *StatusError
	assert.ErrorAs(err, &se)
	assert.Equal(uint32(MajorDefectiveToken), se.Status.Major)
	assert.Equal(uint32(7), se.Status.Minor)
	assert.Equal(MechSPNEGO, se.Mech)

	var fatal FatalStatus
	assert.ErrorAs(err, &fatal)
}

func TestStatusErrorString(t *testing.T) {
	assert := assert.New(t)

	msg := newStatusError(ErrBufferReleaseFailed, Failed(MajorFailure, 9), nil).Error()
	assert.Contains(msg, "buffer release failed")
	assert.Contains(msg, "major 0x000d0000")
	assert.Contains(msg, "minor status 9")
	assert.NotContains(msg, "mech 1.3")

	msg = newStatusError(ErrNegotiationFailed, Failed(MajorBadMech, 0), MechSPNEGO).Error()
	assert.Contains(msg, "mech 1.3.6.1.5.5.2")
	assert.Contains(msg, "unsupported mechanism")
}

func TestStatusErrorJoined(t *testing.T) {
	primary := newStatusError(ErrNegotiationFailed, Failed(MajorFailure, 0), nil)
	release := newStatusError(ErrBufferReleaseFailed, Failed(MajorFailure, 1), nil)

	err := errors.Join(primary, release)
	assert.ErrorIs(t, err, ErrNegotiationFailed)
	assert.ErrorIs(t, err, ErrBufferReleaseFailed)
}
