// SPDX-License-Identifier: Apache-2.0

package acceptor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMakeGssLifetime(t *testing.T) {
	assert := assert.New(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	lt := MakeGssLifetime(now, 3600)
	assert.Equal(GssLifetimeAvailable, lt.Status)
	assert.Equal(now.Add(time.Hour), lt.ExpiresAt)

	lt = MakeGssLifetime(now, 0)
	assert.Equal(GssLifetimeExpired, lt.Status)
	assert.True(lt.ExpiresAt.IsZero())

	lt = MakeGssLifetime(now, 0xffffffff)
	assert.Equal(GssLifetimeIndefinite, lt.Status)
}
