// SPDX-License-Identifier: Apache-2.0

package acceptor_test

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/golang-auth/go-gssapi-acceptor"
	"github.com/golang-auth/go-gssapi-acceptor/test"
)

var samplePAC = []byte{0x01, 0x10, 0x08, 0x00, 0xcc, 0xcc, 0xcc, 0xcc, 0x00, 0x00, 0x02, 0x00}

func completeMech() *test.Mechanism {
	return &test.Mechanism{
		Script: []test.Step{
			{Status: acceptor.Complete(), Output: []byte("mutual-auth-reply"), Flags: acceptor.ContextFlagMutual | acceptor.ContextFlagInteg, TimeRec: 3600},
		},
		Principal:       "alice@EXAMPLE.COM",
		AttributeValues: [][]byte{samplePAC},
		Authenticated:   true,
		Complete:        true,
	}
}

func TestSingleRoundSuccess(t *testing.T) {
	assert := test.NewAssert(t)
	mech := completeMech()
	cred := "keytab-credential"

	secCtx := acceptor.New(mech, cred)
	assert.Equal(acceptor.StateFresh, secCtx.State())

	out, err := secCtx.Step([]byte("initiator-token"))
	assert.NoErrorFatal(err)
	assert.Equal([]byte("mutual-auth-reply"), out)

	assert.True(secCtx.IsEstablished())
	assert.False(secCtx.ContinueNeeded())
	assert.Equal("alice@EXAMPLE.COM", secCtx.Principal())
	assert.Equal(samplePAC, secCtx.AuthorizationData())
	assert.Equal(acceptor.ContextFlagMutual|acceptor.ContextFlagInteg, secCtx.Flags())
	assert.Equal(acceptor.GssLifetimeAvailable, secCtx.ExpiresAt().Status)

	id, err := secCtx.Identity()
	assert.NoErrorFatal(err)
	assert.True(id.AuthorizationAuthenticated)
	assert.True(id.AuthorizationComplete)
	assert.False(id.AuthorizationMore)
	assert.Len(id.AuthorizationValues, 1)

	assert.Equal(0, mech.Outstanding())
	assert.Equal([]acceptor.Oid{acceptor.MechSPNEGO}, mech.Mechs())
	assert.Equal([]acceptor.Credential{cred}, mech.Credentials())
	assert.Equal([]string{acceptor.LogonInfoAttribute}, mech.AttributeNames())

	assert.NoError(secCtx.Delete())
	assert.Equal(1, mech.Deletes())
	assert.Equal("", secCtx.Principal())
}

func TestTwoRoundSuccess(t *testing.T) {
	assert := test.NewAssert(t)
	mech := completeMech()
	mech.Script = []test.Step{
		{Status: acceptor.ContinueNeeded(), Output: []byte("accept-incomplete")},
		{Status: acceptor.Complete(), Output: []byte{}},
	}

	secCtx := acceptor.New(mech, nil)

	out, err := secCtx.Step([]byte("first"))
	assert.NoErrorFatal(err)
	assert.Equal([]byte("accept-incomplete"), out)
	assert.True(secCtx.ContinueNeeded())
	assert.False(secCtx.IsEstablished())
	assert.Equal("", secCtx.Principal())
	assert.Equal(0, mech.AttributeQueries())

	_, err = secCtx.Identity()
	assert.ErrorIs(err, acceptor.ErrContextNotEstablished)

	out, err = secCtx.Step([]byte("second"))
	assert.NoErrorFatal(err)
	assert.NotNil(out)
	assert.Len(out, 0)
	assert.True(secCtx.IsEstablished())
	assert.Equal("alice@EXAMPLE.COM", secCtx.Principal())
	assert.Equal(1, mech.AttributeQueries())
	assert.Equal(0, mech.Outstanding())

	_, err = secCtx.Step([]byte("third"))
	assert.ErrorIs(err, acceptor.ErrContextEstablished)
	assert.Equal(2, mech.Accepts())
}

func TestNoOutputToken(t *testing.T) {
	assert := test.NewAssert(t)
	mech := completeMech()
	mech.Script[0].Output = nil

	out, err := acceptor.New(mech, nil).Step([]byte("token"))
	assert.NoErrorFatal(err)
	assert.NotNil(out)
	assert.Len(out, 0)
}

func TestNegotiationFailure(t *testing.T) {
	assert := test.NewAssert(t)
	mech := completeMech()
	mech.Script = []test.Step{
		{Status: acceptor.Failed(acceptor.MajorDefectiveToken, 0x96c73a1f), Output: []byte("reject")},
	}

	secCtx := acceptor.New(mech, nil)
	out, err := secCtx.Step([]byte("garbage"))
	assert.Nil(out)
	assert.ErrorIs(err, acceptor.ErrNegotiationFailed)
	assert.ErrorIs(err, acceptor.ErrDefectiveToken)

	var se *acceptor.StatusError
	if assert.ErrorAs(err, &se) {
		assert.Equal(acceptor.MajorDefectiveToken, se.Status.Major)
		assert.Equal(uint32(0x96c73a1f), se.Status.Minor)
		assert.Equal(acceptor.MechSPNEGO, se.Mech)
	}

	assert.Equal(acceptor.StateFailed, secCtx.State())
	assert.Equal("", secCtx.Principal())
	assert.Nil(secCtx.AuthorizationData())
	assert.Equal(0, mech.Outstanding())
	assert.Equal(0, mech.AttributeQueries())

	_, err = secCtx.Step([]byte("again"))
	assert.ErrorIs(err, acceptor.ErrContextFailed)
	assert.Equal(1, mech.Accepts())

	assert.NoError(secCtx.Delete())
	assert.Equal(1, mech.Deletes())
}

func TestAuthorizationDataUnavailable(t *testing.T) {
	assert := test.NewAssert(t)
	mech := completeMech()
	mech.AttributeValues = nil

	secCtx := acceptor.New(mech, nil)
	_, err := secCtx.Step([]byte("token"))
	assert.ErrorIs(err, acceptor.ErrAuthorizationDataFailed)
	assert.ErrorIs(err, acceptor.ErrUnavailable)
	assert.NotErrorIs(err, acceptor.ErrNegotiationFailed)

	assert.False(secCtx.IsEstablished())
	assert.Equal(acceptor.StateFailed, secCtx.State())
	assert.Equal("", secCtx.Principal())

	_, err = secCtx.Identity()
	assert.ErrorIs(err, acceptor.ErrContextNotEstablished)
	assert.Equal(0, mech.Outstanding())
}

func TestDisplayNameFailure(t *testing.T) {
	assert := test.NewAssert(t)
	mech := completeMech()
	mech.DisplayStatus = acceptor.Failed(acceptor.MajorBadName, 3)

	secCtx := acceptor.New(mech, nil)
	_, err := secCtx.Step([]byte("token"))
	assert.ErrorIs(err, acceptor.ErrDisplayNameFailed)
	assert.ErrorIs(err, acceptor.ErrBadName)
	assert.Equal(acceptor.StateFailed, secCtx.State())
	assert.Equal(0, mech.AttributeQueries())
	assert.Equal(0, mech.Outstanding())
}

func TestEmptyPrincipal(t *testing.T) {
	assert := test.NewAssert(t)
	mech := completeMech()
	mech.Principal = ""

	secCtx := acceptor.New(mech, nil)
	out, err := secCtx.Step([]byte("token"))
	assert.ErrorIs(err, acceptor.ErrDisplayNameFailed)
	assert.ErrorIs(err, acceptor.ErrBadName)
	assert.Nil(out)
	assert.Equal(acceptor.StateFailed, secCtx.State())
	assert.False(secCtx.IsEstablished())
	assert.Equal("", secCtx.Principal())
	assert.Equal(0, mech.AttributeQueries())
	assert.Equal(0, mech.Outstanding())
}

func TestReleaseFailure(t *testing.T) {
	assert := test.NewAssert(t)
	mech := completeMech()
	mech.ReleaseStatus = acceptor.Failed(acceptor.MajorFailure, 1)

	secCtx := acceptor.New(mech, nil)
	_, err := secCtx.Step([]byte("token"))
	assert.ErrorIs(err, acceptor.ErrBufferReleaseFailed)
	assert.Equal(acceptor.StateFailed, secCtx.State())

	// each buffer is still offered back exactly once
	assert.Equal(0, mech.Outstanding())
}

func TestReleaseFailureAfterNegotiationFailure(t *testing.T) {
	assert := test.NewAssert(t)
	mech := completeMech()
	mech.Script = []test.Step{{Status: acceptor.Failed(acceptor.MajorFailure, 0), Output: []byte("reject")}}
	mech.ReleaseStatus = acceptor.Failed(acceptor.MajorFailure, 1)

	_, err := acceptor.New(mech, nil).Step([]byte("token"))
	assert.ErrorIs(err, acceptor.ErrNegotiationFailed)
	assert.ErrorIs(err, acceptor.ErrBufferReleaseFailed)
}

func TestAttributePaging(t *testing.T) {
	assert := test.NewAssert(t)
	mech := completeMech()
	mech.AttributeValues = [][]byte{[]byte("one"), []byte("two"), []byte("three")}

	// a single page by default
	secCtx := acceptor.New(mech, nil)
	_, err := secCtx.Step([]byte("token"))
	assert.NoErrorFatal(err)
	id, err := secCtx.Identity()
	assert.NoErrorFatal(err)
	assert.Equal([]byte("one"), id.AuthorizationData)
	assert.Len(id.AuthorizationValues, 1)
	assert.True(id.AuthorizationMore)

	secCtx = acceptor.New(mech, nil, acceptor.WithAttributePaging())
	_, err = secCtx.Step([]byte("token"))
	assert.NoErrorFatal(err)
	id, err = secCtx.Identity()
	assert.NoErrorFatal(err)
	assert.Equal([]byte("one"), id.AuthorizationData)
	assert.Equal([][]byte{[]byte("one"), []byte("two"), []byte("three")}, id.AuthorizationValues)
	assert.False(id.AuthorizationMore)
	assert.Equal(0, mech.Outstanding())
}

func TestCustomAttribute(t *testing.T) {
	assert := test.NewAssert(t)
	mech := completeMech()

	secCtx := acceptor.New(mech, nil, acceptor.WithAuthorizationAttribute("urn:mspac:upn-dns-info"))
	_, err := secCtx.Step([]byte("token"))
	assert.NoErrorFatal(err)
	assert.Equal([]string{"urn:mspac:upn-dns-info"}, mech.AttributeNames())
}

func TestDelete(t *testing.T) {
	assert := test.NewAssert(t)

	// never stepped: no mechanism state to release
	mech := completeMech()
	secCtx := acceptor.New(mech, nil)
	assert.NoError(secCtx.Delete())
	assert.Equal(0, mech.Deletes())
	assert.ErrorIs(secCtx.Delete(), acceptor.ErrContextDeleted)

	_, err := secCtx.Step([]byte("token"))
	assert.ErrorIs(err, acceptor.ErrContextDeleted)

	// deletion failure reports the codes and is not retried
	mech = completeMech()
	mech.DeleteStatus = acceptor.Failed(acceptor.MajorNoContext, 4)
	secCtx = acceptor.New(mech, nil)
	_, err = secCtx.Step([]byte("token"))
	assert.NoErrorFatal(err)

	err = secCtx.Delete()
	assert.ErrorIs(err, acceptor.ErrContextDeletionFailed)
	assert.ErrorIs(err, acceptor.ErrNoContext)
	assert.ErrorIs(secCtx.Delete(), acceptor.ErrContextDeleted)
	assert.Equal(1, mech.Deletes())
	assert.False(secCtx.IsEstablished())
}

func TestIndependentContexts(t *testing.T) {
	assert := test.NewAssert(t)
	mech := completeMech()
	mech.Script = []test.Step{
		{Status: acceptor.ContinueNeeded(), Output: []byte("incomplete")},
		{Status: acceptor.Complete()},
	}

	a := acceptor.New(mech, nil)
	b := acceptor.New(mech, nil)

	_, err := a.Step([]byte("a1"))
	assert.NoErrorFatal(err)
	_, err = b.Step([]byte("b1"))
	assert.NoErrorFatal(err)
	assert.True(a.ContinueNeeded())
	assert.True(b.ContinueNeeded())

	_, err = a.Step([]byte("a2"))
	assert.NoErrorFatal(err)
	assert.True(a.IsEstablished())
	assert.True(b.ContinueNeeded())
}

func TestConcurrentContexts(t *testing.T) {
	assert := test.NewAssert(t)
	mech := completeMech()
	mech.Script = []test.Step{
		{Status: acceptor.ContinueNeeded(), Output: []byte("incomplete")},
		{Status: acceptor.Complete(), Output: []byte("done"), Flags: acceptor.ContextFlagMutual, TimeRec: 60},
	}
	cred := "shared-keytab"

	const workers = 16
	principals := make([]string, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			secCtx := acceptor.New(mech, cred)
			if _, errs[i] = secCtx.Step([]byte("first")); errs[i] != nil {
				return
			}
			if _, errs[i] = secCtx.Step([]byte("second")); errs[i] != nil {
				return
			}
			principals[i] = secCtx.Principal()
			errs[i] = secCtx.Delete()
		}()
	}
	wg.Wait()

	for i := range workers {
		assert.NoError(errs[i])
		assert.Equal("alice@EXAMPLE.COM", principals[i])
	}
	assert.Equal(2*workers, mech.Accepts())
	assert.Equal(workers, mech.Deletes())
	assert.Equal(workers, mech.AttributeQueries())
	assert.Len(mech.Credentials(), 2*workers)
	for _, c := range mech.Credentials() {
		assert.Equal(cred, c)
	}
	assert.Equal(0, mech.Outstanding())
}

func TestLogging(t *testing.T) {
	assert := test.NewAssert(t)
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := acceptor.New(completeMech(), nil, acceptor.WithLogger(logger)).Step([]byte("token"))
	assert.NoErrorFatal(err)

	out := logs.String()
	assert.True(strings.Contains(out, "context established"))
	assert.Contains(out, "principal=alice@EXAMPLE.COM")
}
