// SPDX-License-Identifier: Apache-2.0

package krb5

import (
	"errors"

	"github.com/jcmturner/gokrb5/v8/iana/errorcode"
	"github.com/jcmturner/gokrb5/v8/krberror"
	"github.com/jcmturner/gokrb5/v8/messages"

	"github.com/golang-auth/go-gssapi-acceptor"
)

// Minor status codes follow MIT Kerberos: protocol errors are offset from the base of
// the krb5 com_err table.
const (
	minorKRB5ErrorBase uint32 = 0x96c73a00
	minorNoEntry       uint32 = 2 // ENOENT, no such name attribute
)

// MinorForKRBError returns the minor status reporting a Kerberos protocol error code.
func MinorForKRBError(code int32) uint32 {
	return minorKRB5ErrorBase + uint32(code)
}

// apError is a failure verifying an AP-REQ.
type apError struct {
	major uint32
	code  int32
	err   error
}

func (e *apError) Error() string {
	return e.err.Error()
}

func (e *apError) Unwrap() error {
	return e.err
}

func (e *apError) status() acceptor.Status {
	return acceptor.Failed(e.major, MinorForKRBError(e.code))
}

// classify maps an error from AP-REQ verification to a Kerberos error code and a GSS major
// status.
func classify(err error) *apError {
	var ae *apError
	if errors.As(err, &ae) {
		return ae
	}

	var ke messages.KRBError
	if errors.As(err, &ke) {
		return &apError{major: majorForCode(ke.ErrorCode), code: ke.ErrorCode, err: err}
	}

	// gokrb5 reports a ticket that will not decrypt under the service key as a
	// decrypting error without the protocol code
	var kerr krberror.Krberror
	if errors.As(err, &kerr) && kerr.RootCause == krberror.DecryptingError {
		return &apError{major: acceptor.MajorDefectiveToken, code: errorcode.KRB_AP_ERR_BAD_INTEGRITY, err: err}
	}

	return &apError{major: acceptor.MajorFailure, code: errorcode.KRB_ERR_GENERIC, err: err}
}

func majorForCode(code int32) uint32 {
	switch code {
	case errorcode.KRB_AP_ERR_TKT_EXPIRED:
		return acceptor.MajorCredentialsExpired
	case errorcode.KRB_AP_ERR_REPEAT:
		return acceptor.MajorFailure | acceptor.MajorDuplicateToken
	case errorcode.KRB_AP_ERR_BAD_INTEGRITY, errorcode.KRB_AP_ERR_BADMATCH,
		errorcode.KRB_AP_ERR_MODIFIED, errorcode.KRB_AP_ERR_INAPP_CKSUM,
		errorcode.KRB_AP_ERR_MSG_TYPE:
		return acceptor.MajorDefectiveToken
	}

	return acceptor.MajorFailure
}
