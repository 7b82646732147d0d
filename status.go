// SPDX-License-Identifier: Apache-2.0

package acceptor

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the two-level status returned by every mechanism operation: a major code
// laid out as in RFC 2744 § 3.9.1 and a mechanism specific minor code.
//
// The major code carries three fields: the calling error in the top eight bits, the
// routine error in the next eight and supplementary information bits in the low
// sixteen.  Only a major code of zero means success.
type Status struct {
	Major uint32
	Minor uint32
}

const (
	callingErrorOffset = 24
	routineErrorOffset = 16

	callingErrorMask  uint32 = 0xff << callingErrorOffset
	routineErrorMask  uint32 = 0xff << routineErrorOffset
	supplementaryMask uint32 = 0xffff
)

// Major status values used by mechanism implementations.
const (
	MajorComplete       uint32 = 0
	MajorContinueNeeded        = uint32(infoContinueNeeded)
	MajorDuplicateToken        = uint32(infoDuplicateToken)
	MajorOldToken              = uint32(infoOldToken)
	MajorUnseqToken            = uint32(infoUnseqToken)
	MajorGapToken              = uint32(infoGapToken)

	MajorBadMech             = uint32(errBadMech) << routineErrorOffset
	MajorBadName             = uint32(errBadName) << routineErrorOffset
	MajorBadNameType         = uint32(errBadNameType) << routineErrorOffset
	MajorBadBindings         = uint32(errBadBindings) << routineErrorOffset
	MajorBadStatus           = uint32(errBadStatus) << routineErrorOffset
	MajorBadMic              = uint32(errBadMic) << routineErrorOffset
	MajorNoCred              = uint32(errNoCred) << routineErrorOffset
	MajorNoContext           = uint32(errNoContext) << routineErrorOffset
	MajorDefectiveToken      = uint32(errDefectiveToken) << routineErrorOffset
	MajorDefectiveCredential = uint32(errDefectiveCredential) << routineErrorOffset
	MajorCredentialsExpired  = uint32(errCredentialsExpired) << routineErrorOffset
	MajorContextExpired      = uint32(errContextExpired) << routineErrorOffset
	MajorFailure             = uint32(errFailure) << routineErrorOffset
	MajorBadQop              = uint32(errBadQop) << routineErrorOffset
	MajorUnauthorized        = uint32(errUnauthorized) << routineErrorOffset
	MajorUnavailable         = uint32(errUnavailable) << routineErrorOffset
	MajorDuplicateElement    = uint32(errDuplicateElement) << routineErrorOffset
	MajorNameNotMn           = uint32(errNameNotMn) << routineErrorOffset
	MajorBadMechAttr         = uint32(errBadMechAttr) << routineErrorOffset

	MajorCallInaccessibleRead  = uint32(callInaccessibleRead) << callingErrorOffset
	MajorCallInaccessibleWrite = uint32(callInaccessibleWrite) << callingErrorOffset
	MajorCallBadStructure      = uint32(callBadStructure) << callingErrorOffset
)

// Complete reports a successful mechanism call.
func Complete() Status { return Status{} }

// ContinueNeeded reports a successful step that needs another token from the peer.
func ContinueNeeded() Status { return Status{Major: MajorContinueNeeded} }

// Failed builds a failure status from a major code and a mechanism minor code.
func Failed(major, minor uint32) Status { return Status{Major: major, Minor: minor} }

// IsComplete reports whether the status is GSS_S_COMPLETE.
func (s Status) IsComplete() bool {
	return s.Major == MajorComplete
}

// IsContinueNeeded reports whether the call succeeded but requires another round trip.
func (s Status) IsContinueNeeded() bool {
	return s.Major&(callingErrorMask|routineErrorMask) == 0 && s.Major&MajorContinueNeeded != 0
}

// IsError reports whether the calling or routine error fields are set.
func (s Status) IsError() bool {
	return s.Major&(callingErrorMask|routineErrorMask) != 0
}

func (s Status) callingError() CallingErrorCode {
	return CallingErrorCode((s.Major & callingErrorMask) >> callingErrorOffset)
}

func (s Status) routineError() FatalErrorCode {
	return FatalErrorCode((s.Major & routineErrorMask) >> routineErrorOffset)
}

func (s Status) supplementary() InformationCode {
	return InformationCode(s.Major & supplementaryMask)
}

// Err decodes the status into the Go error taxonomy.  Complete yields nil, a status that only
// carries supplementary bits yields an InfoStatus and anything else a FatalStatus.
func (s Status) Err() error {
	if s.IsComplete() {
		return nil
	}

	var mechErrors []error
	if s.Minor != 0 {
		mechErrors = []error{MinorStatus(s.Minor)}
	}

	info := InfoStatus{InformationCode: s.supplementary(), MechErrors: mechErrors}
	if !s.IsError() {
		return info
	}

	return FatalStatus{
		InfoStatus:       info,
		FatalErrorCode:   s.routineError(),
		CallingErrorCode: s.callingError(),
	}
}

func (s Status) String() string {
	return fmt.Sprintf("major 0x%08x, minor %d", s.Major, s.Minor)
}

// MinorStatus is a mechanism specific minor status code.
type MinorStatus uint32

func (m MinorStatus) Error() string {
	return fmt.Sprintf("mechanism minor status %d (0x%08x)", uint32(m), uint32(m))
}

// InfoStatus is the decoded form of the supplementary bits of a mechanism major code,
// with the minor code attached as a MinorStatus when the mechanism set one.
type InfoStatus struct {
	InformationCode InformationCode
	MechErrors      []error
}

// FatalStatus is the decoded form of a mechanism major code with the calling or routine
// error field set.  Supplementary bits reported alongside are kept in the embedded
// InfoStatus.
type FatalStatus struct {
	InfoStatus
	FatalErrorCode   FatalErrorCode
	CallingErrorCode CallingErrorCode
}

// FatalErrorCode is the routine error field of a major code (RFC 2744 § 3.9.1).
type FatalErrorCode uint32

// CallingErrorCode is the calling error field of a major code (RFC 2744 § 3.9.1).
type CallingErrorCode uint32

// InformationCode holds the supplementary bits of a major code (RFC 2744 § 3.9.1).
type InformationCode uint32

const (
	complete FatalErrorCode = iota
	errBadMech
	errBadName
	errBadNameType
	errBadBindings
	errBadStatus
	errBadMic
	errNoCred
	errNoContext
	errDefectiveToken
	errDefectiveCredential
	errCredentialsExpired
	errContextExpired
	errFailure
	errBadQop
	errUnauthorized
	errUnavailable
	errDuplicateElement
	errNameNotMn
	errBadMechAttr
)

const (
	callInaccessibleRead CallingErrorCode = iota + 1
	callInaccessibleWrite
	callBadStructure
)

const (
	infoContinueNeeded InformationCode = 1 << iota
	infoDuplicateToken
	infoOldToken
	infoUnseqToken
	infoGapToken
)

// Routine errors a mechanism can report, matched with errors.Is against a StatusError or
// the result of Status.Err.
var (
	ErrBadMech             = errors.New("the acceptor was asked for an unsupported mechanism")
	ErrBadName             = errors.New("the mechanism was given an invalid name")
	ErrBadNameType         = errors.New("the name is of an unsupported type")
	ErrBadBindings         = errors.New("the token carries incorrect channel bindings")
	ErrBadStatus           = errors.New("the mechanism reported an invalid status code")
	ErrBadMic              = errors.New("a token had an invalid signature")
	ErrNoCred              = errors.New("no credentials were supplied, or the acceptor credential is unusable")
	ErrNoContext           = errors.New("no context exists for the handle")
	ErrDefectiveToken      = errors.New("the mechanism rejected an invalid token")
	ErrDefectiveCredential = errors.New("the mechanism rejected an invalid credential")
	ErrCredentialsExpired  = errors.New("the initiator's credentials have expired")
	ErrContextExpired      = errors.New("the security context has expired")
	ErrFailure             = errors.New("unspecified GSS failure, see the minor status")
	ErrBadQop              = errors.New("the requested quality-of-protection is not available")
	ErrUnauthorized        = errors.New("the operation is forbidden by local security policy")
	ErrUnavailable         = errors.New("the attribute or operation is not available")
	ErrDuplicateElement    = errors.New("the credential element already exists")
	ErrNameNotMn           = errors.New("the name is not mechanism specific (MN)")
	ErrBadMechAttr         = errors.New("the mechanism does not support the mechanism attribute")
)

// Calling errors: the mechanism could not read or write one of its parameters.
var (
	ErrInaccessibleRead  = errors.New("the mechanism could not read an input parameter")
	ErrInaccessibleWrite = errors.New("the mechanism could not write an output parameter")
	ErrBadStructure      = errors.New("a parameter passed to the mechanism was malformed")
)

// Supplementary information reported by the mechanism.  These are not failures on their own.
//
//nolint:staticcheck // ST1012 these aren't actually errors
var (
	InfoContinueNeeded = errors.New("the acceptor needs another token to complete the context")
	InfoDuplicateToken = errors.New("the token was a duplicate of an earlier token")
	InfoOldToken       = errors.New("the token's validity period has expired")
	InfoUnseqToken     = errors.New("a later token has already been processed")
	InfoGapToken       = errors.New("an expected token was not received")
)

var routineErrors = [...]error{
	errBadMech:             ErrBadMech,
	errBadName:             ErrBadName,
	errBadNameType:         ErrBadNameType,
	errBadBindings:         ErrBadBindings,
	errBadStatus:           ErrBadStatus,
	errBadMic:              ErrBadMic,
	errNoCred:              ErrNoCred,
	errNoContext:           ErrNoContext,
	errDefectiveToken:      ErrDefectiveToken,
	errDefectiveCredential: ErrDefectiveCredential,
	errCredentialsExpired:  ErrCredentialsExpired,
	errContextExpired:      ErrContextExpired,
	errFailure:             ErrFailure,
	errBadQop:              ErrBadQop,
	errUnauthorized:        ErrUnauthorized,
	errUnavailable:         ErrUnavailable,
	errDuplicateElement:    ErrDuplicateElement,
	errNameNotMn:           ErrNameNotMn,
	errBadMechAttr:         ErrBadMechAttr,
}

var callingErrors = [...]error{
	callInaccessibleRead:  ErrInaccessibleRead,
	callInaccessibleWrite: ErrInaccessibleWrite,
	callBadStructure:      ErrBadStructure,
}

var infoBits = []struct {
	bit InformationCode
	err error
}{
	{infoContinueNeeded, InfoContinueNeeded},
	{infoDuplicateToken, InfoDuplicateToken},
	{infoOldToken, InfoOldToken},
	{infoUnseqToken, InfoUnseqToken},
	{infoGapToken, InfoGapToken},
}

// Fatal maps the routine error field to its sentinel.  Codes outside RFC 2744 decode as
// ErrBadStatus.
func (s FatalStatus) Fatal() error {
	if s.FatalErrorCode == complete || int(s.FatalErrorCode) >= len(routineErrors) {
		return ErrBadStatus
	}

	return routineErrors[s.FatalErrorCode]
}

// Calling maps the calling error field to its sentinel, or nil when the field is clear.
func (s FatalStatus) Calling() error {
	if int(s.CallingErrorCode) >= len(callingErrors) {
		return nil
	}

	return callingErrors[s.CallingErrorCode]
}

func (s InfoStatus) Unwrap() []error {
	ret := []error{}
	for _, b := range infoBits {
		if s.InformationCode&b.bit != 0 {
			ret = append(ret, b.err)
		}
	}

	return append(ret, s.MechErrors...)
}

func (s InfoStatus) Error() string {
	return joinMessages(s.Unwrap(), "; ")
}

func (s FatalStatus) Unwrap() []error {
	ret := []error{}
	if calling := s.Calling(); calling != nil {
		ret = append(ret, calling)
	}
	if s.FatalErrorCode != complete {
		ret = append(ret, s.Fatal())
	}

	return append(ret, s.InfoStatus.Unwrap()...)
}

// Error describes the calling and routine errors, then the minor status, then any
// supplementary bits.  A generic GSS_S_FAILURE is left out when a minor status explains it.
func (s FatalStatus) Error() string {
	var parts []string

	if calling := s.Calling(); calling != nil {
		parts = append(parts, calling.Error())
	}
	if s.FatalErrorCode != complete {
		if fatal := s.Fatal(); fatal != ErrFailure || len(s.MechErrors) == 0 {
			parts = append(parts, fatal.Error())
		}
	}
	if len(s.MechErrors) > 0 {
		parts = append(parts, joinMessages(s.MechErrors, "; "))
	}
	if info := (InfoStatus{InformationCode: s.InformationCode}).Error(); info != "" {
		parts = append(parts, "additionally: "+info)
	}

	return strings.Join(parts, ".  ")
}

func joinMessages(errs []error, sep string) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}

	return strings.Join(msgs, sep)
}
