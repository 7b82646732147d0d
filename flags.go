// SPDX-License-Identifier: Apache-2.0

package acceptor

import "strings"

// ContextFlag holds the services a mechanism reports for an accepted context.
// Values are the same as the C bindings (RFC 2744 § 3.9.2).
type ContextFlag uint32

const (
	ContextFlagDeleg     ContextFlag = 1 << iota // credentials were delegated by the initiator
	ContextFlagMutual                            // the initiator asked the acceptor to authenticate itself
	ContextFlagReplay                            // replay detection available
	ContextFlagSequence                          // out of sequence detection available
	ContextFlagConf                              // confidentiality available
	ContextFlagInteg                             // integrity available
	ContextFlagAnon                              // the initiator did not reveal its identity
	ContextFlagProtReady                         // per-message protection available before completion
	ContextFlagTrans                             // the context may be exported

	// Microsoft extensions, RFC 4757 § 7.1
	ContextFlagDceStyle      ContextFlag = 0x1000
	ContextFlagIdentify      ContextFlag = 0x2000
	ContextFlagExtendedError ContextFlag = 0x4000
)

// FlagList returns a slice of individual flags derived from the
// composite value f
func FlagList(f ContextFlag) (fl []ContextFlag) {
	t := ContextFlag(1)
	for i := 0; i < 32; i++ {
		if f&t != 0 {
			fl = append(fl, t)
		}

		t <<= 1
	}

	return
}

// FlagName returns a human-readable description of a single context flag
func FlagName(f ContextFlag) string {
	switch f {
	case ContextFlagDeleg:
		return "Delegation"
	case ContextFlagMutual:
		return "Mutual authentication"
	case ContextFlagReplay:
		return "Message replay detection"
	case ContextFlagSequence:
		return "Out of sequence message detection"
	case ContextFlagConf:
		return "Confidentiality"
	case ContextFlagInteg:
		return "Integrity"
	case ContextFlagAnon:
		return "Anonymous"
	case ContextFlagProtReady:
		return "Protection ready"
	case ContextFlagTrans:
		return "Transferable"
	case ContextFlagDceStyle:
		return "DCE style"
	case ContextFlagIdentify:
		return "Identify only"
	case ContextFlagExtendedError:
		return "Extended errors"
	}

	return "Unknown"
}

func (f ContextFlag) String() string {
	var names []string
	for _, flag := range FlagList(f) {
		names = append(names, FlagName(flag))
	}

	return strings.Join(names, ", ")
}
