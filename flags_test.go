// SPDX-License-Identifier: Apache-2.0

package acceptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlagList(t *testing.T) {
	flags := ContextFlagConf | ContextFlagMutual | ContextFlagDeleg
	flaglist := FlagList(flags)

	assert.ElementsMatch(t, []ContextFlag{ContextFlagConf, ContextFlagMutual, ContextFlagDeleg}, flaglist)
	assert.Empty(t, FlagList(0))
}

func TestFlagName(t *testing.T) {
	assert.Equal(t, "Delegation", FlagName(ContextFlagDeleg))
	assert.Equal(t, "Mutual authentication", FlagName(ContextFlagMutual))
	assert.Equal(t, "Integrity", FlagName(ContextFlagInteg))
	assert.Equal(t, "Protection ready", FlagName(ContextFlagProtReady))
	assert.Equal(t, "Transferable", FlagName(ContextFlagTrans))
	assert.Equal(t, "Identify only", FlagName(ContextFlagIdentify))
	assert.Equal(t, "Unknown", FlagName(0x8000))
}

func TestFlagString(t *testing.T) {
	flags := ContextFlagConf | ContextFlagMutual | ContextFlagDeleg
	str := flags.String()

	assert.Contains(t, str, "Delegation")
	assert.Contains(t, str, "Mutual")
	assert.Contains(t, str, "Confidentiality")
	assert.NotContains(t, str, "Sequence")
}
