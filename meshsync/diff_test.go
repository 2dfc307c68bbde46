package meshsync

import (
	"fmt"
	mathrand "math/rand"
	"testing"

	"github.com/go-playground/assert/v2"

	"github.com/meshadm/meshsync/protocol"
)

func testChannel(index int, role protocol.ChannelRole, name string) protocol.Channel {
	return protocol.Channel{
		Index: index,
		Role:  role,
		Settings: protocol.ChannelSettings{
			Name: name,
		},
	}
}

func TestDiffIdentity(t *testing.T) {
	lists := [][]protocol.Channel{
		nil,
		{},
		{
			testChannel(0, protocol.ChannelRolePrimary, "main"),
		},
		{
			testChannel(0, protocol.ChannelRolePrimary, "main"),
			testChannel(1, protocol.ChannelRoleSecondary, "alt"),
			testChannel(2, protocol.ChannelRoleSecondary, "ops"),
		},
	}
	for _, list := range lists {
		assert.Equal(t, 0, len(DiffChannels(list, list)))
	}
}

func TestDiffRoles(t *testing.T) {
	newList := []protocol.Channel{
		testChannel(0, protocol.ChannelRolePrimary, "main"),
		testChannel(1, protocol.ChannelRoleSecondary, "alt"),
		testChannel(2, protocol.ChannelRoleSecondary, "ops"),
	}

	updates := DiffChannels(nil, newList)
	assert.Equal(t, 3, len(updates))
	assert.Equal(t, protocol.ChannelRolePrimary, updates[0].Role)
	assert.Equal(t, protocol.ChannelRoleSecondary, updates[1].Role)
	assert.Equal(t, protocol.ChannelRoleSecondary, updates[2].Role)
	for i, update := range updates {
		assert.Equal(t, i, update.Index)
		assert.Equal(t, newList[i].Settings, update.Settings)
	}
}

func TestDiffShrinkDisablesTrailing(t *testing.T) {
	oldList := []protocol.Channel{
		testChannel(0, protocol.ChannelRolePrimary, "main"),
		testChannel(1, protocol.ChannelRoleSecondary, "alt"),
		testChannel(2, protocol.ChannelRoleSecondary, "ops"),
		testChannel(3, protocol.ChannelRoleSecondary, "spare"),
	}
	newList := oldList[:2]

	updates := DiffChannels(oldList, newList)
	assert.Equal(t, 2, len(updates))
	assert.Equal(t, 2, updates[0].Index)
	assert.Equal(t, protocol.ChannelRoleDisabled, updates[0].Role)
	assert.Equal(t, protocol.ChannelSettings{}, updates[0].Settings)
	assert.Equal(t, 3, updates[1].Index)
	assert.Equal(t, protocol.ChannelRoleDisabled, updates[1].Role)
}

func TestDiffUnchangedSkipped(t *testing.T) {
	oldList := []protocol.Channel{
		testChannel(0, protocol.ChannelRolePrimary, "main"),
		testChannel(1, protocol.ChannelRoleSecondary, "alt"),
		testChannel(2, protocol.ChannelRoleSecondary, "ops"),
	}
	newList := []protocol.Channel{
		testChannel(0, protocol.ChannelRolePrimary, "main"),
		testChannel(1, protocol.ChannelRoleSecondary, "renamed"),
		testChannel(2, protocol.ChannelRoleSecondary, "ops"),
	}

	updates := DiffChannels(oldList, newList)
	assert.Equal(t, 1, len(updates))
	assert.Equal(t, 1, updates[0].Index)
	assert.Equal(t, "renamed", updates[0].Settings.Name)
}

// randomized check of the per-index contract: an index is emitted exactly
// when the slots differ, at most once, in increasing order
func TestDiffExactIndices(t *testing.T) {
	random := mathrand.New(mathrand.NewSource(42))

	randomList := func() []protocol.Channel {
		list := make([]protocol.Channel, random.Intn(protocol.MaxChannels+1))
		for i := range list {
			role := protocol.ChannelRoleSecondary
			if i == 0 {
				role = protocol.ChannelRolePrimary
			}
			list[i] = testChannel(i, role, fmt.Sprintf("ch%d", random.Intn(3)))
		}
		return list
	}

	slot := func(list []protocol.Channel, i int) protocol.Channel {
		if i < len(list) {
			return list[i]
		}
		return protocol.Channel{Index: i}
	}

	for k := 0; k < 200; k += 1 {
		oldList := randomList()
		newList := randomList()
		updates := DiffChannels(oldList, newList)

		n := len(oldList)
		if n < len(newList) {
			n = len(newList)
		}

		emitted := map[int]bool{}
		lastIndex := -1
		for _, update := range updates {
			if update.Index <= lastIndex {
				t.Fatalf("updates out of order: %d after %d", update.Index, lastIndex)
			}
			lastIndex = update.Index
			emitted[update.Index] = true
		}
		for i := 0; i < n; i += 1 {
			changed := !slot(oldList, i).Equal(slot(newList, i))
			assert.Equal(t, changed, emitted[i])
		}
	}
}
