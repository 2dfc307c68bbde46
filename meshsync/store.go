package meshsync

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/meshadm/meshsync/protocol"
)

const channelStoreVersion = 1

type channelListRecord struct {
	Version  int                `cbor:"1,keyasint"`
	Channels []protocol.Channel `cbor:"2,keyasint"`
}

// ChannelStore persists the authoritative channel list for the local node.
// Writes go through a temp file and rename so a crash never leaves a
// truncated record.
type ChannelStore struct {
	stateLock sync.Mutex
	path      string
}

func NewChannelStore(path string) *ChannelStore {
	return &ChannelStore{
		path: path,
	}
}

func (self *ChannelStore) Save(channels []protocol.Channel) error {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	record := &channelListRecord{
		Version:  channelStoreVersion,
		Channels: channels,
	}
	recordBytes, err := cbor.Marshal(record)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(self.path), 0755); err != nil {
		return err
	}
	tempPath := self.path + ".tmp"
	if err := os.WriteFile(tempPath, recordBytes, 0644); err != nil {
		return err
	}
	return os.Rename(tempPath, self.path)
}

// Load returns nil with no error when nothing was saved yet.
func (self *ChannelStore) Load() ([]protocol.Channel, error) {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	recordBytes, err := os.ReadFile(self.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	record := &channelListRecord{}
	if err := cbor.Unmarshal(recordBytes, record); err != nil {
		return nil, err
	}
	return record.Channels, nil
}

// Reset removes the stored list. Bulk maintenance, never called from the
// sync path.
func (self *ChannelStore) Reset() error {
	self.stateLock.Lock()
	defer self.stateLock.Unlock()

	err := os.Remove(self.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
