package config

import (
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// DeviceState is the slice of per-device state that survives restarts.
type DeviceState struct {
	Brightness uint8  `json:"brightness"`
	EffectID   string `json:"effect_id,omitempty"`
}

// Store persists one JSON file per device under a directory. Device ids are
// transport addresses and may contain separators, so filenames use a
// reversible escaped form of the id.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, url.QueryEscape(id)+".json")
}

// Save writes atomically: temp file in the same directory, then rename.
func (s *Store) Save(id string, st DeviceState) error {
	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "state-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path(id))
}

// Load reads one device's state; ok is false when none was saved.
func (s *Store) Load(id string) (DeviceState, bool, error) {
	b, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return DeviceState{}, false, nil
		}
		return DeviceState{}, false, err
	}
	var st DeviceState
	if err := json.Unmarshal(b, &st); err != nil {
		return DeviceState{}, false, err
	}
	return st, true, nil
}

// LoadAll reads every saved device, keyed by the original device id.
// Files that fail to parse are skipped rather than failing the whole load.
func (s *Store) LoadAll() (map[string]DeviceState, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	out := make(map[string]DeviceState)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id, err := url.QueryUnescape(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}

		b, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		var st DeviceState
		if err := json.Unmarshal(b, &st); err != nil {
			continue
		}
		out[id] = st
	}
	return out, nil
}
