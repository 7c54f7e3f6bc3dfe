package bench

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// changesetDir is a directory written by GenerateChangesets: one
// length-delimited StoreKVPair file per version plus changeset_info.json.
type changesetDir string

func (d changesetDir) versionFile(version int64) string {
	return filepath.Join(string(d), fmt.Sprintf("%06d.delimpb", version))
}

func (d changesetDir) infoFile() string {
	return filepath.Join(string(d), "changeset_info.json")
}

// changesetInfo describes how a changeset directory was generated, so a
// replay can be reproduced and checked against it.
type changesetInfo struct {
	Profile     string        `json:"profile,omitempty"`
	Seed        uint64        `json:"seed"`
	Versions    int64         `json:"versions"`
	StoreNames  []string      `json:"store_names"`
	StoreParams []StoreParams `json:"store_params"`
	// Ops holds the number of entries in each version file, version 1 first.
	Ops []int `json:"ops,omitempty"`
}

// expectedOps returns the recorded entry count of version, if there is one.
func (info changesetInfo) expectedOps(version int64) (int, bool) {
	if version < 1 || version > int64(len(info.Ops)) {
		return 0, false
	}
	return info.Ops[version-1], true
}

func (d changesetDir) saveInfo(info changesetInfo) error {
	f, err := os.Create(d.infoFile())
	if err != nil {
		return fmt.Errorf("error creating info file: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(info); err != nil {
		_ = f.Close()
		return fmt.Errorf("error encoding info file: %w", err)
	}
	return f.Close()
}

func (d changesetDir) loadInfo() (changesetInfo, error) {
	f, err := os.Open(d.infoFile())
	if err != nil {
		return changesetInfo{}, fmt.Errorf("error reading info file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var info changesetInfo
	if err := json.NewDecoder(f).Decode(&info); err != nil {
		return changesetInfo{}, fmt.Errorf("error decoding info file %s: %w", d.infoFile(), err)
	}
	if info.Versions < 1 {
		return changesetInfo{}, fmt.Errorf("info file %s records no versions", d.infoFile())
	}
	if len(info.Ops) > 0 && int64(len(info.Ops)) != info.Versions {
		return changesetInfo{}, fmt.Errorf("info file %s records %d versions but op counts for %d",
			d.infoFile(), info.Versions, len(info.Ops))
	}
	return info, nil
}
