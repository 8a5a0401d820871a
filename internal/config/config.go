// Package config loads the optional TOML configuration file the CLI
// merges under its flags: anything a flag does not set explicitly
// falls back to the value the config file gives it, and anything
// neither gives a value keeps its built-in default.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// File is the on-disk shape of --config's argument. Every scalar field is
// a pointer so the merge step in cmd/fremgen can tell "file didn't set
// this" apart from "file explicitly set this to the zero value"; the two
// file lists are plain slices, where an empty list counts as unset.
type File struct {
	Source        []string `toml:"source"`
	TypeSource    []string `toml:"type_source"`
	Out           *string  `toml:"out"`
	HeaderArchive *string  `toml:"header_archive"`
	Incremental   *bool    `toml:"incremental"`
	Watch         *bool    `toml:"watch"`
	Verbose       *bool    `toml:"verbose"`
}

// Load decodes path as TOML. A missing path is not an error: fremgen
// runs fine with only command-line flags.
func Load(path string) (*File, error) {
	if path == "" {
		return &File{}, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &File{}, nil
	}
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("decode config %q: %w", path, err)
	}
	return &f, nil
}

// MergeStrings returns fromFlag if the flag set it (len > 0),
// otherwise fromFile.
func MergeStrings(fromFlag, fromFile []string) []string {
	if len(fromFlag) > 0 {
		return fromFlag
	}
	return fromFile
}

// MergeString returns fromFlag if non-empty, otherwise the config
// file's value (or "" if the file didn't set it either).
func MergeString(fromFlag string, fromFile *string) string {
	if fromFlag != "" {
		return fromFlag
	}
	if fromFile != nil {
		return *fromFile
	}
	return ""
}

// MergeBool returns fromFlag if it was explicitly set on the command
// line (flagSet), otherwise the config file's value, otherwise false.
func MergeBool(fromFlag, flagSet bool, fromFile *bool) bool {
	if flagSet {
		return fromFlag
	}
	if fromFile != nil {
		return *fromFile
	}
	return false
}
