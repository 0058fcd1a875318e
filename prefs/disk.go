// This file is part of Spipanel.
//
// Spipanel is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Spipanel is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Spipanel.  If not, see <https://www.gnu.org/licenses/>.

package prefs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jetsetilly/spipanel/curated"
)

// DefaultPrefsFile is the default filename of the global preferences file.
const DefaultPrefsFile = "preferences"

// WarningBoilerPlate is the first line of every preferences file.
const WarningBoilerPlate = "*** do not edit this file by hand unless spipanel is not running ***"

// the separator between key and value on disk.
const keySep = " :: "

// Sentinal error patterns.
const (
	NoPrefsFile = "prefs: no prefs file (%v)"
	DiskError   = "prefs: %v"
)

// list of preference keys that are no longer used. they will be removed from
// the file on the next save.
var defunct = []string{
	"display.pollingPixels",
}

func isDefunct(key string) bool {
	for _, d := range defunct {
		if key == d {
			return true
		}
	}
	return false
}

// Disk represents preference values as stored on disk.
type Disk struct {
	path    string
	entries map[string]pref

	// keys that have been set from the command line stack. these are not
	// overwritten by Load()
	overridden map[string]bool
}

func (dsk *Disk) String() string {
	s := strings.Builder{}
	for _, k := range dsk.keys() {
		s.WriteString(fmt.Sprintf("%s%s%s\n", k, keySep, dsk.entries[k]))
	}
	return s.String()
}

// NewDisk is the preferred method of initialisation for the Disk type.
func NewDisk(path string) (*Disk, error) {
	if path == "" {
		return nil, curated.Errorf(DiskError, "empty path")
	}

	return &Disk{
		path:       path,
		entries:    make(map[string]pref),
		overridden: make(map[string]bool),
	}, nil
}

// Add preference value to list of values to store/load from disk. If the key
// is on the command line stack then that value is applied immediately.
func (dsk *Disk) Add(key string, p pref) error {
	if strings.Contains(key, keySep) || strings.TrimSpace(key) != key || key == "" {
		return curated.Errorf(DiskError, fmt.Sprintf("illegal key (%s)", key))
	}
	if _, ok := dsk.entries[key]; ok {
		return curated.Errorf(DiskError, fmt.Sprintf("duplicate key (%s)", key))
	}

	dsk.entries[key] = p

	if ok, v := GetCommandLinePref(key); ok {
		if err := p.Set(v); err != nil {
			return curated.Errorf(DiskError, err)
		}
		dsk.overridden[key] = true
	}

	return nil
}

// Reset all preference values to their zero values.
func (dsk *Disk) Reset() error {
	for _, k := range dsk.keys() {
		if err := dsk.entries[k].Reset(); err != nil {
			return curated.Errorf(DiskError, err)
		}
	}
	return nil
}

func (dsk *Disk) keys() []string {
	keys := make([]string, 0, len(dsk.entries))
	for k := range dsk.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// read the key/value pairs from the prefs file. returns an error satisfying
// os.IsNotExist() if the file does not exist.
func (dsk *Disk) read() (map[string]string, error) {
	f, err := os.Open(dsk.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data := make(map[string]string)

	scanner := bufio.NewScanner(f)

	// skip boilerplate
	scanner.Scan()

	for scanner.Scan() {
		kv := strings.SplitN(scanner.Text(), keySep, 2)
		if len(kv) != 2 {
			continue
		}
		data[kv[0]] = kv[1]
	}

	return data, scanner.Err()
}

// Save current preference values to disk. Values in the file that are not
// known to this Disk instance are preserved unless they are defunct.
func (dsk *Disk) Save() error {
	data, err := dsk.read()
	if err != nil {
		if !os.IsNotExist(err) {
			return curated.Errorf(DiskError, err)
		}
		data = make(map[string]string)
	}

	for k, p := range dsk.entries {
		data[k] = p.String()
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		if !isDefunct(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	if err := os.MkdirAll(filepath.Dir(dsk.path), 0o700); err != nil {
		return curated.Errorf(DiskError, err)
	}

	f, err := os.Create(dsk.path)
	if err != nil {
		return curated.Errorf(DiskError, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%s\n", WarningBoilerPlate)
	for _, k := range keys {
		fmt.Fprintf(w, "%s%s%s\n", k, keySep, data[k])
	}

	if err := w.Flush(); err != nil {
		return curated.Errorf(DiskError, err)
	}

	return nil
}

// Load preference values from disk. If saveOnFail is true and the prefs file
// does not exist then the current values are saved, creating the file. The
// NoPrefsFile error is returned in either case.
func (dsk *Disk) Load(saveOnFail bool) error {
	data, err := dsk.read()
	if err != nil {
		if !os.IsNotExist(err) {
			return curated.Errorf(DiskError, err)
		}
		if saveOnFail {
			if err := dsk.Save(); err != nil {
				return err
			}
		}
		return curated.Errorf(NoPrefsFile, dsk.path)
	}

	for k, v := range data {
		if dsk.overridden[k] {
			continue
		}
		if p, ok := dsk.entries[k]; ok {
			if err := p.Set(v); err != nil {
				return curated.Errorf(DiskError, err)
			}
		}
	}

	return nil
}
