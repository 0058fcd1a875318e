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
	"fmt"
	"sort"
	"strings"
	"sync"
)

// the command line stack is a list of key/value groups. only the top group is
// consulted by GetCommandLinePref().
var commandLine struct {
	crit  sync.Mutex
	stack []map[string]Value
}

// SizeCommandLineStack returns the number of groups that have been added with
// PushCommandLineStack().
func SizeCommandLineStack() int {
	commandLine.crit.Lock()
	defer commandLine.crit.Unlock()
	return len(commandLine.stack)
}

// PushCommandLineStack parses a prefs string and adds it as a new group. The
// string is a list of key::value pairs separated by semi-colons. Malformed
// pairs are ignored.
func PushCommandLineStack(prefs string) {
	group := make(map[string]Value)

	for _, p := range strings.Split(prefs, ";") {
		kv := strings.Split(p, "::")
		if len(kv) == 2 {
			group[strings.TrimSpace(kv[0])] = strings.TrimSpace(kv[1])
		}
	}

	commandLine.crit.Lock()
	defer commandLine.crit.Unlock()
	commandLine.stack = append(commandLine.stack, group)
}

// PopCommandLineStack forgets the most recent group added by
// PushCommandLineStack().
//
// Returns the "unused" preferences of the group, sorted by key.
func PopCommandLineStack() string {
	commandLine.crit.Lock()
	defer commandLine.crit.Unlock()

	if len(commandLine.stack) == 0 {
		return ""
	}

	popped := commandLine.stack[len(commandLine.stack)-1]
	commandLine.stack = commandLine.stack[:len(commandLine.stack)-1]

	keys := make([]string, 0, len(popped))
	for key := range popped {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	s := make([]string, 0, len(keys))
	for _, key := range keys {
		s = append(s, fmt.Sprintf("%s::%v", key, popped[key]))
	}

	return strings.Join(s, "; ")
}

// GetCommandLinePref value from current group. The value is deleted when it is
// returned.
func GetCommandLinePref(key string) (bool, Value) {
	commandLine.crit.Lock()
	defer commandLine.crit.Unlock()

	if len(commandLine.stack) == 0 {
		return false, nil
	}

	top := commandLine.stack[len(commandLine.stack)-1]
	if v, ok := top[key]; ok {
		delete(top, key)
		return true, v
	}

	return false, nil
}
