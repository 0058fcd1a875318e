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

package paths

import (
	"os"
	"path/filepath"
)

// the base path for all resources. note that we don't use this value directly
// except in the getBasePath() function. that function should be used instead.
const baseResourcePath = ".spipanel"

// ResourcePath returns the resource string (representing the resource to be
// loaded) prepended with OS/build specific paths.
//
// The subPth argument should not include a leading slash. The directory
// described by subPth is created if it does not exist. The file argument is
// not checked for existence.
func ResourcePath(subPth string, file string) (string, error) {
	base, err := getBasePath(subPth)
	if err != nil {
		return "", err
	}
	return filepath.Join(base, file), nil
}

// getBasePath returns the base resource path joined with subPth. if the
// unadorned baseResourcePath exists in the current directory then that is
// used, otherwise the user's config directory is used.
func getBasePath(subPth string) (string, error) {
	base := baseResourcePath

	if _, err := os.Stat(baseResourcePath); err != nil {
		cnf, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(cnf, baseResourcePath[1:])
	}

	pth := filepath.Join(base, subPth)

	if _, err := os.Stat(pth); err == nil {
		return pth, nil
	}

	if err := os.MkdirAll(pth, 0o700); err != nil {
		return "", err
	}

	return pth, nil
}
