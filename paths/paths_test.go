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
	"testing"
	"time"

	"github.com/jetsetilly/spipanel/test"
)

func TestResourcePath(t *testing.T) {
	// run from a temporary directory containing the base resource path so
	// that the user's config directory is never touched
	dir := t.TempDir()
	t.Chdir(dir)
	test.DemandSuccess(t, os.Mkdir(baseResourcePath, 0o700))

	pth, err := ResourcePath("foo/bar", "baz")
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, pth, filepath.Join(".spipanel", "foo", "bar", "baz"))

	// sub-path has been created
	_, err = os.Stat(filepath.Join(".spipanel", "foo", "bar"))
	test.ExpectSuccess(t, err)

	pth, err = ResourcePath("", "baz")
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, pth, filepath.Join(".spipanel", "baz"))

	pth, err = ResourcePath("", "")
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, pth, ".spipanel")
}

func TestUniqueFilename(t *testing.T) {
	n := time.Date(2024, time.March, 7, 9, 5, 3, 0, time.UTC)
	test.ExpectEquality(t, uniqueFilename("stats", "testcard", n), "stats_testcard_20240307_090503")
	test.ExpectEquality(t, uniqueFilename("stats", " ", n), "stats_20240307_090503")
}
