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

package imagesource

import (
	"path/filepath"
	"time"

	"github.com/howeyc/fsnotify"
	"github.com/jetsetilly/spipanel/curated"
	"github.com/jetsetilly/spipanel/framebuffer"
	"github.com/jetsetilly/spipanel/logger"
)

// WatchError is the pattern used for errors from the file watcher.
const WatchError = "imagesource: watch: %v"

// the delay between a change to the file and reloading it. editors often
// write a file in several steps
const settle = 100 * time.Millisecond

// Watcher reloads an image whenever the file changes.
type Watcher struct {
	path   string
	w      *fsnotify.Watcher
	frames chan *framebuffer.Frame
	quit   chan struct{}
	done   chan struct{}
}

// Watch the image file at path. The directory containing the file is
// watched so that the file can be replaced as well as modified.
func Watch(path string) (*Watcher, error) {
	path = filepath.Clean(path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, curated.Errorf(WatchError, err)
	}
	if err := w.Watch(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, curated.Errorf(WatchError, err)
	}

	wt := &Watcher{
		path:   path,
		w:      w,
		frames: make(chan *framebuffer.Frame, 1),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	go wt.run()

	return wt, nil
}

// Frames returns the channel on which reloaded frames are sent. Only the most
// recent frame is kept if the receiver falls behind.
func (wt *Watcher) Frames() <-chan *framebuffer.Frame {
	return wt.frames
}

func (wt *Watcher) run() {
	defer close(wt.done)

	var reload <-chan time.Time

	for {
		select {
		case <-wt.quit:
			return

		case ev := <-wt.w.Event:
			if filepath.Clean(ev.Name) == wt.path && !ev.IsAttrib() && !ev.IsDelete() {
				reload = time.After(settle)
			}

		case err := <-wt.w.Error:
			logger.Log(logger.Allow, "imagesource", curated.Errorf(WatchError, err))

		case <-reload:
			reload = nil

			f, err := Load(wt.path)
			if err != nil {
				logger.Log(logger.Allow, "imagesource", err)
				break
			}
			logger.Logf(logger.Allow, "imagesource", "reloaded %s (%s)", wt.path, f)

			// replace any frame that has not been collected
			select {
			case <-wt.frames:
			default:
			}
			wt.frames <- f
		}
	}
}

// Close stops watching the file.
func (wt *Watcher) Close() error {
	close(wt.quit)
	<-wt.done
	if err := wt.w.Close(); err != nil {
		return curated.Errorf(WatchError, err)
	}
	return nil
}
