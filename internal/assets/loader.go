package assets

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/iburimskiy/bodo-installation/internal/scene"
)

// Loaded is the completion event of one asset load. Exactly one is
// published per requested name; Err is set when the load failed.
type Loaded struct {
	Name  string
	Model *scene.Node
	Clips []scene.Clip
	Err   error
}

// OpenFunc reads one model file.
type OpenFunc func(path string) (*scene.Node, []scene.Clip, error)

// Loader fetches models by convention: Dir/name+Ext.
type Loader struct {
	Dir    string
	Ext    string
	Open   OpenFunc
	Logger *slog.Logger
}

// NewLoader returns a loader decoding glTF binaries from dir.
func NewLoader(dir, ext string, logger *slog.Logger) *Loader {
	return &Loader{Dir: dir, Ext: ext, Open: OpenModel, Logger: logger}
}

// Path returns the file path of asset name.
func (l *Loader) Path(name string) string {
	return filepath.Join(l.Dir, name+l.Ext)
}

// LoadAll starts one load per name and returns the channel their
// completions arrive on, in completion order. The channel is buffered for
// every name, so loads never block on a slow consumer, and it is closed once
// all loads have finished. Loads are never cancelled or retried.
func (l *Loader) LoadAll(names []string) <-chan Loaded {
	out := make(chan Loaded, len(names))
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			out <- l.load(name)
		}(name)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// load never panics: a decoder crash on a corrupt file becomes the event's
// Err like any other failure.
func (l *Loader) load(name string) (ev Loaded) {
	path := l.Path(name)
	defer func() {
		if r := recover(); r != nil {
			ev = Loaded{Name: name, Err: fmt.Errorf("decode %s: %v", path, r)}
		}
	}()
	model, clips, err := l.Open(path)
	if err != nil {
		return Loaded{Name: name, Err: err}
	}
	l.Logger.Debug("asset decoded", "asset", name, "path", path, "clips", len(clips))
	return Loaded{Name: name, Model: model, Clips: clips}
}
