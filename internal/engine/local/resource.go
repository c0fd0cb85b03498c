package local

import (
	"context"
	"image"
	"os"
	"sync"

	"maamcp/internal/engine"
)

// Resource is a recognition asset bundle rooted at a directory on disk.
type Resource struct {
	mu   sync.Mutex
	path string
}

// PostBundle loads the bundle rooted at path. Loading succeeds when the
// path exists and is a directory.
func (r *Resource) PostBundle(path string) *engine.Pending {
	p := engine.NewPending()
	go func() {
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			p.Resolve(engine.Failure())
			return
		}
		r.mu.Lock()
		r.path = path
		r.mu.Unlock()
		p.Resolve(engine.Success(path))
	}()
	return p
}

// Path returns the bundle root, or "" before a successful load.
func (r *Resource) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

var _ engine.Resource = (*Resource)(nil)

// Tasker runs recognition for one (controller, resource) pair.
type Tasker struct {
	controller engine.Controller
	resource   engine.Resource
	recognizer engine.Recognizer
}

// PostRecognition submits a frame to the recognizer.
func (t *Tasker) PostRecognition(img image.Image) *engine.Pending {
	p := engine.NewPending()
	go func() {
		if img == nil {
			p.Resolve(engine.Failure())
			return
		}
		results, err := t.recognizer.Recognize(context.Background(), img)
		if err != nil {
			p.Resolve(engine.Failure())
			return
		}
		p.Resolve(engine.Success(results))
	}()
	return p
}

var _ engine.Tasker = (*Tasker)(nil)
