// Package canvas keeps an interactive rendering surface in step with an editor store.
package canvas

import (
	"image"
	"sort"
	"sync"

	"merch-studio/compositor"
	"merch-studio/models"
)

// Object is the renderable backing one placed design
type Object struct {
	ID string
	// Base is the decoded artwork fitted to the design base size; Image is Base after filters
	Base      *image.NRGBA
	Image     *image.NRGBA
	Transform models.Transform
	Opacity   float64
	BlendMode models.BlendMode
	Visible   bool
	// Selectable and Evented are false while the design is locked
	Selectable bool
	Evented    bool
	Curvature  models.Curvature
}

// Contains reports whether canvas point (x, y) hits the object
func (o *Object) Contains(x, y float64) bool {
	if o.Image == nil {
		return false
	}
	b := o.Image.Bounds()
	return compositor.Contains(o.Transform, b.Dx(), b.Dy(), x, y)
}

func (o *Object) layer(z int) compositor.Layer {
	return compositor.Layer{
		ID:        o.ID,
		Image:     o.Image,
		Transform: o.Transform,
		Opacity:   o.Opacity,
		BlendMode: o.BlendMode,
		ZIndex:    z,
		Visible:   o.Visible,
	}
}

// Surface is a rendering target holding a background and a stack of objects
type Surface interface {
	Size() compositor.Size
	// SetBackground fits img inside the surface, centered and behind every object. nil clears it.
	SetBackground(img image.Image)
	HasBackground() bool
	Add(o *Object)
	Remove(id string) bool
	Object(id string) (*Object, bool)
	// Objects returns the stack bottom to top
	Objects() []*Object
	// SetOrder restacks the listed objects bottom to top; unlisted objects keep their place below
	SetOrder(ids []string)
	BringToFront(id string)
	SetActive(id string)
	Active() string
	// ObjectAt returns the topmost visible evented object under the point
	ObjectAt(x, y float64) (*Object, bool)
	Render() *image.RGBA
	Dispose()
}

// RasterSurface is an in-memory Surface rendered with the compositor
type RasterSurface struct {
	mu       sync.Mutex
	size     compositor.Size
	bg       *image.NRGBA
	bgRect   image.Rectangle
	objects  []*Object
	active   string
	disposed bool
}

var _ Surface = (*RasterSurface)(nil)

// NewRasterSurface creates an empty surface of the given size
func NewRasterSurface(size compositor.Size) *RasterSurface {
	return &RasterSurface{size: size}
}

func (s *RasterSurface) Size() compositor.Size {
	return s.size
}

func (s *RasterSurface) SetBackground(img image.Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if img == nil {
		s.bg, s.bgRect = nil, image.Rectangle{}
		return
	}
	s.bg, s.bgRect = compositor.FitInside(img, s.size)
}

func (s *RasterSurface) HasBackground() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bg != nil
}

func (s *RasterSurface) Add(o *Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || o == nil {
		return
	}
	for i, cur := range s.objects {
		if cur.ID == o.ID {
			s.objects[i] = o
			return
		}
	}
	s.objects = append(s.objects, o)
}

func (s *RasterSurface) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.objects {
		if o.ID == id {
			s.objects = append(s.objects[:i], s.objects[i+1:]...)
			if s.active == id {
				s.active = ""
			}
			return true
		}
	}
	return false
}

func (s *RasterSurface) Object(id string) (*Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.objects {
		if o.ID == id {
			return o, true
		}
	}
	return nil, false
}

func (s *RasterSurface) Objects() []*Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Object(nil), s.objects...)
}

func (s *RasterSurface) SetOrder(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rank := make(map[string]int, len(ids))
	for i, id := range ids {
		rank[id] = i + 1
	}
	sort.SliceStable(s.objects, func(i, j int) bool {
		return rank[s.objects[i].ID] < rank[s.objects[j].ID]
	})
}

func (s *RasterSurface) BringToFront(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.objects {
		if o.ID == id {
			s.objects = append(append(s.objects[:i:i], s.objects[i+1:]...), o)
			return
		}
	}
}

func (s *RasterSurface) SetActive(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = ""
	for _, o := range s.objects {
		if o.ID == id && o.Selectable {
			s.active = id
			return
		}
	}
}

func (s *RasterSurface) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *RasterSurface) ObjectAt(x, y float64) (*Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.objects) - 1; i >= 0; i-- {
		o := s.objects[i]
		if o.Visible && o.Evented && o.Contains(x, y) {
			return o, true
		}
	}
	return nil, false
}

// Render flattens the background and the visible objects in stack order
func (s *RasterSurface) Render() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	layers := make([]compositor.Layer, 0, len(s.objects))
	for i, o := range s.objects {
		layers = append(layers, o.layer(i))
	}
	var bg image.Image
	if s.bg != nil {
		bg = s.bg
	}
	return compositor.Flatten(s.size, bg, s.bgRect, layers)
}

func (s *RasterSurface) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposed = true
	s.objects = nil
	s.bg, s.bgRect = nil, image.Rectangle{}
	s.active = ""
}
