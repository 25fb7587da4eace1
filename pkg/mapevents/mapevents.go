// Package mapevents turns raw map interactions (clicks, marker drags) into
// coordinate events fanned out to subscribers. Coordinates pass through
// untouched: the layer never rounds, clamps or validates them, so the exact
// float64 pair the map produced reaches every consumer.
package mapevents

import (
	"sync"

	"github.com/wroge/wgs84"

	"github.com/puntomapa/puntomapa/pkg/core"
)

// Kind discriminates map interaction events.
type Kind string

const (
	KindClick   Kind = "click"
	KindDragEnd Kind = "dragend"
)

// Event is one map interaction resolved to a WGS84 coordinate.
type Event struct {
	Kind     Kind
	MarkerID string // set for drag events, empty for map clicks
	Location core.Location
}

// subscriberBuffer bounds each subscriber channel. A subscriber that stops
// draining loses events rather than freezing the map.
const subscriberBuffer = 16

// Layer fans map interaction events out to any number of subscribers.
type Layer struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	closed bool

	// set when the layer receives projected (EPSG:3857) input
	toWGS84 wgs84.Func
}

// New returns a layer whose inputs are already WGS84 lat/lng pairs.
func New() *Layer {
	return &Layer{subs: make(map[int]chan Event)}
}

// NewProjected returns a layer whose inputs are EPSG:3857 web mercator
// x/y pairs, as produced by tile-based map widgets. Events still carry
// WGS84 coordinates.
func NewProjected() *Layer {
	return &Layer{
		subs:    make(map[int]chan Event),
		toWGS84: wgs84.EPSG().Transform(3857, 4326),
	}
}

// Subscribe registers a new consumer. The returned cancel function removes
// the subscription and closes the channel; it is safe to call twice.
func (l *Layer) Subscribe() (<-chan Event, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++
	ch := make(chan Event, subscriberBuffer)
	if l.closed {
		close(ch)
		return ch, func() {}
	}
	l.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if sub, ok := l.subs[id]; ok {
				delete(l.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// Click emits a click event at the given coordinate.
func (l *Layer) Click(a, b float64) {
	l.emit(Event{Kind: KindClick, Location: l.resolve(a, b)})
}

// DragEnd emits the final position of a dragged marker.
func (l *Layer) DragEnd(markerID string, a, b float64) {
	l.emit(Event{Kind: KindDragEnd, MarkerID: markerID, Location: l.resolve(a, b)})
}

// Close shuts the layer down and closes all subscriber channels.
func (l *Layer) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	for id, ch := range l.subs {
		delete(l.subs, id)
		close(ch)
	}
}

// resolve maps raw input onto a WGS84 location. In the unprojected case the
// pair is (lat, lng) and is passed through bit-exact; in the projected case
// it is (x, y) mercator meters.
func (l *Layer) resolve(a, b float64) core.Location {
	if l.toWGS84 == nil {
		return core.Location{Lat: a, Lng: b}
	}
	lng, lat, _ := l.toWGS84(a, b, 0)
	return core.Location{Lat: lat, Lng: lng}
}

func (l *Layer) emit(ev Event) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	for _, ch := range l.subs {
		select {
		case ch <- ev:
		default:
			// slow subscriber, drop rather than block the map
		}
	}
}
