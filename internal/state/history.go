// Package state owns the authoritative annotation collections, their undo
// and redo stacks and their persistence.
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"

	"PanoPaint/internal/geom"
	"PanoPaint/internal/krpano"
)

var ErrInvalidImport = errors.New("import: expected a JSON array of strokes")

// Renderer mirrors the collections into the viewer.
type Renderer interface {
	DrawStroke(ctx context.Context, s SavedStroke)
	DrawCircle(ctx context.Context, c SavedCircle)
	Erase(name string)
	HighlightStroke(s SavedStroke, on bool)
	HighlightCircle(c SavedCircle, on bool)
}

// Change describes what an undo, redo or delete touched.
type Change struct {
	Kind Kind
	Name string
}

// History holds strokes and circles together with four stacks: deleted
// strokes, deleted circles and the pre-move snapshots of each kind. New
// content clears the snapshot stacks; the deletion stacks survive it.
type History struct {
	mu     sync.RWMutex
	store  Store
	render Renderer
	names  *Namer

	strokes        []SavedStroke
	circles        []SavedCircle
	deletedStrokes []deleted[SavedStroke]
	deletedCircles []deleted[SavedCircle]
	strokeMoves    []SavedStroke
	circleMoves    []SavedCircle

	selStroke string
	selCircle string
}

func NewHistory(store Store, r Renderer) *History {
	if r == nil {
		r = nopRenderer{}
	}
	return &History{store: store, render: r, names: NewNamer()}
}

// NextName returns a fresh unique name for kind.
func (h *History) NextName(kind string) string { return h.names.Next(kind) }

// Strokes returns a copy of the stroke collection.
func (h *History) Strokes() []SavedStroke {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]SavedStroke, len(h.strokes))
	for i, s := range h.strokes {
		out[i] = s.clone()
	}
	return out
}

// Circles returns a copy of the circle collection.
func (h *History) Circles() []SavedCircle {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.circles)
}

func (h *History) Stroke(name string) (SavedStroke, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if i := h.strokeIndex(name); i >= 0 {
		return h.strokes[i].clone(), true
	}
	return SavedStroke{}, false
}

func (h *History) Circle(name string) (SavedCircle, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if i := h.circleIndex(name); i >= 0 {
		return h.circles[i], true
	}
	return SavedCircle{}, false
}

func (h *History) strokeIndex(name string) int {
	return slices.IndexFunc(h.strokes, func(s SavedStroke) bool { return s.Name == name })
}

func (h *History) circleIndex(name string) int {
	return slices.IndexFunc(h.circles, func(c SavedCircle) bool { return c.Name == name })
}

// RecordStroke adds a finalized stroke. A stroke with a name already in
// the collection replaces it.
func (h *History) RecordStroke(s SavedStroke) {
	s = s.clone()
	h.mu.Lock()
	if i := h.strokeIndex(s.Name); i >= 0 {
		h.strokes[i] = s
	} else {
		h.strokes = append(h.strokes, s)
	}
	h.clearMoves()
	h.persist(KindStroke)
	h.mu.Unlock()
	log.Printf("[HISTORY] stroke recorded: %s (%d points)", s.Name, len(s.Points))
}

// RecordCircle adds a finalized circle.
func (h *History) RecordCircle(c SavedCircle) {
	h.mu.Lock()
	if i := h.circleIndex(c.Name); i >= 0 {
		h.circles[i] = c
	} else {
		h.circles = append(h.circles, c)
	}
	h.clearMoves()
	h.persist(KindCircle)
	h.mu.Unlock()
	log.Printf("[HISTORY] circle recorded: %s", c.Name)
}

// NotePointEdit marks new content drawn outside the collections, such as a
// point tap, which makes pending move snapshots unreplayable.
func (h *History) NotePointEdit() {
	h.mu.Lock()
	h.clearMoves()
	h.mu.Unlock()
}

func (h *History) clearMoves() {
	h.strokeMoves = nil
	h.circleMoves = nil
}

// dropMoves forgets the position snapshots of a removed item so redo
// cannot target it.
func (h *History) dropMoves(name string) {
	h.strokeMoves = slices.DeleteFunc(h.strokeMoves, func(s SavedStroke) bool { return s.Name == name })
	h.circleMoves = slices.DeleteFunc(h.circleMoves, func(c SavedCircle) bool { return c.Name == name })
}

// SnapshotStroke saves the current points of name before it moves.
func (h *History) SnapshotStroke(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	i := h.strokeIndex(name)
	if i < 0 {
		return false
	}
	h.strokeMoves = append(h.strokeMoves, h.strokes[i].clone())
	return true
}

// SnapshotCircle saves the current geometry of name before it moves.
func (h *History) SnapshotCircle(name string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	i := h.circleIndex(name)
	if i < 0 {
		return false
	}
	h.circleMoves = append(h.circleMoves, h.circles[i])
	return true
}

// ApplyStrokePoints replaces the points of a stroke after the viewer
// reported them. Unknown names are stale and ignored. The update clears
// pending move snapshots unless it confirms the move on top of the stack.
func (h *History) ApplyStrokePoints(name string, pts []geom.SpherePoint) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	i := h.strokeIndex(name)
	if i < 0 || len(pts) == 0 {
		return false
	}
	h.strokes[i].Points = slices.Clone(pts)
	if n := len(h.strokeMoves); n == 0 || h.strokeMoves[n-1].Name != name {
		h.clearMoves()
	}
	h.persist(KindStroke)
	return true
}

// ApplyCircle replaces the geometry of a circle after the viewer reported
// it, with the same snapshot rule as ApplyStrokePoints.
func (h *History) ApplyCircle(c SavedCircle) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	i := h.circleIndex(c.Name)
	if i < 0 || c.Diameter <= 0 {
		return false
	}
	h.circles[i] = c
	if n := len(h.circleMoves); n == 0 || h.circleMoves[n-1].Name != c.Name {
		h.clearMoves()
	}
	h.persist(KindCircle)
	return true
}

// Undo removes the most recent stroke, or the most recent circle when
// there are no strokes. It reports false when both collections are empty
// so the caller can fall back to in-progress drawing.
func (h *History) Undo() (Change, bool) {
	h.mu.Lock()
	var ch Change
	switch {
	case len(h.strokes) > 0:
		i := len(h.strokes) - 1
		s := h.strokes[i]
		h.strokes = h.strokes[:i]
		h.deletedStrokes = append(h.deletedStrokes, deleted[SavedStroke]{item: s, index: i})
		h.dropMoves(s.Name)
		h.unselect(s.Name)
		h.persist(KindStroke)
		ch = Change{Kind: KindStroke, Name: s.Name}
	case len(h.circles) > 0:
		i := len(h.circles) - 1
		c := h.circles[i]
		h.circles = h.circles[:i]
		h.deletedCircles = append(h.deletedCircles, deleted[SavedCircle]{item: c, index: i})
		h.dropMoves(c.Name)
		h.unselect(c.Name)
		h.persist(KindCircle)
		ch = Change{Kind: KindCircle, Name: c.Name}
	default:
		h.mu.Unlock()
		return Change{}, false
	}
	h.mu.Unlock()

	h.render.Erase(ch.Name)
	log.Printf("[HISTORY] undo removed %s %s", ch.Kind, ch.Name)
	return ch, true
}

// Redo restores, in order of preference, the last stroke position, the
// last circle position, the last deleted stroke and the last deleted
// circle. Each call restores one item.
func (h *History) Redo(ctx context.Context) (Change, bool) {
	h.mu.Lock()
	var (
		ch     Change
		stroke *SavedStroke
		circle *SavedCircle
	)
	switch {
	case len(h.strokeMoves) > 0:
		s := pop(&h.strokeMoves)
		if i := h.strokeIndex(s.Name); i >= 0 {
			h.strokes[i] = s
			h.persist(KindStroke)
			stroke = &s
		}
		ch = Change{Kind: KindStroke, Name: s.Name}
	case len(h.circleMoves) > 0:
		c := pop(&h.circleMoves)
		if i := h.circleIndex(c.Name); i >= 0 {
			h.circles[i] = c
			h.persist(KindCircle)
			circle = &c
		}
		ch = Change{Kind: KindCircle, Name: c.Name}
	case len(h.deletedStrokes) > 0:
		d := pop(&h.deletedStrokes)
		h.strokes = slices.Insert(h.strokes, min(d.index, len(h.strokes)), d.item)
		h.persist(KindStroke)
		stroke = &d.item
		ch = Change{Kind: KindStroke, Name: d.item.Name}
	case len(h.deletedCircles) > 0:
		d := pop(&h.deletedCircles)
		h.circles = slices.Insert(h.circles, min(d.index, len(h.circles)), d.item)
		h.persist(KindCircle)
		circle = &d.item
		ch = Change{Kind: KindCircle, Name: d.item.Name}
	default:
		h.mu.Unlock()
		return Change{}, false
	}
	h.mu.Unlock()

	if stroke != nil {
		h.render.Erase(stroke.Name)
		h.render.DrawStroke(ctx, stroke.clone())
	}
	if circle != nil {
		h.render.Erase(circle.Name)
		h.render.DrawCircle(ctx, *circle)
	}
	log.Printf("[HISTORY] redo restored %s %s", ch.Kind, ch.Name)
	return ch, true
}

func pop[T any](stack *[]T) T {
	s := *stack
	v := s[len(s)-1]
	*stack = s[:len(s)-1]
	return v
}

// ClearAll erases every annotation and every history stack, and removes
// the persisted collections.
func (h *History) ClearAll() {
	h.mu.Lock()
	names := make([]string, 0, len(h.strokes)+len(h.circles))
	for _, s := range h.strokes {
		names = append(names, s.Name)
	}
	for _, c := range h.circles {
		names = append(names, c.Name)
	}
	h.strokes, h.circles = nil, nil
	h.deletedStrokes, h.deletedCircles = nil, nil
	h.clearMoves()
	h.selStroke, h.selCircle = "", ""
	for _, key := range []string{StrokesKey, CirclesKey} {
		if err := h.store.Remove(key); err != nil {
			log.Printf("[HISTORY] remove %s: %v", key, err)
		}
	}
	h.mu.Unlock()

	for _, n := range names {
		h.render.Erase(n)
	}
	log.Printf("[HISTORY] cleared %d annotations", len(names))
}

// DeleteSelected removes the selected stroke or circle and keeps it on
// the deletion stack.
func (h *History) DeleteSelected() (Change, bool) {
	h.mu.Lock()
	var ch Change
	if i := h.strokeIndex(h.selStroke); h.selStroke != "" && i >= 0 {
		s := h.strokes[i]
		h.strokes = slices.Delete(h.strokes, i, i+1)
		h.deletedStrokes = append(h.deletedStrokes, deleted[SavedStroke]{item: s, index: i})
		h.dropMoves(s.Name)
		h.persist(KindStroke)
		ch = Change{Kind: KindStroke, Name: s.Name}
	} else if i := h.circleIndex(h.selCircle); h.selCircle != "" && i >= 0 {
		c := h.circles[i]
		h.circles = slices.Delete(h.circles, i, i+1)
		h.deletedCircles = append(h.deletedCircles, deleted[SavedCircle]{item: c, index: i})
		h.dropMoves(c.Name)
		h.persist(KindCircle)
		ch = Change{Kind: KindCircle, Name: c.Name}
	} else {
		h.mu.Unlock()
		return Change{}, false
	}
	h.selStroke, h.selCircle = "", ""
	h.mu.Unlock()

	h.render.Erase(ch.Name)
	log.Printf("[HISTORY] deleted %s %s", ch.Kind, ch.Name)
	return ch, true
}

// Selected reports the current selection, if any.
func (h *History) Selected() (Change, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	switch {
	case h.selStroke != "":
		return Change{Kind: KindStroke, Name: h.selStroke}, true
	case h.selCircle != "":
		return Change{Kind: KindCircle, Name: h.selCircle}, true
	}
	return Change{}, false
}

// SelectStroke selects name and deselects everything else.
func (h *History) SelectStroke(name string) bool {
	h.mu.Lock()
	i := h.strokeIndex(name)
	if i < 0 {
		h.mu.Unlock()
		return false
	}
	offS, offC := h.selectionRecords()
	h.selStroke, h.selCircle = name, ""
	on := h.strokes[i].clone()
	h.mu.Unlock()

	h.highlightOff(offS, offC)
	h.render.HighlightStroke(on, true)
	return true
}

// SelectCircle selects name and deselects everything else.
func (h *History) SelectCircle(name string) bool {
	h.mu.Lock()
	i := h.circleIndex(name)
	if i < 0 {
		h.mu.Unlock()
		return false
	}
	offS, offC := h.selectionRecords()
	h.selStroke, h.selCircle = "", name
	on := h.circles[i]
	h.mu.Unlock()

	h.highlightOff(offS, offC)
	h.render.HighlightCircle(on, true)
	return true
}

// ClearSelection removes any highlight.
func (h *History) ClearSelection() {
	h.mu.Lock()
	offS, offC := h.selectionRecords()
	h.selStroke, h.selCircle = "", ""
	h.mu.Unlock()
	h.highlightOff(offS, offC)
}

func (h *History) selectionRecords() (*SavedStroke, *SavedCircle) {
	var (
		s *SavedStroke
		c *SavedCircle
	)
	if i := h.strokeIndex(h.selStroke); h.selStroke != "" && i >= 0 {
		v := h.strokes[i].clone()
		s = &v
	}
	if i := h.circleIndex(h.selCircle); h.selCircle != "" && i >= 0 {
		v := h.circles[i]
		c = &v
	}
	return s, c
}

func (h *History) highlightOff(s *SavedStroke, c *SavedCircle) {
	if s != nil {
		h.render.HighlightStroke(*s, false)
	}
	if c != nil {
		h.render.HighlightCircle(*c, false)
	}
}

func (h *History) unselect(name string) {
	if h.selStroke == name {
		h.selStroke = ""
	}
	if h.selCircle == name {
		h.selCircle = ""
	}
}

// persist writes one collection. Failures are logged and otherwise ignored.
// Callers hold the lock.
func (h *History) persist(kind Kind) {
	var (
		key  string
		data []byte
		err  error
	)
	switch kind {
	case KindStroke:
		key = StrokesKey
		data, err = json.Marshal(nonNil(h.strokes))
	case KindCircle:
		key = CirclesKey
		data, err = json.Marshal(nonNil(h.circles))
	}
	if err != nil {
		log.Printf("[HISTORY] encode %s: %v", key, err)
		return
	}
	if err := h.store.Save(key, string(data)); err != nil {
		log.Printf("[HISTORY] save %s: %v", key, err)
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// Load replaces the collections with what the store holds and resets every
// stack. Unreadable entries load as empty.
func (h *History) Load() {
	strokes := loadList[SavedStroke](h.store, StrokesKey)
	circles := loadList[SavedCircle](h.store, CirclesKey)
	h.mu.Lock()
	h.strokes, h.circles = strokes, circles
	h.deletedStrokes, h.deletedCircles = nil, nil
	h.clearMoves()
	h.selStroke, h.selCircle = "", ""
	h.mu.Unlock()
	log.Printf("[HISTORY] loaded %d strokes, %d circles", len(strokes), len(circles))
}

func loadList[T any](store Store, key string) []T {
	raw, err := store.Load(key)
	if err != nil {
		log.Printf("[HISTORY] load %s: %v", key, err)
		return nil
	}
	if raw == "" {
		return nil
	}
	var out []T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		log.Printf("[HISTORY] decode %s: %v", key, err)
		return nil
	}
	return out
}

// Hydrate draws every stored annotation into the viewer.
func (h *History) Hydrate(ctx context.Context) {
	strokes, circles := h.Strokes(), h.Circles()
	for _, s := range strokes {
		h.render.Erase(s.Name)
		h.render.DrawStroke(ctx, s)
	}
	for _, c := range circles {
		h.render.Erase(c.Name)
		h.render.DrawCircle(ctx, c)
	}
}

// Export returns the strokes as a JSON array.
func (h *History) Export() ([]byte, error) {
	return json.MarshalIndent(nonNil(h.Strokes()), "", "  ")
}

// Import replaces all strokes with a JSON array of strokes. On error the
// collections are left untouched.
func (h *History) Import(ctx context.Context, data []byte) error {
	var in []SavedStroke
	if err := json.Unmarshal(data, &in); err != nil || in == nil {
		if err == nil {
			err = errors.New("null")
		}
		return fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	h.mu.Lock()
	taken := make(map[string]bool, len(in)+len(h.circles))
	for _, c := range h.circles {
		taken[c.Name] = true
	}
	for i := range in {
		name := krpano.SanitizeName(in[i].Name)
		if name == "" || taken[name] {
			name = h.names.Next(string(KindStroke))
		}
		taken[name] = true
		in[i].Name = name
	}
	old := h.strokes
	h.strokes = in
	h.deletedStrokes, h.deletedCircles = nil, nil
	h.clearMoves()
	h.selStroke = ""
	h.persist(KindStroke)
	h.mu.Unlock()

	for _, s := range old {
		h.render.Erase(s.Name)
	}
	for _, s := range in {
		h.render.DrawStroke(ctx, s.clone())
	}
	log.Printf("[HISTORY] imported %d strokes", len(in))
	return nil
}

type nopRenderer struct{}

func (nopRenderer) DrawStroke(context.Context, SavedStroke) {}
func (nopRenderer) DrawCircle(context.Context, SavedCircle) {}
func (nopRenderer) Erase(string) {}
func (nopRenderer) HighlightStroke(SavedStroke, bool) {}
func (nopRenderer) HighlightCircle(SavedCircle, bool) {}
