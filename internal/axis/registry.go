// Package axis holds the registry mapping every WCAG axis key to its
// prompt template and its snapshot slicer, so that adding a
// thirteenth axis never touches the orchestrator (SPEC_FULL.md §4).
//
// Grounded on the job-type/action registry in
// internal/services/jobs/registry.go of the teacher repo, simplified
// from a nested action map to a flat key → Definition table since
// axes don't carry sub-actions.
package axis

import (
	"fmt"
	"sort"
	"sync"

	"github.com/a11yscan/auditor/internal/models"
	"github.com/a11yscan/auditor/internal/services/snapshot"
)

// SlicerFunc projects a BaseSnapshot down to the JSON-serializable
// view a single axis's prompt needs.
type SlicerFunc func(*models.BaseSnapshot) interface{}

// Definition binds one axis key to its display name, prompt template
// file and slicer.
type Definition struct {
	Key          models.AxisKey
	Name         string
	TemplatePath string
	Slicer       SlicerFunc
}

// Registry is a thread-safe table of axis definitions.
type Registry struct {
	mu    sync.RWMutex
	defs  map[models.AxisKey]Definition
	order []models.AxisKey
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{defs: make(map[models.AxisKey]Definition)}
}

// Register adds a definition. It returns an error on duplicate keys
// so a misconfigured registry fails at startup rather than silently
// dropping an axis.
func (r *Registry) Register(def Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if def.Slicer == nil {
		return fmt.Errorf("axis %s: nil slicer", def.Key)
	}
	if _, exists := r.defs[def.Key]; exists {
		return fmt.Errorf("axis %s already registered", def.Key)
	}
	r.defs[def.Key] = def
	r.order = append(r.order, def.Key)
	return nil
}

// Get retrieves the definition for a key.
func (r *Registry) Get(key models.AxisKey) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[key]
	return def, ok
}

// Keys returns every registered axis key, sorted for deterministic
// dispatch order.
func (r *Registry) Keys() []models.AxisKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.AxisKey, len(r.order))
	copy(out, r.order)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len reports how many axes are registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

// NewDefaultRegistry wires all 12 WCAG axes to their templates (under
// templatesDir) and their snapshot slicers. Each definition's
// TemplatePath is the full path templatesDir + "/<key>.txt", with
// "templates/prompts" used when templatesDir is empty.
func NewDefaultRegistry(templatesDir string) (*Registry, error) {
	r := New()

	defs := []Definition{
		{Key: models.AxisTextAlternatives, Name: "Text Alternatives", Slicer: snapshot.SliceTextAlternatives},
		{Key: models.AxisTimeBasedMedia, Name: "Time-based Media", Slicer: snapshot.SliceTimeBasedMedia},
		{Key: models.AxisAdaptable, Name: "Adaptable", Slicer: snapshot.SliceAdaptable},
		{Key: models.AxisDistinguishable, Name: "Distinguishable", Slicer: snapshot.SliceDistinguishable},
		{Key: models.AxisKeyboard, Name: "Keyboard Accessible", Slicer: snapshot.SliceKeyboard},
		{Key: models.AxisEnoughTime, Name: "Enough Time", Slicer: snapshot.SliceEnoughTime},
		{Key: models.AxisSeizures, Name: "Seizures and Physical Reactions", Slicer: snapshot.SliceSeizures},
		{Key: models.AxisNavigable, Name: "Navigable", Slicer: snapshot.SliceNavigable},
		{Key: models.AxisReadable, Name: "Readable", Slicer: snapshot.SliceReadable},
		{Key: models.AxisPredictable, Name: "Predictable", Slicer: snapshot.SlicePredictable},
		{Key: models.AxisInputAssistance, Name: "Input Assistance", Slicer: snapshot.SliceInputAssistance},
		{Key: models.AxisCompatible, Name: "Compatible", Slicer: snapshot.SliceCompatible},
	}

	for _, d := range defs {
		d.TemplatePath = templatePathFor(templatesDir, d.Key)
		if err := r.Register(d); err != nil {
			return nil, err
		}
	}

	if r.Len() != models.TotalAxisCount {
		return nil, fmt.Errorf("axis registry incomplete: registered %d of %d", r.Len(), models.TotalAxisCount)
	}

	return r, nil
}

func templatePathFor(dir string, key models.AxisKey) string {
	if dir == "" {
		dir = "templates/prompts"
	}
	return dir + "/" + string(key) + ".txt"
}
