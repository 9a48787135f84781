package routing

import (
	"sort"
	"time"

	"foreman/internal/adapters/ai"
	"foreman/pkg/errors"
)

// ModelDescriptor describes the capabilities, limits and cost/quality/speed
// priors of one backend model. Descriptors are immutable after load.
type ModelDescriptor struct {
	ID               string
	Provider         ai.ProviderName
	Capabilities     []Capability
	MaxOutputTokens  int
	MaxContextTokens int
	CostPer1KInput   float64
	CostPer1KOutput  float64
	Priority         Priority
	Timeout          time.Duration
	QualityScore     float64
	SpeedScore       float64
}

// Supports reports whether the model offers the given capability.
func (d ModelDescriptor) Supports(c Capability) bool {
	for _, have := range d.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// IsFree reports whether the model costs nothing to run (local/emergency
// backends).
func (d ModelDescriptor) IsFree() bool {
	return d.CostPer1KInput == 0 && d.CostPer1KOutput == 0
}

const (
	defaultQualityScore = 0.5
	defaultSpeedScore   = 0.5
	defaultModelTimeout = 30 * time.Second
)

// Registry is the static model catalog. It is built once at process start
// and never mutated, so reads need no synchronization.
type Registry struct {
	models       map[string]ModelDescriptor
	order        []string
	byCapability map[Capability][]string
}

// NewRegistry validates the catalog and builds the capability index.
func NewRegistry(descriptors []ModelDescriptor) (*Registry, error) {
	r := &Registry{
		models:       make(map[string]ModelDescriptor, len(descriptors)),
		byCapability: make(map[Capability][]string),
	}

	for _, d := range descriptors {
		if d.ID == "" {
			return nil, errors.Wrap(errors.ErrInvalidInput, "model descriptor missing id")
		}
		if _, exists := r.models[d.ID]; exists {
			return nil, errors.Wrapf(errors.ErrAlreadyExists, "duplicate model id %s", d.ID)
		}
		if d.CostPer1KInput < 0 || d.CostPer1KOutput < 0 {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "model %s has negative cost", d.ID)
		}
		if d.Timeout == 0 {
			d.Timeout = defaultModelTimeout
		}

		r.models[d.ID] = d
		r.order = append(r.order, d.ID)
		for _, c := range d.Capabilities {
			r.byCapability[c] = append(r.byCapability[c], d.ID)
		}
	}

	return r, nil
}

// Get returns the descriptor for a model id.
func (r *Registry) Get(id string) (ModelDescriptor, bool) {
	d, ok := r.models[id]
	return d, ok
}

// Len returns the number of cataloged models.
func (r *Registry) Len() int {
	return len(r.models)
}

// All returns every descriptor in catalog order.
func (r *Registry) All() []ModelDescriptor {
	out := make([]ModelDescriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.models[id])
	}
	return out
}

// ModelsFor returns all models supporting a capability, in catalog order.
func (r *Registry) ModelsFor(c Capability) []ModelDescriptor {
	ids := r.byCapability[c]
	out := make([]ModelDescriptor, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.models[id])
	}
	return out
}

// Emergency returns all zero-cost models sorted by (priority, quality desc).
func (r *Registry) Emergency() []ModelDescriptor {
	var out []ModelDescriptor
	for _, id := range r.order {
		if d := r.models[id]; d.IsFree() {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].QualityScore > out[j].QualityScore
	})
	return out
}

// EstimateCost returns the USD cost of a request against a model. Unknown
// model ids cost nothing rather than erroring, so callers never null-check.
func (r *Registry) EstimateCost(id string, inputTokens int, outputTokens int) float64 {
	d, ok := r.models[id]
	if !ok {
		return 0
	}
	return (float64(inputTokens)/1000.0)*d.CostPer1KInput + (float64(outputTokens)/1000.0)*d.CostPer1KOutput
}

// Priority returns the model's priority tier; unknown ids rank tertiary.
func (r *Registry) Priority(id string) Priority {
	if d, ok := r.models[id]; ok {
		return d.Priority
	}
	return PriorityTertiary
}

// QualityScore returns the model's quality prior, 0.5 for unknown ids.
func (r *Registry) QualityScore(id string) float64 {
	if d, ok := r.models[id]; ok {
		return d.QualityScore
	}
	return defaultQualityScore
}

// SpeedScore returns the model's speed prior, 0.5 for unknown ids.
func (r *Registry) SpeedScore(id string) float64 {
	if d, ok := r.models[id]; ok {
		return d.SpeedScore
	}
	return defaultSpeedScore
}

// Timeout returns the per-request timeout configured for a model.
func (r *Registry) Timeout(id string) time.Duration {
	if d, ok := r.models[id]; ok {
		return d.Timeout
	}
	return defaultModelTimeout
}
