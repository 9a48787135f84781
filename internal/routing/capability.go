package routing

// Capability is a tagged ability a model offers, used to filter eligible
// models for a request.
type Capability string

// Capability constants
const (
	CapabilityText          Capability = "text"
	CapabilityVision        Capability = "vision"
	CapabilityCode          Capability = "code"
	CapabilityReasoning     Capability = "reasoning"
	CapabilitySpeed         Capability = "speed"
	CapabilityTranslation   Capability = "translation"
	CapabilitySummarization Capability = "summarization"
	CapabilityCreative      Capability = "creative"
)

// String returns the string representation of the capability
func (c Capability) String() string {
	return string(c)
}

// TaskType tags the kind of work a completion request represents. The
// application layer picks one per call site (image analysis, progress
// estimation, report generation...).
type TaskType string

// Task type constants
const (
	TaskTypeGeneral       TaskType = "general"
	TaskTypeVision        TaskType = "vision"
	TaskTypeReasoning     TaskType = "reasoning"
	TaskTypeCode          TaskType = "code"
	TaskTypeSpeed         TaskType = "speed"
	TaskTypeSummarization TaskType = "summarization"
	TaskTypeCreative      TaskType = "creative"
)

// Capability maps the task type to the capability used for model selection.
// Unknown task types fall back to plain text generation.
func (t TaskType) Capability() Capability {
	switch t {
	case TaskTypeVision:
		return CapabilityVision
	case TaskTypeReasoning:
		return CapabilityReasoning
	case TaskTypeCode:
		return CapabilityCode
	case TaskTypeSpeed:
		return CapabilitySpeed
	case TaskTypeSummarization:
		return CapabilitySummarization
	case TaskTypeCreative:
		return CapabilityCreative
	default:
		return CapabilityText
	}
}

// Priority is the ordered preference class of a model. Lower values are
// tried first.
type Priority int

// Priority tiers
const (
	PriorityPrimary Priority = iota
	PrioritySecondary
	PriorityTertiary
	PriorityEmergency
)

// String returns the string representation of the priority tier
func (p Priority) String() string {
	switch p {
	case PriorityPrimary:
		return "primary"
	case PrioritySecondary:
		return "secondary"
	case PriorityTertiary:
		return "tertiary"
	case PriorityEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}
