package chat

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"foreman/internal/adapters/ai"
	"foreman/internal/routing"
	"foreman/internal/services/usage"
	"foreman/pkg/errors"
	"foreman/pkg/logger"
)

// Handler serves the completion API on top of the routing core.
type Handler struct {
	router   *routing.Router
	registry *routing.Registry
	guard    *usage.Guard
	tracker  *usage.Tracker
	log      *logger.Logger
}

// New creates a completion API handler. guard may be nil when spend
// limits are disabled.
func New(router *routing.Router, registry *routing.Registry, guard *usage.Guard, tracker *usage.Tracker, log *logger.Logger) *Handler {
	return &Handler{
		router:   router,
		registry: registry,
		guard:    guard,
		tracker:  tracker,
		log:      log.With("component", "chat_api"),
	}
}

type completionRequest struct {
	UserID   string           `json:"user_id,omitempty"`
	Model    string           `json:"model,omitempty"`
	TaskType string           `json:"task_type,omitempty"`
	Messages []messagePayload `json:"messages"`
	Options  routing.Options  `json:"options"`
}

type messagePayload struct {
	Role    string               `json:"role"`
	Content string               `json:"content,omitempty"`
	Parts   []contentPartPayload `json:"parts,omitempty"`
}

type contentPartPayload struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleCompletion serves POST /v1/completions.
func (h *Handler) HandleCompletion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var payload completionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	req, err := payload.toRequest()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.guard != nil && payload.UserID != "" {
		if err := h.guard.CheckDailyLimit(r.Context(), payload.UserID); err != nil {
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}
		// Pre-check the per-request ceiling only for pinned models; the
		// auto-routed estimate is not known until selection.
		if req.Model != "" {
			outputTokens := req.Options.MaxTokens
			if outputTokens <= 0 {
				outputTokens = 512
			}
			estimate := h.registry.EstimateCost(req.Model, req.InputTokenEstimate(), outputTokens)
			if err := h.guard.CheckRequestLimit(decimal.NewFromFloat(estimate)); err != nil {
				writeError(w, http.StatusTooManyRequests, err.Error())
				return
			}
		}
	}

	resp, err := h.router.Complete(r.Context(), req)
	if err != nil {
		h.log.Errorw("Completion failed", "error", err, "model", payload.Model)
		writeError(w, errorStatus(err), err.Error())
		return
	}

	h.tracker.Record(resp.ModelUsed, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.EstimatedCostUSD, resp.Cached)
	if h.guard != nil && payload.UserID != "" && !resp.Cached && resp.EstimatedCostUSD > 0 {
		h.guard.RecordCost(r.Context(), payload.UserID, decimal.NewFromFloat(resp.EstimatedCostUSD))
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleModels serves GET /v1/models.
func (h *Handler) HandleModels(w http.ResponseWriter, r *http.Request) {
	type modelInfo struct {
		ID               string   `json:"id"`
		Provider         string   `json:"provider"`
		Capabilities     []string `json:"capabilities"`
		MaxContextTokens int      `json:"max_context_tokens"`
		MaxOutputTokens  int      `json:"max_output_tokens"`
		CostPer1KInput   float64  `json:"cost_per_1k_input"`
		CostPer1KOutput  float64  `json:"cost_per_1k_output"`
		Priority         string   `json:"priority"`
		QualityScore     float64  `json:"quality_score"`
	}

	models := make([]modelInfo, 0, h.registry.Len())
	for _, d := range h.registry.All() {
		caps := make([]string, 0, len(d.Capabilities))
		for _, c := range d.Capabilities {
			caps = append(caps, c.String())
		}
		models = append(models, modelInfo{
			ID:               d.ID,
			Provider:         string(d.Provider),
			Capabilities:     caps,
			MaxContextTokens: d.MaxContextTokens,
			MaxOutputTokens:  d.MaxOutputTokens,
			CostPer1KInput:   d.CostPer1KInput,
			CostPer1KOutput:  d.CostPer1KOutput,
			Priority:         d.Priority.String(),
			QualityScore:     d.QualityScore,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"models": models})
}

// HandleUsage serves GET /v1/usage.
func (h *Handler) HandleUsage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models":         h.tracker.AllUsage(),
		"total_cost_usd": h.tracker.TotalCost(),
	})
}

// HandleStats serves GET /v1/stats with per-model latency and success
// statistics.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"models":                h.router.AllModelStats(),
		"circuit_breakers_open": h.router.Breaker().OpenCount(),
	})
}

func (p completionRequest) toRequest() (routing.Request, error) {
	if len(p.Messages) == 0 {
		return routing.Request{}, errors.New("messages must not be empty")
	}

	messages := make([]ai.Message, 0, len(p.Messages))
	for _, m := range p.Messages {
		role := ai.MessageRole(m.Role)
		switch role {
		case ai.RoleSystem, ai.RoleUser, ai.RoleAssistant:
		default:
			return routing.Request{}, errors.Newf("unknown message role %q", m.Role)
		}

		msg := ai.Message{Role: role, Content: m.Content}
		for _, part := range m.Parts {
			switch ai.ContentType(part.Type) {
			case ai.ContentTypeText:
				msg.Parts = append(msg.Parts, ai.ContentPart{Type: ai.ContentTypeText, Text: part.Text})
			case ai.ContentTypeImageURL:
				if part.ImageURL == "" {
					return routing.Request{}, errors.New("image_url part missing url")
				}
				msg.Parts = append(msg.Parts, ai.ContentPart{Type: ai.ContentTypeImageURL, ImageURL: part.ImageURL})
			default:
				return routing.Request{}, errors.Newf("unknown content part type %q", part.Type)
			}
		}
		messages = append(messages, msg)
	}

	return routing.Request{
		Model:    p.Model,
		TaskType: routing.TaskType(p.TaskType),
		Messages: messages,
		Options:  p.Options,
	}, nil
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, errors.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrDailyLimitExceeded), errors.Is(err, errors.ErrRequestLimitExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, errors.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, errors.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
