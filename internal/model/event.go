package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Valbows/NewDomo-sub006/pkg/utils"
)

// EventType represents the canonical logical type of an inbound event
type EventType string

// Canonical event type constants
const (
	EventConversationStarted   EventType = "conversation_started"
	EventConversationCompleted EventType = "conversation_completed"
	EventConversationEnded     EventType = "conversation_ended"
	EventTranscriptionReady    EventType = "transcription_ready"
	EventPerceptionAnalysis    EventType = "perception_analysis"
	EventToolCall              EventType = "tool_call"
	EventObjectiveCompleted    EventType = "objective_completed"
)

// Objective name constants reported with objective_completed events
const (
	ObjectiveGreetingQualification = "greeting_and_qualification"
	ObjectiveProductInterest       = "product_interest_discovery"
	ObjectiveVideoShowcase         = "demo_video_showcase"
	ObjectiveCtaDisplay            = "cta_display"
)

// Tool name constants reported with tool_call events
const (
	ToolShowVideo  = "show_video"
	ToolFetchVideo = "fetch_video"
	ToolShowCta    = "show_cta"
	ToolCtaClicked = "cta_clicked"
)

// providerPrefixes are namespace prefixes the provider prepends to event
// types depending on the emitting subsystem. Classification strips them.
var providerPrefixes = []string{"system.", "application.", "conversation."}

// MapToBaseEventType attempts to map an input string (potentially carrying a
// provider namespace prefix) back to a known canonical EventType constant.
// It returns the mapped EventType and true if successful, or an empty
// EventType ("") and false if no mapping is found.
func MapToBaseEventType(input string) (EventType, bool) {
	// First, check if the input string directly matches a known EventType value.
	switch EventType(input) {
	case EventConversationStarted, EventConversationCompleted, EventConversationEnded,
		EventTranscriptionReady, EventPerceptionAnalysis, EventToolCall, EventObjectiveCompleted:
		return EventType(input), true
	}

	// If no direct match, try stripping a known provider prefix.
	for _, prefix := range providerPrefixes {
		if !strings.HasPrefix(input, prefix) {
			continue
		}
		base := strings.TrimPrefix(input, prefix)
		switch EventType(base) {
		case EventConversationStarted, EventConversationCompleted, EventConversationEnded,
			EventTranscriptionReady, EventPerceptionAnalysis, EventToolCall, EventObjectiveCompleted:
			return EventType(base), true
		}
	}

	return "", false
}

// IsLifecycle reports whether the event type belongs to the conversation
// lifecycle family (upsert-by-key persistence, naturally idempotent).
func (e EventType) IsLifecycle() bool {
	switch e {
	case EventConversationStarted, EventConversationCompleted, EventConversationEnded,
		EventTranscriptionReady, EventPerceptionAnalysis:
		return true
	}
	return false
}

// RequiresIdempotencyGuard reports whether the event family has side effects
// that are not naturally idempotent and must pass the processed-event ledger.
func (e EventType) RequiresIdempotencyGuard() bool {
	return e == EventToolCall || e == EventObjectiveCompleted
}

// InboundEvent is the decoded webhook payload. The provider emits several
// envelope shapes; the typed fields capture the common discriminators and
// Raw keeps the full decoded object for the multi-shape field lookups.
// Never persisted verbatim, only derived records are.
type InboundEvent struct {
	EventType      string                   `json:"event_type"`
	MessageType    string                   `json:"message_type"`
	ConversationID string                   `json:"conversation_id"`
	EventID        string                   `json:"event_id"`
	ObjectiveName  string                   `json:"objective_name"`
	ToolName       string                   `json:"tool_name"`
	Properties     map[string]interface{}   `json:"properties"`
	Data           map[string]interface{}   `json:"data"`
	Events         []map[string]interface{} `json:"events"`

	Raw        map[string]interface{} `json:"-"`
	RawBody    []byte                 `json:"-"`
	ReceivedAt time.Time              `json:"-"`
}

// DecodeInboundEvent parses a raw webhook body into an InboundEvent,
// reconciling the envelope variants (event_type vs message_type vs type,
// conversation_id nested under properties or data).
func DecodeInboundEvent(rawBody []byte, receivedAt time.Time) (*InboundEvent, error) {
	var event InboundEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event payload: %w", err)
	}
	if err := json.Unmarshal(rawBody, &event.Raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event payload: %w", err)
	}
	event.RawBody = rawBody
	event.ReceivedAt = receivedAt

	if event.EventType == "" {
		if event.MessageType != "" {
			event.EventType = event.MessageType
		} else if t, ok := stringField(event.Raw, "type"); ok {
			event.EventType = t
		}
	}
	if event.ConversationID == "" {
		for _, bag := range []map[string]interface{}{event.Properties, event.Data} {
			if id, ok := stringField(bag, "conversation_id"); ok {
				event.ConversationID = id
				break
			}
		}
	}
	return &event, nil
}

// Type returns the canonical event type, or "" and false for unknown types.
func (e *InboundEvent) Type() (EventType, bool) {
	return MapToBaseEventType(e.EventType)
}

// ResolveEventID returns the provider-assigned event id, checking the
// top-level field first and then the nested bags.
func (e *InboundEvent) ResolveEventID() string {
	if e.EventID != "" {
		return e.EventID
	}
	for _, bag := range []map[string]interface{}{e.Properties, e.Data} {
		if id, ok := stringField(bag, "event_id"); ok {
			return id
		}
	}
	return ""
}

// ResolveObjectiveName returns the objective name, checking the top-level
// field first and then the nested bags.
func (e *InboundEvent) ResolveObjectiveName() string {
	if e.ObjectiveName != "" {
		return e.ObjectiveName
	}
	for _, bag := range []map[string]interface{}{e.Properties, e.Data} {
		if name, ok := stringField(bag, "objective_name"); ok {
			return name
		}
	}
	return ""
}

// ResolveToolName returns the invoked tool name. Some envelope versions
// report it as "name" inside properties.
func (e *InboundEvent) ResolveToolName() string {
	if e.ToolName != "" {
		return e.ToolName
	}
	for _, bag := range []map[string]interface{}{e.Properties, e.Data} {
		if name, ok := stringField(bag, "tool_name"); ok {
			return name
		}
		if name, ok := stringField(bag, "name"); ok {
			return name
		}
	}
	return ""
}

// ResolveDemoID returns the owning demo id when the payload carries one.
// Lifecycle events emitted at conversation start usually do.
func (e *InboundEvent) ResolveDemoID() string {
	if id, ok := stringField(e.Raw, "demo_id"); ok {
		return id
	}
	for _, bag := range []map[string]interface{}{e.Properties, e.Data} {
		if id, ok := stringField(bag, "demo_id"); ok {
			return id
		}
	}
	return ""
}

// ResolveDuration returns the conversation duration in seconds, or 0 when
// the payload does not report one.
func (e *InboundEvent) ResolveDuration() int {
	for _, bag := range []map[string]interface{}{e.Raw, e.Properties, e.Data} {
		for _, key := range []string{"duration", "duration_seconds"} {
			if n, ok := numberField(bag, key); ok {
				return int(n)
			}
		}
	}
	return 0
}

// OccurredAt returns the provider-reported event time when the payload
// carries one, falling back to the delivery time. Providers report either
// RFC3339 strings or unix epochs, in seconds or milliseconds.
func (e *InboundEvent) OccurredAt() time.Time {
	for _, bag := range []map[string]interface{}{e.Raw, e.Properties, e.Data} {
		for _, key := range []string{"timestamp", "event_timestamp", "occurred_at"} {
			if s, ok := stringField(bag, key); ok {
				if parsed, err := time.Parse(time.RFC3339, s); err == nil {
					return parsed.UTC()
				}
				continue
			}
			if n, ok := numberField(bag, key); ok && n > 0 {
				// Second epochs stay below 1e12 for the next few millennia.
				if n >= 1e12 {
					return utils.UnixToTimeWithMilliseconds(int64(n))
				}
				return utils.UnixToTime(int64(n))
			}
		}
	}
	return e.ReceivedAt
}

// ToolArguments returns the argument bag of a tool call. Envelope versions
// disagree on its key; "args" and "arguments" are both seen in traffic.
// Falls back to properties when no dedicated bag exists.
func (e *InboundEvent) ToolArguments() map[string]interface{} {
	for _, bag := range []map[string]interface{}{e.Properties, e.Data} {
		for _, key := range []string{"args", "arguments"} {
			if args, ok := mapField(bag, key); ok {
				return args
			}
		}
	}
	if len(e.Properties) > 0 {
		return e.Properties
	}
	return e.Data
}

// OutputVariables extracts the captured output variables of an objective
// completion. Traffic exhibits three shapes, all authoritative:
// properties.output_variables, data.output_variables, and a flat
// properties bag. Strategies are tried in that order.
func (e *InboundEvent) OutputVariables() (map[string]interface{}, bool) {
	for _, bag := range []map[string]interface{}{e.Properties, e.Data} {
		if vars, ok := mapField(bag, "output_variables"); ok {
			return vars, true
		}
	}
	// Flat shape: the variables live directly in properties alongside the
	// discriminator fields, which are not variables themselves.
	if len(e.Properties) > 0 {
		vars := make(map[string]interface{}, len(e.Properties))
		for k, v := range e.Properties {
			switch k {
			case "conversation_id", "objective_name", "event_id", "tool_name", "name":
				continue
			}
			vars[k] = v
		}
		if len(vars) > 0 {
			return vars, true
		}
	}
	return nil, false
}

// Transcript extracts transcript data from any of its known locations:
// top-level, properties, data, or a typed entry of the events array.
func (e *InboundEvent) Transcript() (interface{}, bool) {
	return e.extract("transcript", EventTranscriptionReady)
}

// Perception extracts perception analysis data from any of its known
// locations, mirroring Transcript.
func (e *InboundEvent) Perception() (interface{}, bool) {
	return e.extract("perception_analysis", EventPerceptionAnalysis)
}

// extract runs the ordered lookup strategies for a multi-shape field:
// top-level key, properties key, data key, then events[] entries whose
// type maps to subEventType.
func (e *InboundEvent) extract(key string, subEventType EventType) (interface{}, bool) {
	if v, ok := e.Raw[key]; ok && v != nil {
		return v, true
	}
	for _, bag := range []map[string]interface{}{e.Properties, e.Data} {
		if v, ok := bag[key]; ok && v != nil {
			return v, true
		}
	}
	for _, sub := range e.Events {
		subType, _ := stringField(sub, "type")
		if subType == "" {
			subType, _ = stringField(sub, "event_type")
		}
		if mapped, ok := MapToBaseEventType(subType); !ok || mapped != subEventType {
			continue
		}
		if v, ok := sub[key]; ok && v != nil {
			return v, true
		}
		if data, ok := mapField(sub, "data"); ok {
			if v, ok := data[key]; ok && v != nil {
				return v, true
			}
			return data, true
		}
	}
	return nil, false
}

func stringField(m map[string]interface{}, key string) (string, bool) {
	if m == nil {
		return "", false
	}
	if s, ok := m[key].(string); ok && s != "" {
		return s, true
	}
	return "", false
}

func numberField(m map[string]interface{}, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	switch n := m[key].(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func mapField(m map[string]interface{}, key string) (map[string]interface{}, bool) {
	if m == nil {
		return nil, false
	}
	if sub, ok := m[key].(map[string]interface{}); ok {
		return sub, true
	}
	return nil, false
}
