package schema

// Event types emitted by the app's producers.
const (
	TypeBehavior      = "behavior"
	TypeIntervention  = "intervention"
	TypeOutcome       = "outcome"
	TypeTrigger       = "trigger"
	TypeResetStart    = "reset_start"
	TypeResetComplete = "reset_complete"
	TypeAIMessage     = "ai_message"
)

// EmotionalState is the self-reported state attached to triggers and AI messages.
type EmotionalState string

const (
	EmotionResentment    EmotionalState = "resentment"
	EmotionShame         EmotionalState = "shame"
	EmotionCraving       EmotionalState = "craving"
	EmotionAnger         EmotionalState = "anger"
	EmotionGrief         EmotionalState = "grief"
	EmotionDenial        EmotionalState = "denial"
	EmotionSelfDeception EmotionalState = "self-deception"
	EmotionLust          EmotionalState = "lust"
)

// TriggerSource identifies what opened a trigger chain.
type TriggerSource string

const (
	TriggerManual  TriggerSource = "manual"
	TriggerKeyword TriggerSource = "keyword"
	TriggerTime    TriggerSource = "time"
	TriggerPanic   TriggerSource = "panic"
	TriggerUnknown TriggerSource = "unknown"
)

// ResetKind names a reset exercise.
type ResetKind string

const (
	ResetNostril ResetKind = "nostril"
	ResetSigh    ResetKind = "sigh"
	ResetEFT     ResetKind = "eft"
	ResetBox     ResetKind = "box"
	ResetShake   ResetKind = "shake"
	ResetCold    ResetKind = "cold"
	ResetShadow  ResetKind = "shadow"
)

// AnalyticsPayload is implemented by the typed analytics records below.
// The outbox never inspects the resulting map.
type AnalyticsPayload interface {
	EventType() string
	Payload() map[string]any
}

// TriggerPayload starts a trigger -> reset chain.
type TriggerPayload struct {
	Trigger        TriggerSource
	EmotionalState EmotionalState
	Context        string
}

func (p TriggerPayload) EventType() string { return TypeTrigger }

func (p TriggerPayload) Payload() map[string]any {
	out := map[string]any{"trigger": string(p.Trigger)}
	putString(out, "emotional_state", string(p.EmotionalState))
	putString(out, "context", p.Context)
	return out
}

// ResetStartPayload records the start of a reset, optionally linked to a trigger.
type ResetStartPayload struct {
	Reset         ResetKind
	FromTriggerID string
}

func (p ResetStartPayload) EventType() string { return TypeResetStart }

func (p ResetStartPayload) Payload() map[string]any {
	out := map[string]any{"reset": string(p.Reset)}
	putString(out, "from_trigger_id", p.FromTriggerID)
	return out
}

// ResetCompletePayload records a finished reset. Outcome is a 1-5 rating, 0 when not given.
type ResetCompletePayload struct {
	Reset       ResetKind
	DurationSec int
	Outcome     int
	FromStartID string
}

func (p ResetCompletePayload) EventType() string { return TypeResetComplete }

func (p ResetCompletePayload) Payload() map[string]any {
	out := map[string]any{
		"reset":        string(p.Reset),
		"duration_sec": p.DurationSec,
	}
	if p.Outcome >= 1 && p.Outcome <= 5 {
		out["outcome"] = p.Outcome
	}
	putString(out, "from_start_id", p.FromStartID)
	return out
}

// AIMessagePayload records a coach exchange without its content.
type AIMessagePayload struct {
	EmotionalState EmotionalState
	InputLen       int
	Model          string
	ResponseLen    int
}

func (p AIMessagePayload) EventType() string { return TypeAIMessage }

func (p AIMessagePayload) Payload() map[string]any {
	out := map[string]any{
		"emotional_state": string(p.EmotionalState),
		"input_len":       p.InputLen,
	}
	putString(out, "model", p.Model)
	if p.ResponseLen > 0 {
		out["response_len"] = p.ResponseLen
	}
	return out
}

func putString(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}
