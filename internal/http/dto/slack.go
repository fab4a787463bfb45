package dto

// SlackEnvelope is the part of an Events API body needed to route it.
type SlackEnvelope struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge,omitempty"`
	Event     *struct {
		Type string `json:"type"`
	} `json:"event,omitempty"`
}

// InteractionEnvelope is the part of an interaction payload needed to route it.
type InteractionEnvelope struct {
	Type string `json:"type"`
}
