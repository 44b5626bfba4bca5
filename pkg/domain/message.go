package domain

import "time"

// Modality is the medium of an inbound message.
type Modality string

const (
	ModalityText   Modality = "text"
	ModalityButton Modality = "button"
	ModalityImage  Modality = "image"
	ModalityVoice  Modality = "voice"
)

// Valid reports whether m is one of the known modalities.
func (m Modality) Valid() bool {
	switch m {
	case ModalityText, ModalityButton, ModalityImage, ModalityVoice:
		return true
	}
	return false
}

// Media is the binary attachment of an image or voice message.
type Media struct {
	ID       string `json:"id,omitempty"`
	MIMEType string `json:"mime_type,omitempty"`
	Data     []byte `json:"-"`
}

// Message is one inbound delivery from the chat transport.
type Message struct {
	// ID is the transport message identifier, used for de-duplication when present.
	ID       string   `json:"id,omitempty"`
	UserKey  string   `json:"user_key"`
	Modality Modality `json:"modality"`
	// Payload is the text body or the selected button ID.
	Payload    string    `json:"payload,omitempty"`
	Media      *Media    `json:"media,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}
