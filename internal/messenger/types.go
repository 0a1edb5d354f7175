package messenger

// Event is the top-level payload the provider delivers to the webhook.
// Only "page" objects are meaningful to this application.
type Event struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups the messaging sub-events for a single page.
type Entry struct {
	ID        string      `json:"id"`
	Time      int64       `json:"time"`
	Messaging []Messaging `json:"messaging"`
}

// Messaging is a single inbound messaging sub-event.
type Messaging struct {
	Sender    Participant `json:"sender"`
	Recipient Participant `json:"recipient"`
	Timestamp int64       `json:"timestamp"`
	Message   *Message    `json:"message,omitempty"`
}

// Participant identifies one side of a conversation.
type Participant struct {
	ID string `json:"id"`
}

// Message carries the inbound text, if any.
type Message struct {
	MID  string `json:"mid,omitempty"`
	Text string `json:"text"`
}

// sendPayload is the outbound send-API request body.
type sendPayload struct {
	Recipient Participant `json:"recipient"`
	Message   sendText    `json:"message"`
}

type sendText struct {
	Text string `json:"text"`
}
