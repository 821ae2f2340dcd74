package queue

import "encoding/json"

// MessageVersion is the current payload version.
const MessageVersion = 1

// Message is the payload of an asynchronous pipeline run.
type Message struct {
	RunID          string `json:"runId"`
	RequestID      string `json:"requestId"`
	Email          string `json:"email"`
	ResumeText     string `json:"resumeText"`
	JobDescription string `json:"jobDescription,omitempty"`
	EnqueuedAt     string `json:"enqueuedAt"`
	Version        int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a Message.
func DecodeMessage(payload []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
