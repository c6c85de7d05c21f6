package amqp

import (
	"encoding/json"
	"time"
)

// VerificationMailMessage asks the mail worker to send one verification email.
// It carries the signed token so the worker needs no database access.
type VerificationMailMessage struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Token     string    `json:"token"`
	Timestamp time.Time `json:"timestamp"`
}

func NewVerificationMailMessage(email, name, token string) *VerificationMailMessage {
	return &VerificationMailMessage{
		Email:     email,
		Name:      name,
		Token:     token,
		Timestamp: time.Now(),
	}
}

func (m *VerificationMailMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func VerificationMailMessageFromJSON(data []byte) (*VerificationMailMessage, error) {
	var msg VerificationMailMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
