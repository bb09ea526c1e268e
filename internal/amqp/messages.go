package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// DatasetRefreshMessage announces that the stored dataset changed and
// consumers should reload it.
type DatasetRefreshMessage struct {
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

func NewDatasetRefreshMessage(source string) *DatasetRefreshMessage {
	return &DatasetRefreshMessage{
		Source:    source,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *DatasetRefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DatasetRefreshMessageFromJSON decodes a message. A message without a
// source is rejected.
func DatasetRefreshMessageFromJSON(data []byte) (*DatasetRefreshMessage, error) {
	var msg DatasetRefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Source == "" {
		return nil, fmt.Errorf("refresh message without source")
	}
	return &msg, nil
}
