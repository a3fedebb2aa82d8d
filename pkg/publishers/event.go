package publishers

import (
	"time"

	"github.com/pulsefeed-hq/pulse-news-radar/internal/domain"
)

// Event represents one enriched item published downstream.
type Event struct {
	TopicID     string      `json:"topic_id"`
	Item        domain.Item `json:"item"`
	CollectedAt time.Time   `json:"collected_at"`
}

// NewEvent constructs an Event for the given topic + item.
func NewEvent(topicID string, item domain.Item) Event {
	return Event{
		TopicID:     topicID,
		Item:        item,
		CollectedAt: time.Now().UTC(),
	}
}
