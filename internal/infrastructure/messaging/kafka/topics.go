package kafka

import (
	"encoding/json"
	"time"

	"github.com/turtacn/grantsync/internal/domain/patent"
	"github.com/turtacn/grantsync/pkg/errors"
)

// TopicGrantsIngested carries one message per saved grant.
const TopicGrantsIngested = "patent.grants.ingested"

// Header keys set on every grant message.
const (
	HeaderGrantDate = "grant_date"
	HeaderSource    = "source"
)

const sourceName = "grantsync"

// NewGrantMessage encodes p as a grant event.  The key is the patent number
// so every version of one patent lands on the same partition.
func NewGrantMessage(topic string, p patent.Patent, at time.Time) (Message, error) {
	value, err := json.Marshal(p)
	if err != nil {
		return Message{}, errors.New(errors.ErrCodeSerialization, "failed to marshal grant").
			WithDetail(p.PatentNumber).
			WithCause(err)
	}
	return Message{
		Topic: topic,
		Key:   []byte(p.PatentNumber),
		Value: value,
		Headers: map[string]string{
			HeaderGrantDate: p.GrantDate.String(),
			HeaderSource:    sourceName,
		},
		Time: at,
	}, nil
}
