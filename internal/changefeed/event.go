package changefeed

import (
	"encoding/json"
	"strings"

	"github.com/BloggingApp/realtime-notifications/internal/dto"
	"github.com/xeipuuv/gojsonschema"
)

const eventSchema = `{
	"type": "object",
	"required": ["user_id", "notification"],
	"properties": {
		"user_id": {"type": "string", "minLength": 1},
		"notification": {
			"type": "object",
			"required": ["id", "created_at"],
			"properties": {
				"id": {"type": "integer", "minimum": 1},
				"user_id": {"type": ["string", "null"]},
				"title": {"type": ["string", "null"]},
				"message": {"type": ["string", "null"]},
				"type": {"type": ["string", "null"]},
				"is_read": {"type": ["boolean", "null"]},
				"created_at": {"type": "string", "minLength": 1}
			}
		}
	}
}`

var compiledEventSchema = mustSchema(eventSchema)

func mustSchema(schema string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(err)
	}
	return s
}

// DecodeEvent validates and parses a raw change feed payload.
func DecodeEvent(payload []byte) (*dto.ChangeEvent, error) {
	result, err := compiledEventSchema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return nil, &MalformedEventError{Reason: "invalid json", Err: err}
	}
	if !result.Valid() {
		reasons := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			reasons = append(reasons, desc.String())
		}
		return nil, &MalformedEventError{Reason: strings.Join(reasons, "; ")}
	}

	var event dto.ChangeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, &MalformedEventError{Reason: "undecodable notification", Err: err}
	}

	if event.Notification.UserID == "" {
		event.Notification.UserID = event.UserID
	}
	if event.Notification.UserID != event.UserID {
		return nil, &MalformedEventError{Reason: "user_id does not match notification owner"}
	}

	return &event, nil
}
