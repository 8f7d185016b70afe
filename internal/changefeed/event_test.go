package changefeed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validPayload = `{"user_id":"u1","notification":{"id":42,"user_id":"u1","title":"Hi","message":"m","type":"info","is_read":false,"created_at":"2025-01-02T03:04:05.123456+00:00"}}`

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{name: "trigger payload", payload: validPayload},
		{
			name:    "nullable columns",
			payload: `{"user_id":"u1","notification":{"id":1,"title":null,"message":null,"type":null,"created_at":"2025-01-02T03:04:05Z"}}`,
		},
		{name: "not json", payload: `not json`, wantErr: true},
		{name: "missing user_id", payload: `{"notification":{"id":1,"created_at":"2025-01-02T03:04:05Z"}}`, wantErr: true},
		{name: "empty user_id", payload: `{"user_id":"","notification":{"id":1,"created_at":"2025-01-02T03:04:05Z"}}`, wantErr: true},
		{name: "missing notification", payload: `{"user_id":"u1"}`, wantErr: true},
		{name: "missing id", payload: `{"user_id":"u1","notification":{"created_at":"2025-01-02T03:04:05Z"}}`, wantErr: true},
		{name: "bad created_at", payload: `{"user_id":"u1","notification":{"id":1,"created_at":"yesterday"}}`, wantErr: true},
		{name: "owner mismatch", payload: `{"user_id":"u1","notification":{"id":1,"user_id":"u2","created_at":"2025-01-02T03:04:05Z"}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := DecodeEvent([]byte(tt.payload))
			if tt.wantErr {
				var malformed *MalformedEventError
				assert.ErrorAs(t, err, &malformed)
				assert.Nil(t, event)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "u1", event.UserID)
			assert.Equal(t, "u1", event.Notification.UserID)
		})
	}
}

func TestDecodeEvent_Fields(t *testing.T) {
	event, err := DecodeEvent([]byte(validPayload))
	require.NoError(t, err)

	n := event.Notification
	assert.Equal(t, int64(42), n.ID)
	assert.Equal(t, "Hi", n.Title)
	assert.Equal(t, "m", n.Message)
	assert.Equal(t, "info", n.Type)
	assert.False(t, n.IsRead)
	assert.True(t, n.CreatedAt.Equal(time.Date(2025, 1, 2, 3, 4, 5, 123456000, time.UTC)))
}
