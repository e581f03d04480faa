package consumer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONEventParser_Parse(t *testing.T) {
	parser := &JSONEventParser{newID: func() string { return "generated-id" }}

	body := `{
		"orgId": "org1",
		"projectId": "proj1",
		"userId": "u1",
		"eventName": "purchase",
		"timestamp": "2024-03-01T10:00:00+02:00",
		"properties": {"amount": 129.99, "currency": "USD"},
		"receivedAt": "2024-03-01T08:00:05Z"
	}`

	event, err := parser.Parse([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, "generated-id", event.EventID)
	assert.Equal(t, "org1", event.OrgID)
	assert.Equal(t, "purchase", event.EventName)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), event.Timestamp)
	assert.Equal(t, time.UTC, event.Timestamp.Location())
	assert.Equal(t, 129.99, event.Properties["amount"])
}

func TestJSONEventParser_AssignsUniqueIDs(t *testing.T) {
	parser := NewJSONEventParser()
	body := []byte(`{"orgId":"o","projectId":"p","userId":"u","eventName":"e","timestamp":"2024-01-01T00:00:00Z"}`)

	first, err := parser.Parse(body)
	require.NoError(t, err)
	second, err := parser.Parse(body)
	require.NoError(t, err)

	assert.NotEmpty(t, first.EventID)
	assert.NotEqual(t, first.EventID, second.EventID)
	assert.NotNil(t, first.Properties)
}

func TestJSONEventParser_Malformed(t *testing.T) {
	parser := NewJSONEventParser()

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{invalid}`},
		{"missing tenant", `{"userId":"u","eventName":"e","timestamp":"2024-01-01T00:00:00Z"}`},
		{"missing user", `{"orgId":"o","projectId":"p","eventName":"e","timestamp":"2024-01-01T00:00:00Z"}`},
		{"missing event name", `{"orgId":"o","projectId":"p","userId":"u","timestamp":"2024-01-01T00:00:00Z"}`},
		{"missing timestamp", `{"orgId":"o","projectId":"p","userId":"u","eventName":"e"}`},
		{"bad timestamp", `{"orgId":"o","projectId":"p","userId":"u","eventName":"e","timestamp":"yesterday"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := parser.Parse([]byte(tt.body))
			assert.Nil(t, event)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}
