package security

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestGetSeverity(t *testing.T) {
	assert.Equal(t, SeverityCRITICAL, GetSeverity(EventMalwareDetected))
	assert.Equal(t, SeverityINFO, GetSeverity(EventStaffAccess))
	assert.Equal(t, SeverityMEDIUM, GetSeverity(EventType("something_new")))
	assert.True(t, IsHighOrAbove(EventUnauthorizedAccess))
	assert.False(t, IsHighOrAbove(EventRateLimitTriggered))
}

func TestSecurityLoggerLevelsAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sl := NewSecurityLogger(zap.New(core), "profile-backend", "test")

	sl.Log(context.Background(), SecurityEvent{
		Event:        EventUnauthorizedAccess,
		SubjectType:  "user_id",
		SubjectValue: "42",
		IP:           "10.0.0.1",
		RequestID:    "req-1",
		Details:      map[string]interface{}{"profile_id": 7},
	})
	sl.Log(context.Background(), SecurityEvent{Event: EventStaffAccess})

	entries := logs.All()
	require.Len(t, entries, 2)

	denied := entries[0]
	assert.Equal(t, zapcore.ErrorLevel, denied.Level)
	assert.Equal(t, "unauthorized_access", denied.Message)
	fields := denied.ContextMap()
	assert.Equal(t, "HIGH", fields["severity"])
	assert.Equal(t, "10.0.0.1", fields["ip"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, `{"profile_id":7}`, fields["details"])

	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "j***@example.com", MaskEmail("jane@example.com"))
	assert.Equal(t, "***", MaskEmail("ab"))
	assert.Len(t, HashValue("user"), 16)
}
