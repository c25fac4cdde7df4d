package server

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/drivelink/realtime/config"
	"github.com/drivelink/realtime/src/auth"
	"github.com/drivelink/realtime/src/dispatch"
	"github.com/drivelink/realtime/src/presence"
	"github.com/drivelink/realtime/src/registry"
	"github.com/drivelink/realtime/src/service"
	"github.com/drivelink/realtime/src/session"
)

func newTestServer() *Server {
	logger := zerolog.Nop()
	cfg := config.DefaultConfig()
	reg := registry.New(logger)
	d := dispatch.New(reg, logger)
	tracker := presence.NewTracker(d, logger)
	svc := service.New(reg, d, tracker, logger)
	sessions := session.NewHandler(auth.NewVerifier(cfg.Secret), reg, tracker, 30*time.Second, logger)
	return New(cfg, svc, sessions, logger)
}

func TestNotifyMessageRequestValidation(t *testing.T) {
	assert.Error(t, validate.Struct(notifyMessageRequest{}))
	assert.Error(t, validate.Struct(notifyMessageRequest{RecipientID: "u1"}))
	assert.NoError(t, validate.Struct(notifyMessageRequest{
		RecipientID: "u1",
		SenderName:  "Alice",
		Data:        map[string]any{"id": "m1"},
	}))
}

func TestNotifyReadRequestValidation(t *testing.T) {
	assert.Error(t, validate.Struct(notifyReadRequest{}))
	assert.Error(t, validate.Struct(notifyReadRequest{SenderID: "u1"}))
	assert.Error(t, validate.Struct(notifyReadRequest{SenderID: "u1", MessageIDs: []string{}}))
	assert.NoError(t, validate.Struct(notifyReadRequest{SenderID: "u1", MessageIDs: []string{"m1"}}))
}

func TestStaleAgeDoublesPingInterval(t *testing.T) {
	s := newTestServer()
	assert.Equal(t, 60*time.Second, s.staleAge())
}
