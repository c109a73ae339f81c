package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"user-service/internal/config"
	"user-service/internal/email"
)

func TestNewSender_FallsBackToDisabled(t *testing.T) {
	ctx := context.Background()

	t.Run("no host", func(t *testing.T) {
		sender := newSender(&config.Config{}, zap.NewNop())
		require.NotNil(t, sender)
		assert.ErrorIs(t, sender.SendVerificationToken(ctx, "a@b.c", "tok", time.Time{}), email.ErrDisabled)
	})

	t.Run("init failure", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		sender := newSender(&config.Config{SMTPHost: "smtp.example.com"}, zap.New(core))
		require.NotNil(t, sender)
		assert.ErrorIs(t, sender.SendVerificationToken(ctx, "a@b.c", "tok", time.Time{}), email.ErrDisabled)
		assert.Equal(t, 1, logs.FilterMessage("smtp sender init failed").Len())
	})
}

func TestRun_MemoryBackend(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	cfg := &config.Config{
		StorageBackend:  config.BackendMemory,
		TokenRateWindow: time.Minute,
		TokenRateMax:    3,
	}

	require.NoError(t, run(context.Background(), cfg, zap.New(core), "demo", "demo@example.com"))
	assert.Equal(t, 1, logs.FilterMessage("user registered").Len())
	assert.Equal(t, 1, logs.FilterMessage("verification token attached").Len())
	assert.Equal(t, 1, logs.FilterMessage("verification token stored but not mailed").Len())
}
