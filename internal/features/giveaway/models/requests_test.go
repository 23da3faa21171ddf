package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "discord-giveaway-bot/internal/common/errors"
)

func TestDurationFromSeconds(t *testing.T) {
	d, err := DurationFromSeconds(90)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	d, err = DurationFromSeconds(maxDurationSeconds)
	require.NoError(t, err)
	assert.Positive(t, d)

	for _, secs := range []int64{0, -1, maxDurationSeconds + 1, 18446744075} {
		_, err := DurationFromSeconds(secs)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeConfiguration), "secs=%d", secs)
	}
}

func TestStartRequest_ValidateLargeDuration(t *testing.T) {
	d, err := DurationFromSeconds(int64((720*time.Hour)/time.Second) + 1)
	require.NoError(t, err)
	req := StartRequest{GuildID: "g", ChannelID: "c", Duration: d, WinnersCount: 1, Prize: "Nitro"}
	err = req.Validate(720*time.Hour, 25)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeConfiguration))
}
