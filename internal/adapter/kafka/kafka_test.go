package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/wildfire-telemetry-service/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	recordedAt := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	rec := domain.HistoryRecord{
		ZoneID:        "z1",
		NodeID:        "n1",
		Timestamp:     1700000000,
		TempC:         35,
		HumPct:        20,
		MQ2:           450,
		MQ135:         100,
		SoundDB:       60,
		FireRiskIndex: 62,
		RecordedAt:    recordedAt,
	}

	msg, err := serializeToMessage(rec)
	require.NoError(t, err)

	assert.Equal(t, []byte("z1/n1"), msg.Key)
	assert.Contains(t, string(msg.Value), `"fireRiskIndex":62`)
	assert.Contains(t, string(msg.Value), `"temp_c":35`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "fire_risk_index", msg.Headers[0].Key)
	assert.Equal(t, []byte("62"), msg.Headers[0].Value)
	assert.Equal(t, "recorded_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(recordedAt.Format(time.RFC3339)), msg.Headers[1].Value)
}
