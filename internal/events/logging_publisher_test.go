package events

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggingPublisher_Publish(t *testing.T) {
	var buf bytes.Buffer
	p := NewLoggingPublisher(zerolog.New(&buf))

	cat := "c1"
	err := p.Publish(context.Background(), TypeCommissionCorrected, "sale-1", CommissionCorrected{
		RunID:        "run",
		CommissionID: "com-1",
		SaleID:       "sale-1",
		CategoryID:   &cat,
		OldAmount:    decimal.RequireFromString("5.00"),
		NewAmount:    decimal.RequireFromString("6.20"),
		Currency:     "USD",
		Method:       "direct",
	})
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, TypeCommissionCorrected, line["event_type"])
	assert.Equal(t, "sale-1", line["key"])

	payload, ok := line["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "6.2", payload["new_amount"])
	assert.Equal(t, "c1", payload["category_id"])

	assert.NoError(t, p.Close())
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	_, err := NewKafkaPublisher(nil, "commissions")
	assert.Error(t, err)

	_, err = NewKafkaPublisher([]string{"localhost:9092"}, "")
	assert.Error(t, err)

	p, err := NewKafkaPublisher([]string{"localhost:9092"}, "commissions")
	require.NoError(t, err)
	assert.NoError(t, p.Close())
}

func TestEventTypes(t *testing.T) {
	assert.Equal(t, "commission.created", TypeCommissionCreated)
	assert.Equal(t, "commission.corrected", TypeCommissionCorrected)
	assert.Equal(t, "commissions.deleted", TypeCommissionsDeleted, "bulk deletions are one plural event")
}
