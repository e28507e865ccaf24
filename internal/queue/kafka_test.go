package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heliotelligence/internal/domain"
)

func TestNewProducer_NilWithoutBrokers(t *testing.T) {
	assert.Nil(t, NewProducer(nil, "performance-alerts"))
	assert.Nil(t, NewProducer([]string{}, "performance-alerts"))
}

func TestNilProducer_DropsEventsQuietly(t *testing.T) {
	var p *Producer

	err := p.PublishAlertEvent(context.Background(), EventCreated, domain.PerformanceAlert{FarmID: 1})
	assert.NoError(t, err)
	assert.NoError(t, p.Close())
}

func TestAlertEvent_Encoding(t *testing.T) {
	alert := domain.PerformanceAlert{
		ID:               "9d1e0a7c-0002-4b5d-8e1f-2a3b4c5d6e7f",
		FarmID:           12,
		AlertType:        "severe_underperformance",
		Severity:         "critical",
		DetectedAt:       time.Date(2026, 3, 14, 11, 30, 0, 0, time.UTC),
		ExpectedPowerKW:  200,
		ActualPowerKW:    90,
		PerformanceRatio: 0.45,
		DeviationPercent: -55,
		Message:          "Critical underperformance detected: -55.0% below expected",
	}

	raw, err := json.Marshal(AlertEvent{Event: EventCreated, Alert: alert})
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "created", decoded["event"])

	payload, ok := decoded["alert"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "critical", payload["severity"])
	assert.Equal(t, float64(12), payload["farm_id"])
}
