package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel(" WARNING "))
	assert.Equal(t, ERROR, ParseLevel("error"))
	assert.Equal(t, INFO, ParseLevel("verbose"))
	assert.Equal(t, INFO, ParseLevel(""))
}

func TestLogger_Infow(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(INFO, &buf)

	log.Infow("Stripe customer created", "stripeCustomerID", "cus_123")
	require.NoError(t, log.Sync())

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Stripe customer created", entry["message"])
	assert.Equal(t, "cus_123", entry["stripeCustomerID"])
	assert.Equal(t, "info", entry["level"])
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(WARN, &buf)

	log.Debugw("hidden")
	log.Infof("hidden %d", 1)
	require.NoError(t, log.Sync())
	assert.Zero(t, buf.Len())

	log.Warnf("shown %s", "now")
	require.NoError(t, log.Sync())
	assert.Contains(t, buf.String(), "shown now")
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput(DEBUG, &buf).With("component", "stripe")

	log.Debugw("request")
	require.NoError(t, log.Sync())
	assert.Contains(t, buf.String(), `"component":"stripe"`)
}
