package main

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/sincluster/pkg/dsp/buffer"
	"github.com/justyntemme/sincluster/pkg/framework/voice"
)

func TestParseFlags(t *testing.T) {
	o, err := parseFlags(nil, io.Discard)
	require.NoError(t, err)
	assert.Empty(t, o.port)
	assert.Equal(t, buffer.DefaultLatency, o.latency)
	assert.Equal(t, voice.StealOldest, o.config.StealPolicy)

	o, err = parseFlags([]string{"-port", "keystation", "-latency", "20ms", "-steal", "lowest", "-set", "Release=1 s"}, io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "keystation", o.port)
	assert.Equal(t, 20*time.Millisecond, o.latency)
	assert.Equal(t, voice.StealLowest, o.config.StealPolicy)
	assert.Equal(t, settings{"Release=1 s"}, o.settings)
}

func TestParseFlagsErrors(t *testing.T) {
	for name, args := range map[string][]string{
		"Latency":  {"-latency", "0s"},
		"Voices":   {"-voices", "0"},
		"Envelope": {"-envelope", "x"},
		"Extra":    {"now"},
		"Setting":  {"-set", "Release"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := parseFlags(args, io.Discard)
			assert.Error(t, err)
		})
	}
}
