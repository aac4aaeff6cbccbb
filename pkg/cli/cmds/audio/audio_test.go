package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTone(t *testing.T) {
	samples := Tone(1000, 10, 16000, 0.5)
	require.Len(t, samples, 160)
	require.Zero(t, samples[0])
	// a quarter period of 1kHz at 16kHz is 4 samples.
	require.InDelta(t, 0.5*math.MaxInt16, float64(samples[4]), 1)
	require.InDelta(t, -0.5*math.MaxInt16, float64(samples[12]), 1)
	for _, s := range samples {
		require.LessOrEqual(t, math.Abs(float64(s)), 0.5*math.MaxInt16+1)
	}
	require.Empty(t, Tone(440, 0, 16000, 1))
}

func TestParseSwitch(t *testing.T) {
	testCases := []struct {
		arg string
		on  bool
		ok  bool
	}{
		{"on", true, true},
		{"OFF", false, true},
		{"1", true, true},
		{"disable", false, true},
		{"maybe", false, false},
	}
	for _, tc := range testCases {
		on, err := parseSwitch(tc.arg)
		if !tc.ok {
			require.Error(t, err)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tc.on, on)
	}
}

func TestParseCapture(t *testing.T) {
	testCases := []struct {
		args   []string
		action string
		n      int
		ok     bool
	}{
		{nil, "peek", 32, true},
		{[]string{"peek"}, "peek", 32, true},
		{[]string{"peek", "8"}, "peek", 8, true},
		{[]string{"drop"}, "drop", 0, true},
		{[]string{"peek", "0"}, "", 0, false},
		{[]string{"peek", "x"}, "", 0, false},
		{[]string{"flush"}, "", 0, false},
	}
	for _, tc := range testCases {
		action, n, err := parseCapture(tc.args)
		if !tc.ok {
			require.Error(t, err, "%v", tc.args)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tc.action, action)
		require.Equal(t, tc.n, n)
	}
}
