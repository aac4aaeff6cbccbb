package link

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProfiles(t *testing.T) {
	require.Equal(t, []string{"opus16k", "opus16k-pcm16k", "pcm16k"}, ProfileNames())
	testCases := []struct {
		name        string
		playback    int
		capture     int
		outputReady int
	}{
		{"pcm16k", 8960, 7680, 5120},
		{"opus16k", 1120, 600, 400},
		{"opus16k-pcm16k", 8960, 600, 400},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, ok := ProfileByName(tc.name)
			require.True(t, ok)
			require.Equal(t, tc.name, p.Name)
			require.Equal(t, tc.playback, p.PlaybackSize())
			require.Equal(t, tc.capture, p.CaptureSize())
			require.Equal(t, tc.outputReady, p.OutputReady())
		})
	}
	_, ok := ProfileByName("pcm8k")
	require.False(t, ok)
}
