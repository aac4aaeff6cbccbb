package sh

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/voicelink/pkg/link"
)

func TestFormatStats(t *testing.T) {
	var st link.Stats
	st.PlaybackUsed, st.PlaybackCap = 320, 8960
	st.Volume, st.Output = 80, true
	st.Parser.Frames = 12
	st.Scheduler.ChunksSent = 7
	out := FormatStats(st)
	require.Contains(t, out, "playback 320/8960")
	require.Contains(t, out, "volume 80%")
	require.Contains(t, out, "12 frames")
	require.Contains(t, out, "tx 7 chunks")
}
