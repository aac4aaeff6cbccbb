package link

import (
	"sort"
	"time"
)

// Profile describes the audio framing agreed with the device firmware.
type Profile struct {
	Name       string
	SampleRate int
	// RecvChunk is the size of one captured audio frame in bytes.
	RecvChunk int
	// SendChunk is the size of one playback frame in bytes.
	SendChunk int
	// SendInterval is the playback frame cadence.
	SendInterval time.Duration
	// InputReady is the captured byte count worth notifying a reader.
	InputReady int
}

// Firmware profiles.
var (
	// ProfilePCM16K exchanges raw 16kHz 16-bit mono PCM both ways.
	ProfilePCM16K = Profile{
		Name:         "pcm16k",
		SampleRate:   16000,
		RecvChunk:    512,
		SendChunk:    320,
		SendInterval: 10 * time.Millisecond,
		InputReady:   2 * 960,
	}
	// ProfileOpus16K20ms exchanges 20ms Opus packets both ways.
	ProfileOpus16K20ms = Profile{
		Name:         "opus16k",
		SampleRate:   16000,
		RecvChunk:    40,
		SendChunk:    40,
		SendInterval: 20 * time.Millisecond,
		InputReady:   40,
	}
	// ProfileOpus16KPCM16K captures Opus and plays raw PCM.
	ProfileOpus16KPCM16K = Profile{
		Name:         "opus16k-pcm16k",
		SampleRate:   16000,
		RecvChunk:    40,
		SendChunk:    320,
		SendInterval: 10 * time.Millisecond,
		InputReady:   40,
	}
)

var profiles = map[string]Profile{
	ProfilePCM16K.Name:        ProfilePCM16K,
	ProfileOpus16K20ms.Name:   ProfileOpus16K20ms,
	ProfileOpus16KPCM16K.Name: ProfileOpus16KPCM16K,
}

// ProfileByName looks up a firmware profile.
func ProfileByName(name string) (Profile, bool) {
	p, ok := profiles[name]
	return p, ok
}

// ProfileNames lists known profile names.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PlaybackSize is the default playback buffer capacity.
func (p Profile) PlaybackSize() int {
	return p.SendChunk * 28
}

// CaptureSize is the default capture buffer capacity.
func (p Profile) CaptureSize() int {
	return p.RecvChunk * 15
}

// OutputReady is the free playback space worth notifying a writer.
func (p Profile) OutputReady() int {
	return p.RecvChunk * 10
}
