// Package link implements the host side of the serial link to the
// audio coprocessor.
package link

// The link carries checksummed frames in both directions:
//
//	marker(1) | length(2, big-endian) | command(2, big-endian) | payload | checksum(1)
//
// The checksum is the modulo-256 sum of every byte before it. There is
// no acknowledgment or retransmission: corrupted frames are dropped and
// the parser resynchronizes on the next marker byte. The link favors a
// flowing audio stream over strict delivery.
//
// Device: audio coprocessor (capture, playback, wake-word, volume)
// Host: this package
