package audio

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/voicelink/pkg/cli/sh"
)

func parseSwitch(arg string) (bool, error) {
	switch strings.ToLower(arg) {
	case "on", "1", "true", "enable":
		return true, nil
	case "off", "0", "false", "disable":
		return false, nil
	}
	return false, fmt.Errorf("expect on or off, got %q", arg)
}

func switchCmd(name string, get func(*ishell.Context) bool, set func(*ishell.Context, bool)) ishell.Cmd {
	return ishell.Cmd{
		Name: name,
		Help: "[on|off]",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			if len(c.Args) > 0 {
				on, err := parseSwitch(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				set(c, on)
			}
			on := get(c)
			sh.PrintResult(c, on, fmt.Sprintf("%s %v", name, on))
		}),
	}
}

// parseCapture returns the capture action and the peek length.
func parseCapture(args []string) (string, int, error) {
	if len(args) == 0 {
		return "peek", 32, nil
	}
	switch args[0] {
	case "peek":
		n := 32
		if len(args) > 1 {
			v, err := strconv.Atoi(args[1])
			if err != nil || v <= 0 {
				return "", 0, fmt.Errorf("invalid length %q", args[1])
			}
			n = v
		}
		return "peek", n, nil
	case "drop":
		return "drop", 0, nil
	}
	return "", 0, fmt.Errorf("unknown capture action %q", args[0])
}

var (
	// VolumeCmd reads or sets the volume.
	VolumeCmd = ishell.Cmd{
		Name:    "volume",
		Aliases: []string{"vol"},
		Help:    "[PERCENT]",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			e := sh.EngineFrom(c)
			if len(c.Args) > 0 {
				percent, err := strconv.Atoi(c.Args[0])
				if err != nil {
					c.Err(fmt.Errorf("invalid volume: %v", err))
					return
				}
				if err := e.SetVolume(percent); err != nil {
					c.Err(err)
					return
				}
			}
			sh.PrintResult(c, e.Volume(), fmt.Sprintf("volume %d%%", e.Volume()))
		}),
	}

	// ControlCmd sends control text to the device.
	ControlCmd = ishell.Cmd{
		Name:    "control",
		Aliases: []string{"ctl"},
		Help:    "TEXT",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(fmt.Errorf("control text required"))
				return
			}
			if err := sh.EngineFrom(c).SendControl([]byte(strings.Join(c.Args, " "))); err != nil {
				c.Err(err)
			}
		}),
	}

	// InputCmd enables or disables capture reading.
	InputCmd = switchCmd("input",
		func(c *ishell.Context) bool { return sh.EngineFrom(c).InputEnabled() },
		func(c *ishell.Context, on bool) { sh.EngineFrom(c).EnableInput(on) })

	// OutputCmd enables or disables playback.
	OutputCmd = switchCmd("output",
		func(c *ishell.Context) bool { return sh.EngineFrom(c).OutputEnabled() },
		func(c *ishell.Context, on bool) { sh.EngineFrom(c).EnableOutput(on) })

	// CaptureCmd inspects or discards buffered capture audio.
	CaptureCmd = ishell.Cmd{
		Name: "capture",
		Help: "[peek [N]|drop]",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			action, n, err := parseCapture(c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			e := sh.EngineFrom(c)
			if action == "drop" {
				dropped := e.DropCapture()
				sh.PrintResult(c, dropped, fmt.Sprintf("dropped %d bytes", dropped))
				return
			}
			b := e.PeekCapture(n)
			sh.PrintResult(c, b, fmt.Sprintf("%d/%d bytes: %s", len(b), e.Capture.Used(), hex.EncodeToString(b)))
		}),
	}

	// ToneCmd plays a sine tone.
	ToneCmd = ishell.Cmd{
		Name: "tone",
		Help: "[HZ] [MS]",
		Func: sh.MustBeOpen(func(c *ishell.Context) {
			hz, ms := 440, 1000
			var err error
			if len(c.Args) > 0 {
				if hz, err = strconv.Atoi(c.Args[0]); err != nil || hz <= 0 {
					c.Err(fmt.Errorf("invalid frequency %q", c.Args[0]))
					return
				}
			}
			if len(c.Args) > 1 {
				if ms, err = strconv.Atoi(c.Args[1]); err != nil || ms <= 0 {
					c.Err(fmt.Errorf("invalid duration %q", c.Args[1]))
					return
				}
			}
			e := sh.EngineFrom(c)
			samples := Tone(hz, ms, e.Options().Profile.SampleRate, 0.5)
			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(ms)*time.Millisecond+time.Second)
			defer cancel()
			if _, err := e.Write(ctx, samples); err != nil {
				c.Err(err)
			}
		}),
	}
)

func init() {
	sh.AddCmds(
		&VolumeCmd,
		&ControlCmd,
		&InputCmd,
		&OutputCmd,
		&CaptureCmd,
		&ToneCmd,
	)
}
