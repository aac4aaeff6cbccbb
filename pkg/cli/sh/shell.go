package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/voicelink/pkg/config"
	"github.com/robotalks/voicelink/pkg/fx"
	"github.com/robotalks/voicelink/pkg/link"
	"github.com/robotalks/voicelink/pkg/transport/serial"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoOpen    bool

	Shell  *ishell.Shell
	Config *config.Config
	Link   *EngineLoop
}

// EngineLoop is a running engine over an opened transport.
type EngineLoop struct {
	Name   string
	Engine *link.Engine
	Runner *fx.Runner
}

const (
	shellKey       = "$shell"
	unopenedPrompt = "[none] > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&OpenCmd,
		&CloseCmd,
		&StatsCmd,
		&ProfilesCmd,
		&PortsCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *config.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unopenedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// EngineFrom gets the running engine from ishell context.
func EngineFrom(c *ishell.Context) *link.Engine {
	return ShellFrom(c).Link.Engine
}

// MustBeOpen wraps command func requires a running engine.
func MustBeOpen(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Link == nil {
			c.Err(fmt.Errorf("link not open"))
			return
		}
		fn(c)
	}
}

// PrintResult prints v as JSON when -json is set, or as text.
func PrintResult(c *ishell.Context, v interface{}, text string) {
	if ShellFrom(c).OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(text)
}

// WithAutoOpen sets AutoOpen.
func (s *Shell) WithAutoOpen(en bool) *Shell {
	s.AutoOpen = en
	return s
}

// Open opens the configured transport and starts the engine, closing
// the running one first.
func (s *Shell) Open() error {
	s.Close()
	e, t, err := s.Config.NewEngine()
	if err != nil {
		return err
	}
	name := s.Config.Port
	if s.Config.WebsocketURL != "" {
		name = s.Config.WebsocketURL
	}
	e.OnWakePhrase(func(phrase string) {
		s.Shell.Printf("wake: %s\n", phrase)
	})
	loop := &EngineLoop{Name: name, Engine: e, Runner: fx.NewRunner()}
	loop.Runner.Go(fx.NamedRun("engine", fx.RunFunc(func(ctx context.Context) error {
		return fx.RunWithContextCloser(ctx, t, func() error {
			return e.Run(ctx)
		})
	})))
	s.Link = loop
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", name))
	return nil
}

// Close stops the running engine.
func (s *Shell) Close() {
	if s.Link != nil {
		s.Link.Runner.Stop()
		if err := s.Link.Runner.Wait(); err != nil {
			s.Shell.Printf("engine stopped: %v\n", err)
		}
		s.Link = nil
		s.Shell.SetPrompt(unopenedPrompt)
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoOpen {
		if err := s.Open(); err != nil {
			log.Fatalf("open link failed: %v", err)
		}
		defer s.Close()
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// FormatStats renders engine counters for display.
func FormatStats(st link.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "playback %d/%d capture %d/%d volume %d%% input %v output %v\n",
		st.PlaybackUsed, st.PlaybackCap, st.CaptureUsed, st.CaptureCap, st.Volume, st.Input, st.Output)
	fmt.Fprintf(&b, "rx %d bytes, %d frames, %d overflows, %d dropped, %d bad checksum\n",
		st.Receiver.Bytes, st.Parser.Frames, st.Receiver.Overflows, st.Parser.DroppedBytes, st.Parser.ChecksumErrors)
	fmt.Fprintf(&b, "capture %d bytes, %d gated, %d dropped; control %d, wake %d, unknown %d\n",
		st.Dispatcher.CaptureBytes, st.Dispatcher.CaptureGated, st.Dispatcher.CaptureDropped,
		st.Dispatcher.ControlFrames, st.Dispatcher.WakeEvents, st.Dispatcher.UnknownFrames)
	fmt.Fprintf(&b, "tx %d chunks, %d underruns, %d errors",
		st.Scheduler.ChunksSent, st.Scheduler.Underruns, st.Scheduler.SendErrors)
	return b.String()
}

var (
	// OpenCmd opens the link.
	OpenCmd = ishell.Cmd{
		Name:    "open",
		Aliases: []string{"o"},
		Help:    "[PORT|WS_URL]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			if len(c.Args) > 0 {
				if strings.HasPrefix(c.Args[0], "ws://") || strings.HasPrefix(c.Args[0], "wss://") {
					s.Config.WebsocketURL = c.Args[0]
				} else {
					s.Config.Port, s.Config.WebsocketURL = c.Args[0], ""
				}
			}
			if err := s.Open(); err != nil {
				c.Err(err)
			}
		},
	}

	// CloseCmd closes the link.
	CloseCmd = ishell.Cmd{
		Name: "close",
		Help: "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Close()
		},
	}

	// StatsCmd prints engine counters.
	StatsCmd = ishell.Cmd{
		Name:    "stats",
		Aliases: []string{"st"},
		Help:    "",
		Func: MustBeOpen(func(c *ishell.Context) {
			st := EngineFrom(c).Stats()
			PrintResult(c, st, FormatStats(st))
		}),
	}

	// ProfilesCmd lists audio profiles.
	ProfilesCmd = ishell.Cmd{
		Name: "profiles",
		Help: "",
		Func: func(c *ishell.Context) {
			names := link.ProfileNames()
			PrintResult(c, names, strings.Join(names, "\n"))
		},
	}

	// PortsCmd lists serial ports.
	PortsCmd = ishell.Cmd{
		Name: "ports",
		Help: "",
		Func: func(c *ishell.Context) {
			ports, err := serial.Ports()
			if err != nil {
				c.Err(err)
				return
			}
			if ports == nil {
				ports = []string{}
			}
			PrintResult(c, ports, strings.Join(ports, "\n"))
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(config.NewConfig()).WithAutoOpen(true).Run(flag.Args()...)
}
