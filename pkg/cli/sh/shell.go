package sh

import (
	"encoding/json"
	"flag"
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/mahendrakumarshinde/iu.go/pkg/calibration"
	"github.com/mahendrakumarshinde/iu.go/pkg/config"
	"github.com/mahendrakumarshinde/iu.go/pkg/l0/comm"
	"github.com/mahendrakumarshinde/iu.go/pkg/ticks"
	"github.com/mahendrakumarshinde/iu.go/pkg/timesync"
)

// Shell provides ishell backed interactive shell over a Bench.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell  *ishell.Shell
	Config *config.Config
	Bench  *Bench
}

const (
	shellKey = "$shell"
	prompt   = "iu > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&StepCmd,
		&AdvanceCmd,
		&TimeCmd,
		&StatsCmd,
		&ResetCmd,
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
		Bench:  NewBench(conf),
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// BenchFrom gets the Bench from ishell context.
func BenchFrom(c *ishell.Context) *Bench {
	return ShellFrom(c).Bench
}

// Print prints v as JSON in JSON mode, otherwise text.
func Print(c *ishell.Context, v interface{}, text string) {
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

// ArgMillis parses c.Args[n] as milliseconds.
func ArgMillis(c *ishell.Context, n int) (ticks.Millis, error) {
	if n >= len(c.Args) {
		return 0, fmt.Errorf("argument %d expected", n+1)
	}
	v, err := strconv.ParseUint(c.Args[n], 10, 32)
	if err != nil {
		return 0, err
	}
	return ticks.Millis(v), nil
}

// Stats aggregates the counters of a Bench.
type Stats struct {
	Serial      comm.FramerStats  `json:"serial"`
	Time        timesync.Stats    `json:"time"`
	Calibration calibration.Stats `json:"calibration"`
	Deliveries  uint64            `json:"deliveries"`
	Iterations  uint64            `json:"iterations"`
}

// Reset replaces the bench with a fresh one.
func (s *Shell) Reset() {
	s.Bench = NewBench(s.Config)
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			glog.Exit(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	glog.Exit("command expected")
}

var (
	// StepCmd runs one loop iteration.
	StepCmd = ishell.Cmd{
		Name:    "step",
		Aliases: []string{"s"},
		Help:    "[COUNT]",
		Func: func(c *ishell.Context) {
			n := 1
			if len(c.Args) > 0 {
				v, err := strconv.Atoi(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				n = v
			}
			b := BenchFrom(c)
			for i := 0; i < n; i++ {
				b.Step()
			}
		},
	}

	// AdvanceCmd moves the clock and runs one iteration.
	AdvanceCmd = ishell.Cmd{
		Name:    "advance",
		Aliases: []string{"a"},
		Help:    "MILLIS",
		Func: func(c *ishell.Context) {
			ms, err := ArgMillis(c, 0)
			if err != nil {
				c.Err(err)
				return
			}
			now := BenchFrom(c).Advance(ms)
			Print(c, now, fmt.Sprintf("tick %d", now))
		},
	}

	// TimeCmd shows the time helper.
	TimeCmd = ishell.Cmd{
		Name:    "time",
		Aliases: []string{"t"},
		Help:    "",
		Func: func(c *ishell.Context) {
			st := BenchFrom(c).TimeStatus()
			Print(c, st, fmt.Sprintf("now %d (tick %d, source %s, %s, %d requests)",
				st.Now, st.Tick, st.Source, st.State, st.Requests))
		},
	}

	// StatsCmd shows the counters.
	StatsCmd = ishell.Cmd{
		Name: "stats",
		Help: "",
		Func: func(c *ishell.Context) {
			b := BenchFrom(c)
			st := Stats{
				Serial:      b.Framer.Stats(),
				Time:        b.Time.Stats(),
				Calibration: b.Calibration.Stats(),
				Deliveries:  b.Battery.Deliveries(),
				Iterations:  b.Loop.Iterations(),
			}
			Print(c, st, fmt.Sprintf("%+v", st))
		},
	}

	// ResetCmd starts over with a fresh bench.
	ResetCmd = ishell.Cmd{
		Name: "reset",
		Help: "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Reset()
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(config.NewConfig().MustValidate()).Run(flag.Args()...)
}
