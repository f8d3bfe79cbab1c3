// Package bench provides shell commands which feed a Bench.
package bench

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/mahendrakumarshinde/iu.go/pkg/cli/sh"
	"github.com/mahendrakumarshinde/iu.go/pkg/producer"
)

func init() {
	sh.AddCmds(
		&FeedCmd,
		&AuthTimeCmd,
		&NTPCmd,
		&CalibCmd,
		&PublishCmd,
		&WindowCmd,
	)
}

// Unescape expands \n, \r, \t and \\ in s.
func Unescape(s string) string {
	return strings.NewReplacer(`\n`, "\n", `\r`, "\r", `\t`, "\t", `\\`, `\`).Replace(s)
}

var (
	// FeedCmd queues bytes on the serial stream.
	FeedCmd = ishell.Cmd{
		Name:    "feed",
		Aliases: []string{"f"},
		Help:    "DATA...",
		Func: func(c *ishell.Context) {
			b := sh.BenchFrom(c)
			before := len(b.Unrouted)
			b.Feed(Unescape(strings.Join(c.Args, " ")))
			for _, f := range b.Unrouted[before:] {
				c.Printf("unrouted %q\n", f.Data)
			}
		},
	}

	// AuthTimeCmd applies authoritative time as a peer would send it.
	AuthTimeCmd = ishell.Cmd{
		Name: "authtime",
		Help: "EPOCH",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("EPOCH expected"))
				return
			}
			b := sh.BenchFrom(c)
			b.Feed("T:" + c.Args[0] + string(b.Framer.Config().StopByte))
		},
	}

	// NTPCmd answers the pending NTP request.
	NTPCmd = ishell.Cmd{
		Name: "ntp",
		Help: "UNIX | garbage",
		Func: func(c *ishell.Context) {
			if len(c.Args) != 1 {
				c.Err(fmt.Errorf("UNIX expected"))
				return
			}
			b := sh.BenchFrom(c)
			if c.Args[0] == "garbage" {
				b.NTP.Inject([]byte("garbage"))
				b.Step()
				return
			}
			unix, err := strconv.ParseInt(c.Args[0], 10, 64)
			if err != nil {
				c.Err(err)
				return
			}
			b.RespondNTP(unix)
		},
	}

	// CalibCmd shows the calibration session.
	CalibCmd = ishell.Cmd{
		Name: "calib",
		Help: "",
		Func: func(c *ishell.Context) {
			b := sh.BenchFrom(c)
			type status struct {
				Received  int   `json:"received"`
				Missing   []int `json:"missing"`
				Completed int   `json:"completed"`
			}
			st := status{
				Received:  b.Calibration.Received(),
				Missing:   b.Calibration.Missing(),
				Completed: len(b.Calibrations),
			}
			sh.Print(c, st, fmt.Sprintf("received %d, missing %v, completed %d",
				st.Received, st.Missing, st.Completed))
		},
	}

	// PublishCmd publishes a value from the battery producer.
	PublishCmd = ishell.Cmd{
		Name:    "publish",
		Aliases: []string{"p"},
		Help:    "VALUE [raw|derived]",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("VALUE expected"))
				return
			}
			v, err := strconv.ParseFloat(c.Args[0], 64)
			if err != nil {
				c.Err(err)
				return
			}
			opt := producer.SendDefault
			if len(c.Args) > 1 {
				switch c.Args[1] {
				case "raw":
					opt = producer.SendRaw
				case "derived":
					opt = producer.SendDerived
				default:
					c.Err(fmt.Errorf("unknown selector %q", c.Args[1]))
					return
				}
			}
			n := sh.BenchFrom(c).Battery.Publish(v, opt)
			sh.Print(c, n, fmt.Sprintf("delivered to %d receivers", n))
		},
	}

	// WindowCmd shows the feature window.
	WindowCmd = ishell.Cmd{
		Name:    "window",
		Aliases: []string{"w"},
		Help:    "",
		Func: func(c *ishell.Context) {
			w := sh.BenchFrom(c).Window
			type slot struct {
				Len  int     `json:"len"`
				Mean float64 `json:"mean"`
				RMS  float64 `json:"rms"`
			}
			slots := make([]slot, w.Slots())
			var text strings.Builder
			for i := range slots {
				slots[i] = slot{Len: w.Len(i), Mean: w.Mean(i), RMS: w.RMS(i)}
				fmt.Fprintf(&text, "slot %d: n=%d mean=%g rms=%g\n", i, slots[i].Len, slots[i].Mean, slots[i].RMS)
			}
			sh.Print(c, slots, strings.TrimSuffix(text.String(), "\n"))
		},
	}
)
