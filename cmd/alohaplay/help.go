package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"
)

// Populated via -ldflags="-X ...".
var GitRevisionId string

var (
	flagConfig     string
	flagUserClock  bool
	flagStart      time.Duration
	flagDuration   time.Duration
	flagRate       float64
	flagCompressed []int
	flagDeselect   []int
	flagDedicated  bool
	flagListen     string
	flagLogLevel   string
	flagNoColor    bool
	flagQuiet      bool
	flagHelp       bool
	flagVersion    bool
)

func init() {
	flag.StringVarP(&flagConfig, "config", "c", "", "Reader configuration file")
	flag.BoolVarP(&flagUserClock, "user-clock", "u", false, "Deliver as fast as possible")
	flag.DurationVarP(&flagStart, "start", "s", 0, "Start position")
	flag.DurationVarP(&flagDuration, "duration", "d", 0, "Play duration")
	flag.Float64VarP(&flagRate, "rate", "r", 1, "Playback rate")
	flag.IntSliceVar(&flagCompressed, "compressed", nil, "Streams to receive compressed")
	flag.IntSliceVar(&flagDeselect, "deselect", nil, "Streams to skip")
	flag.BoolVar(&flagDedicated, "dedicated", false, "Deliver each output on its own goroutine")
	flag.StringVarP(&flagListen, "listen", "l", "", "Serve events over websocket")
	flag.StringVar(&flagLogLevel, "loglevel", "", "Log levels")
	flag.BoolVar(&flagNoColor, "no-color", false, "Disable colors")
	flag.BoolVarP(&flagQuiet, "quiet", "q", false, "Don't print samples")

	flag.BoolVarP(&flagHelp, "help", "h", false, "Print usage information and exit")
	flag.BoolVarP(&flagVersion, "version", "v", false, "Print version information and exit")
}

const helpString = `Play media files through the asynchronous reader

Usage: alohaplay [OPTION]... FILE

FILE is a path with a known extension (.mp4, .m4a, .mov, .ts, .flv) or a
FORMAT:PATH pair, e.g. synth:audio,count=50;video,count=25

Playback:
  -s, --start=DURATION    Start position (default: 0s)
  -d, --duration=DURATION Play duration, 0 to the end (default: 0s)
  -r, --rate=NUM          Playback rate (default: 1)
  -u, --user-clock        Drive the clock from here, delivering as fast as
                          possible instead of in real time

Streams and outputs:
  -c, --config=FILE       Reader configuration, JSON or YAML
      --compressed=LIST   Receive these streams compressed, e.g. 1,2
      --deselect=LIST     Don't deliver these streams
      --dedicated         Deliver every output on its own goroutine

Monitoring:
  -l, --listen=ADDR       Serve events at ws://ADDR/events
  -q, --quiet             Don't print samples
      --loglevel=LEVELS   Log levels, e.g. debug or info,reader=trace
      --no-color          Disable colors

Miscellaneous:
  -h, --help              Prints this help message and exits
  -v, --version           Prints version information and exits

Please report bugs to: aloha@lanikailabs.com`

// Help information is printed and program exits
func help() {
	r := color.New(color.FgRed)
	y := color.New(color.FgYellow)
	b := color.New(color.FgCyan)

	//         _         _                   _
	//   __ _ | |  ___  | |__    __ _  _ __ | |  __ _  _   _
	//  / _` || | / _ \ | '_ \  / _` || '_ \| | / _` || | | |
	// | (_| || || (_) || | | || (_| || |_) | || (_| || |_| |
	//  \__,_||_| \___/ |_| |_| \__,_|| .__/|_| \__,_| \__, |
	//                                |_|              |___/

	r.Printf("        ")
	y.Printf(" _ ")
	b.Printf("       ")
	y.Printf(" _     ")
	r.Printf("       ")
	b.Printf("      ")
	y.Println(" _ ")

	r.Printf("   __ _ ")
	y.Printf("| |")
	b.Printf("  ___  ")
	y.Printf("| |__  ")
	r.Printf("  __ _ ")
	b.Printf(" _ __ ")
	y.Printf("| |")
	r.Printf("  __ _ ")
	b.Println(" _   _ ")

	r.Printf("  / _` |")
	y.Printf("| |")
	b.Printf(" / _ \\ ")
	y.Printf("| '_ \\ ")
	r.Printf(" / _` |")
	b.Printf("| '_ \\")
	y.Printf("| |")
	r.Printf(" / _` |")
	b.Println("| | | |")

	r.Printf(" | (_| |")
	y.Printf("| |")
	b.Printf("| (_) |")
	y.Printf("| | | |")
	r.Printf("| (_| |")
	b.Printf("| |_) |")
	y.Printf(" |")
	r.Printf("| (_| |")
	b.Println("| |_| |")

	r.Printf("  \\__,_|")
	y.Printf("|_|")
	b.Printf(" \\___/ ")
	y.Printf("|_| |_|")
	r.Printf(" \\__,_|")
	b.Printf("| .__/")
	y.Printf("|_|")
	r.Printf(" \\__,_|")
	b.Println(" \\__, |")

	r.Printf("        ")
	y.Printf("   ")
	b.Printf("       ")
	y.Printf("       ")
	r.Printf("       ")
	b.Printf("|_|   ")
	y.Printf("   ")
	r.Printf("       ")
	b.Println(" |___/ ")

	fmt.Println(helpString)
}

// version displays information and exits successfully (GNU convention)
func version() {
	fmt.Println("alohaplay", GitRevisionId)
	fmt.Println("Copyright 2019 Lanikai Labs LLC. All rights reserved.")
}
