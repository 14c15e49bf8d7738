package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/tkjaer/ifmtu/internal/version"
	"github.com/tkjaer/ifmtu/pkg/mtu"
)

type Args struct {
	Destination string
	Local       string // local address, optionally with port
	Gateway     bool   // look up the interface towards the default gateway

	ForceIPv4 bool
	ForceIPv6 bool
	Port      uint // destination port for the connect check
	Resolve   bool // look up the PTR name of the destination address

	Timeout time.Duration

	// Output
	Json     bool   // output json to stdout
	JsonFile string // output json to file as well as text to stdout
	MSS      bool   // include the TCP MSS in text output

	// Logging
	Log      string // log file path, empty means stderr
	LogLevel string // log level: debug, info, warn, error
}

func ParseArgs() (Args, error) {
	var args Args
	var showVersion bool

	// Set custom usage message
	flag.Usage = func() {
		println("ifmtu - outgoing interface and MTU lookup")
		println()
		println("Asks the operating system which interface it would use to reach a destination,")
		println("and reports that interface's MTU.")
		println()
		println("Usage:")
		println("  ifmtu [OPTIONS] DESTINATION")
		println("  ifmtu [OPTIONS] --local ADDRESS [DESTINATION]")
		println("  ifmtu [OPTIONS] --gateway")
		println()
		println("Examples:")
		println("  ifmtu <destination>                    # Interface and MTU towards a host")
		println("  ifmtu -6 --mss <destination>           # IPv6 only, include TCP MSS")
		println("  ifmtu --local 192.0.2.10               # Interface owning a local address")
		println("  ifmtu --gateway -J                     # Default gateway, JSON to stdout")
		println()
		println("Options:")
		flag.PrintDefaults()
		println()
		println("Documentation: https://github.com/tkjaer/ifmtu")
		println("Report issues: https://github.com/tkjaer/ifmtu/issues")
	}

	flag.BoolVarP(&showVersion, "version", "v", false, "Show version information")
	flag.BoolVarP(&args.ForceIPv4, "ipv4", "4", false, "Force IPv4")
	flag.BoolVarP(&args.ForceIPv6, "ipv6", "6", false, "Force IPv6")
	flag.UintVarP(&args.Port, "port", "p", 0, "Destination port used when checking the local address can reach the destination")
	flag.StringVarP(&args.Local, "local", "L", "", "Local address (ADDR or ADDR:PORT) to look up, or to bind to when a destination is given")
	flag.BoolVarP(&args.Gateway, "gateway", "g", false, "Use the default gateway as destination")
	flag.BoolVarP(&args.Resolve, "resolve", "r", false, "Resolve the destination address to a hostname")
	flag.DurationVarP(&args.Timeout, "timeout", "t", mtu.DefaultTimeout, "Lookup timeout")
	flag.StringVarP(&args.JsonFile, "json-file", "j", "", "Write JSON output to file")
	flag.BoolVarP(&args.Json, "json", "J", false, "Write JSON output to stdout")
	flag.BoolVarP(&args.MSS, "mss", "m", false, "Show TCP MSS in text output")
	flag.StringVarP(&args.Log, "log", "l", "", "Diagnostic log file (empty = stderr)")
	flag.StringVar(&args.LogLevel, "log-level", "error", "Log level: debug, info, warn, error")
	flag.Parse()

	// Handle version flag
	if showVersion {
		fmt.Println(version.FullVersion())
		os.Exit(0)
	}

	args.Destination = flag.Arg(0)

	switch {
	case args.Destination == "" && !args.Gateway && args.Local == "":
		return args, errors.New("destination is required")
	case args.Gateway && args.Destination != "":
		return args, errors.New("cannot use both --gateway and a destination")
	case flag.NArg() > 1:
		return args, errors.New("only one destination can be given")
	case args.Json && args.JsonFile != "":
		return args, errors.New("cannot use both --json and --json-file")
	case args.ForceIPv6 && args.ForceIPv4:
		return args, errors.New("cannot force both IPv4 and IPv6")
	case args.Resolve && args.Destination == "" && !args.Gateway:
		return args, errors.New("--resolve needs a destination or --gateway")
	case args.Port > 65535:
		return args, errors.New("port must be between 0 and 65535")
	case args.Timeout <= 0:
		return args, errors.New("timeout must be positive")
	}

	return args, nil
}
