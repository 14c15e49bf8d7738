package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"os/signal"
	"syscall"

	"github.com/tkjaer/ifmtu/internal/config"
	"github.com/tkjaer/ifmtu/internal/output"
	"github.com/tkjaer/ifmtu/internal/shared"
	"github.com/tkjaer/ifmtu/pkg/mtu"
	"github.com/tkjaer/ifmtu/pkg/ptr"
)

// Function variables for mocking
var (
	lookup        = mtu.Lookup
	reverseLookup = ptr.NewResolver().Lookup
)

func main() {
	args, err := config.ParseArgs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Setup logging
	logFile, err := config.SetupLogging(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to setup logging: %v\n", err)
		os.Exit(1)
	}

	slog.Debug("Starting interface lookup",
		"destination", args.Destination,
		"local", args.Local,
		"gateway", args.Gateway,
		"timeout", args.Timeout,
	)

	// Ctrl+C abandons the lookup
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, args.Timeout)
	err = run(ctx, args)
	cancel()
	stop()

	if logFile != nil {
		logFile.Close()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args config.Args) error {
	result, err := resolve(ctx, args)
	if err != nil {
		return err
	}

	om, err := newOutputs(args)
	if err != nil {
		return err
	}
	if err := om.Write(result); err != nil {
		om.Close()
		return err
	}
	return om.Close()
}

// resolve looks up the interface for the addresses args describe.
func resolve(ctx context.Context, args config.Args) (shared.Result, error) {
	local, err := args.LocalAddr()
	if err != nil {
		return shared.Result{}, err
	}
	remote, err := args.RemoteAddr(ctx)
	if err != nil {
		return shared.Result{}, err
	}

	iface, err := lookup(ctx, local, remote)
	if err != nil {
		return shared.Result{}, err
	}
	slog.Debug("Lookup completed", "interface", iface.Name, "mtu", iface.MTU)

	result := shared.Result{
		Destination: args.Destination,
		Interface:   iface.Name,
		MTU:         iface.MTU,
	}
	family := local.Addr()
	if remote.IsValid() {
		result.RemoteIP = remote.Addr().String()
		family = remote.Addr()
		if args.Resolve {
			result.Name, _ = reverseLookup(ctx, remote.Addr())
		}
	}
	if local.IsValid() {
		result.LocalIP = local.Addr().String()
	}
	result.MSS = iface.MSS(is6(family))
	return result, nil
}

func is6(addr netip.Addr) bool {
	return addr.Unmap().Is6()
}

// newOutputs registers JSON output for --json and --json-file, and text
// output unless JSON goes to stdout.
func newOutputs(args config.Args) (*output.OutputManager, error) {
	om := &output.OutputManager{}
	switch {
	case args.Json:
		j, err := output.NewJSONOutput("")
		if err != nil {
			return nil, err
		}
		om.Register(j)
	case args.JsonFile != "":
		j, err := output.NewJSONOutput(args.JsonFile)
		if err != nil {
			return nil, err
		}
		om.Register(j)
		om.Register(output.NewTextOutput(os.Stdout, args.MSS))
	default:
		om.Register(output.NewTextOutput(os.Stdout, args.MSS))
	}
	return om, nil
}
