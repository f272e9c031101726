// Command arcrun is a local dev harness for driving a compiled Arc module
// against newline-delimited JSON telem.Frame fixtures, without needing a
// full Synnax cluster to supply retrieve_channels or real input data.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/synnaxlabs/arc/config"
	"github.com/synnaxlabs/arc/module"
	"github.com/synnaxlabs/arc/runtime"
	"github.com/synnaxlabs/arc/runtime/rlog"
	"github.com/synnaxlabs/arc/runtime/state"
	"github.com/synnaxlabs/arc/telem"
)

var (
	moduleIRPath   string
	moduleWasmPath string
	framesPath     string
	configPath     string
	envPath        string
)

func main() {
	root := &cobra.Command{
		Use:   "arcrun",
		Short: "Load and drive a compiled Arc module against JSON frame fixtures",
		RunE:  run,
	}
	root.Flags().StringVar(&moduleIRPath, "ir", "", "path to the module's IR JSON (required)")
	root.Flags().StringVar(&moduleWasmPath, "wasm", "", "path to the module's compiled wasm bytes (required)")
	root.Flags().StringVar(&framesPath, "frames", "", "path to newline-delimited JSON telem.Frame fixtures (optional)")
	root.Flags().StringVar(&configPath, "config", "", "optional config.yml path")
	root.Flags().StringVar(&envPath, "env", ".env", "optional .env path")
	_ = root.MarkFlagRequired("ir")
	_ = root.MarkFlagRequired("wasm")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	settings, err := config.Load(configPath, envPath)
	if err != nil {
		return err
	}
	rlog.Init(rlog.Config{Level: settings.LogLevel, Console: true})

	mod, err := loadModule(moduleIRPath, moduleWasmPath)
	if err != nil {
		return fmt.Errorf("load module: %w", err)
	}

	opts := append(settings.RuntimeOptions(), runtime.WithChannelRetriever(fixtureRetriever))
	rt, err := runtime.Load(cmd.Context(), mod, opts...)
	if err != nil {
		return fmt.Errorf("runtime.Load: %w", err)
	}
	rt.Start()
	defer rt.Stop()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if framesPath != "" {
		if err := feedFrames(rt, framesPath); err != nil {
			return err
		}
	}

	go drainOutputs(ctx, rt)

	<-ctx.Done()
	return nil
}

func loadModule(irPath, wasmPath string) (*module.Module, error) {
	irBytes, err := os.ReadFile(irPath)
	if err != nil {
		return nil, err
	}
	wasmBytes, err := os.ReadFile(wasmPath)
	if err != nil {
		return nil, err
	}
	var mod module.Module
	if err := json.Unmarshal(irBytes, &mod.IR); err != nil {
		return nil, fmt.Errorf("decode IR: %w", err)
	}
	mod.Wasm = wasmBytes
	return &mod, nil
}

// fixtureRetriever answers every channel digest request with an untyped
// float64 channel carrying its own timestamps, since this harness has no
// real cluster to ask; good enough for exercising scheduler/state logic
// against fixture data.
func fixtureRetriever(keys []telem.ChannelKey) ([]state.ChannelDigest, error) {
	digests := make([]state.ChannelDigest, len(keys))
	for i, k := range keys {
		digests[i] = state.ChannelDigest{Key: k, Kind: telem.TypeFloat64}
	}
	return digests, nil
}

func feedFrames(rt *runtime.Runtime, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var frame telem.Frame
		if err := json.Unmarshal(line, &frame); err != nil {
			return fmt.Errorf("decode frame: %w", err)
		}
		if err := rt.Write(&frame); err != nil {
			rlog.Component("arcrun").Warn().Err(err).Msg("dropped fixture frame")
		}
	}
	return scanner.Err()
}

func drainOutputs(ctx context.Context, rt *runtime.Runtime) {
	enc := json.NewEncoder(os.Stdout)
	for {
		frame, ok := rt.Read(ctx)
		if !ok {
			return
		}
		_ = enc.Encode(frame)
	}
}
