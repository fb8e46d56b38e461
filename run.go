package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"
	"runtime/pprof"

	"cpemu/emu"
	"cpemu/emu/script"
)

// runMain runs the synthetic workload described by the config file.
func runMain(ctx context.Context, args Run, cfgPath string) {
	cfg := emu.LoadConfigOrDefault(cfgPath)
	if args.Bursts > 0 {
		cfg.Workload.Bursts = args.Bursts
	}
	if args.DualCore {
		cfg.Emulation.DualCore = true
	}
	if args.Deterministic {
		cfg.Emulation.DeterministicGPU = true
	}
	if args.NoDrain {
		cfg.Workload.Drain = false
	}

	e := emu.NewEmulator(cfg)
	if args.Load != "" {
		buf, err := os.ReadFile(args.Load)
		checkf(err, "failed to read snapshot")
		checkf(e.M.LoadSnapshot(buf), "failed to load snapshot %s", args.Load)
	} else {
		e.SetupFifo()
	}

	if args.CPUProfile != "" {
		f, err := os.Create(args.CPUProfile)
		checkf(err, "failed to create cpu profile file")
		checkf(pprof.StartCPUProfile(f), "failed to start cpu profile")
		defer func() {
			pprof.StopCPUProfile()
			f.Close()
			fmt.Println("CPU profile written to", args.CPUProfile)
		}()
	}

	rep, err := e.Run(ctx)
	fmt.Println(rep)

	if args.Save != "" {
		checkf(os.WriteFile(args.Save, e.M.SaveSnapshot(), 0644), "failed to save snapshot")
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "run failed: %v\n", err)
		os.Exit(1)
	}
}

// scriptMain runs a Lua scenario on a freshly reset machine.
func scriptMain(ctx context.Context, args Script, cfgPath string) {
	cfg := emu.LoadConfigOrDefault(cfgPath)
	if args.DualCore {
		cfg.Emulation.DualCore = true
	}
	cfg.Check()

	r := script.New(emu.NewMachine(cfg.Emulation))
	defer r.Close()

	if err := r.RunFile(ctx, args.Path); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// regsMain prints the register map.
func regsMain(args Regs) {
	cfg := emu.DefaultConfig()
	cfg.Emulation.DualCore = args.DualCore
	cfg.Emulation.Wii = args.Wii
	m := emu.NewMachine(cfg.Emulation)
	for _, mapping := range m.Bus.Mappings() {
		fmt.Println(mapping)
	}
}

func versionMain() {
	version := "(devel)"
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		version = bi.Main.Version
	}
	fmt.Println("cpemu", version)
}
