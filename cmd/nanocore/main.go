package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	nanocorehost "github.com/wippyai/nanocore-host"
	"github.com/wippyai/nanocore-host/asm"
	"github.com/wippyai/nanocore-host/bridge"
	"github.com/wippyai/nanocore-host/config"
	"github.com/wippyai/nanocore-host/engine"
	"github.com/wippyai/nanocore-host/state"
)

func main() {
	var (
		programFile = flag.String("program", "", "Path to binary program image")
		asmFile     = flag.String("asm", "", "Path to assembly source (assembled before loading)")
		configFile  = flag.String("config", "", "Path to machine TOML config")
		memSize     = flag.Uint64("mem", 0, "Guest memory size in bytes (overrides config)")
		loadAddr    = flag.String("load", "", "Load address (overrides config and .org)")
		maxInstr    = flag.Uint64("max", 0, "Instruction budget, 0 runs to completion")
		bps         = flag.String("bp", "", "Breakpoint addresses (comma-separated)")
		dumpState   = flag.String("dump-state", "", "Write final register state to file")
		loadState   = flag.String("restore-state", "", "Restore register state from file before running")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	if *programFile == "" && *asmFile == "" && *configFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: nanocore -program <file.bin> [-mem N] [-max N] [-bp addr,...]")
		fmt.Fprintln(os.Stderr, "       nanocore -asm <file.s> [-i]  (assemble and run)")
		fmt.Fprintln(os.Stderr, "       nanocore -config <machine.toml>")
		os.Exit(1)
	}

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		logger = l
		engine.SetLogger(l)
	}

	m, err := buildMachine(*configFile, *programFile, *asmFile, *memSize, *loadAddr, *maxInstr, *bps, *loadState, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if err := runInteractive(m); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := runBatch(m, *dumpState); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// machine bundles everything a run needs.
type machine struct {
	inst   *bridge.Instance
	cfg    config.Config
	source string // program or asm path, for display
}

func buildMachine(configFile, programFile, asmFile string, memSize uint64, loadAddr string, maxInstr uint64, bps, loadState string, logger *zap.Logger) (*machine, error) {
	cfg := config.Default()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	// Flags override the config file.
	if memSize != 0 {
		cfg.MemorySize = memSize
	}
	if maxInstr != 0 {
		cfg.MaxInstructions = maxInstr
	}
	if programFile != "" {
		cfg.Program = programFile
	}
	if loadAddr != "" {
		addr, err := strconv.ParseUint(loadAddr, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("bad load address %q: %w", loadAddr, err)
		}
		cfg.LoadAddress = addr
	}
	if bps != "" {
		for _, s := range strings.Split(bps, ",") {
			addr, err := strconv.ParseUint(strings.TrimSpace(s), 0, 64)
			if err != nil {
				return nil, fmt.Errorf("bad breakpoint %q: %w", s, err)
			}
			cfg.Breakpoints = append(cfg.Breakpoints, addr)
		}
	}

	// Assemble or read the program image.
	var image []byte
	imageAddr := cfg.LoadAddress
	source := cfg.Program
	switch {
	case asmFile != "":
		prog, err := asm.AssembleFile(asmFile)
		if err != nil {
			return nil, err
		}
		image = prog.Code
		if loadAddr == "" {
			imageAddr = prog.Origin
		}
		source = asmFile
	case cfg.Program != "":
		data, err := os.ReadFile(cfg.Program)
		if err != nil {
			return nil, fmt.Errorf("read program: %w", err)
		}
		image = data
	}

	reg := bridge.NewRegistry(engine.NewSession(engine.NewInterp()), logger)
	h, err := reg.Create(cfg.MemorySize)
	if err != nil {
		return nil, err
	}
	inst, err := reg.Get(h)
	if err != nil {
		return nil, err
	}

	for _, d := range cfg.Devices {
		dev, err := d.New()
		if err != nil {
			return nil, err
		}
		if err := inst.RegisterDevice(d.Start, d.End, dev); err != nil {
			return nil, err
		}
	}

	if len(image) > 0 {
		if err := inst.LoadProgram(imageAddr, image); err != nil {
			return nil, err
		}
		inst.SetPC(imageAddr)
	}
	if loadState != "" {
		snap, err := state.Load(loadState)
		if err != nil {
			return nil, err
		}
		inst.RestoreState(snap)
	}
	for _, addr := range cfg.Breakpoints {
		inst.SetBreakpoint(addr)
	}

	return &machine{inst: inst, cfg: cfg, source: source}, nil
}

func runBatch(m *machine, dumpState string) error {
	fmt.Printf("Program: %s\n", m.source)
	fmt.Printf("Memory: %d bytes, load address 0x%x\n", m.cfg.MemorySize, m.cfg.LoadAddress)

	code, err := m.inst.Run(m.cfg.MaxInstructions)
	if err != nil {
		return err
	}
	fmt.Printf("\nExit: %s (%d)\n", code, int32(code))

	printState(m.inst.State())

	for {
		ev, ok := m.inst.PollEvent()
		if !ok {
			break
		}
		fmt.Printf("Event: %s\n", ev)
	}

	if dumpState != "" {
		if err := state.Save(dumpState, m.inst.State()); err != nil {
			return err
		}
		fmt.Printf("State written to %s\n", dumpState)
	}

	if code == nanocorehost.ExitFault {
		os.Exit(int(code))
	}
	return nil
}

func printState(st state.Snapshot) {
	fmt.Printf("PC: 0x%x  SP: 0x%x  Flags: 0x%x\n", st.PC, st.SP, st.Flags)
	for n, v := range st.GPRs {
		if v != 0 {
			fmt.Printf("  R%-2d = 0x%x (%d)\n", n, v, v)
		}
	}
	fmt.Printf("Instructions: %d  Cycles: %d\n",
		st.Perf[state.PerfInstructions], st.Perf[state.PerfCycles])
}
