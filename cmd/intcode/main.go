// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"

	"github.com/ezrec/intcode/channel"
	"github.com/ezrec/intcode/config"
	"github.com/ezrec/intcode/cpu"
	"github.com/ezrec/intcode/emulator"
	"github.com/ezrec/intcode/script"
)

// newLogger creates a logger to stderr, and optionally to a JSON trace file.
func newLogger(verbose bool, trace io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	}

	if trace != nil {
		handlers = append(handlers, slog.NewJSONHandler(trace, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	return slog.New(slogmulti.Fanout(handlers...))
}

// loadProgram loads either an assembly source, or a program image.
func loadProgram(cfg *config.Config, logger *slog.Logger) (prog *cpu.Program, err error) {
	var path string
	var asm *cpu.Assembler
	switch {
	case len(cfg.Assemble) != 0:
		path = cfg.Assemble
		asm = &cpu.Assembler{Verbose: cfg.Verbose, Log: logger}
	case len(cfg.Program) != 0:
		path = cfg.Program
	default:
		err = fmt.Errorf("no program given")
		return
	}

	inf, err := os.Open(path)
	if err != nil {
		return
	}
	defer inf.Close()

	if asm != nil {
		prog, err = asm.Parse(inf)
	} else {
		prog, err = cpu.ReadProgram(inf)
	}
	if err != nil {
		err = fmt.Errorf("%v: %w", path, err)
	}

	return
}

// run executes the configured script, listing or program.
func run(cfg *config.Config, listing bool, logger *slog.Logger) (err error) {
	verbose := cfg.Verbose || len(cfg.Trace) != 0

	if len(cfg.Script) != 0 {
		rn := &script.Runner{
			Verbose: verbose,
			Log:     logger,
			Output:  os.Stdout,
		}
		_, err = rn.Exec(cfg.Script, nil)
		return
	}

	prog, err := loadProgram(cfg, logger)
	if err != nil {
		return
	}

	if listing {
		for ip, text := range prog.Listing() {
			fmt.Printf("%5d: %s\n", ip, text)
		}
		return
	}

	tape := &channel.Tape{}
	if cfg.Input == "-" {
		tape.Input = os.Stdin
	} else {
		var inf *os.File
		inf, err = os.Open(cfg.Input)
		if err != nil {
			return
		}
		defer inf.Close()
		tape.Input = inf
	}

	if cfg.Output == "-" {
		tape.Output = os.Stdout
	} else {
		var ouf *os.File
		ouf, err = os.Create(cfg.Output)
		if err != nil {
			return
		}
		defer ouf.Close()
		tape.Output = ouf
	}

	emu := emulator.NewEmulator()
	emu.Program = prog
	emu.Verbose = verbose
	emu.SetLogger(logger)

	err = emu.Reset()
	if err != nil {
		return
	}

	// Preset inputs are read before the whole of the input tape.
	if len(cfg.Inputs) != 0 {
		emu.Send(cfg.Inputs...)
		for value, verr := range channel.Drain(tape) {
			if verr != nil {
				err = fmt.Errorf("%v: %w", cfg.Input, verr)
				return
			}
			emu.Send(value)
		}
	} else {
		emu.Cpu.SetInput(tape)
	}
	emu.Cpu.SetOutput(tape)

	err = emu.Run()
	if err != nil {
		if cfg.Verbose {
			fmt.Fprint(os.Stderr, emu.Cpu.String())
		}
		return
	}

	if cfg.Dump {
		fmt.Fprintln(os.Stderr, (&cpu.Program{Image: emu.Cpu.Memory}).String())
	}

	return
}

func main() {
	var configFile string
	var program string
	var assemble string
	var input string
	var output string
	var trace string
	var scriptFile string
	var verbose bool
	var dump bool
	var listing bool

	flag.StringVar(&configFile, "f", "", ".toml run configuration file")
	flag.StringVar(&program, "p", "", "Intcode program file")
	flag.StringVar(&assemble, "c", "", "Intcode assembly file to compile")
	flag.StringVar(&input, "i", "-", "Input tape")
	flag.StringVar(&output, "o", "-", "Output tape")
	flag.StringVar(&trace, "t", "", "JSON trace file")
	flag.StringVar(&scriptFile, "s", "", "Starlark script to run")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")
	flag.BoolVar(&dump, "d", false, "Dump memory after halt")
	flag.BoolVar(&listing, "l", false, "List the program, do not execute")

	flag.Parse()

	if flag.NArg() != 0 {
		log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
	}

	cfg := config.Default()
	if len(configFile) != 0 {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			log.Fatalf("%v: %v", os.Args[0], err)
		}
	}

	// Flags override the configuration file.
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "p":
			cfg.Program = program
		case "c":
			cfg.Assemble = assemble
		case "i":
			cfg.Input = input
		case "o":
			cfg.Output = output
		case "t":
			cfg.Trace = trace
		case "s":
			cfg.Script = scriptFile
		case "v":
			cfg.Verbose = verbose
		case "d":
			cfg.Dump = dump
		}
	})

	var traceFile *os.File
	if len(cfg.Trace) != 0 {
		var err error
		traceFile, err = os.Create(cfg.Trace)
		if err != nil {
			log.Fatalf("%v: %v", cfg.Trace, err)
		}
	}

	// A nil *os.File is not a nil io.Writer.
	var logger *slog.Logger
	if traceFile != nil {
		logger = newLogger(cfg.Verbose, traceFile)
	} else {
		logger = newLogger(cfg.Verbose, nil)
	}

	err := run(cfg, listing, logger)
	if err != nil {
		logger.Error("intcode", "err", err)
	}

	if traceFile != nil {
		traceFile.Close()
	}

	if err != nil {
		os.Exit(1)
	}
}
