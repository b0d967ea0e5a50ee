// Command snowvm is the VM's host entrypoint: load one or more
// assembled VM-text files, concatenated into a single program, and run
// it, or step through it under an interactive breakpoint REPL.
//
// Grounded on gvm/main.go's flag parsing + trailing-file-args idiom and
// gvm/vm/run.go's GC-disable-during-run trick and defer-recover safety
// net. Explicitly not a package manager or source-level DSL CLI — out
// of scope per spec.md §1's non-goals; this only ever consumes
// already-assembled VM text, the same division of labor gvm/main.go
// draws between itself and gvm/vm/compile.go.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/jcnc-org/snow/vm"
	"github.com/jcnc-org/snow/vmconfig"
)

var (
	debugMode  = flag.Bool("debug", false, "enter single-step debug mode")
	entryFunc  = flag.String("entry", "main", "qualified name of the function to run")
	configPath = flag.String("config", "", "path to a vmconfig YAML file (optional)")
)

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		fmt.Println("Usage: snowvm [-debug] [-entry name] [-config path] <file 1> [file 2] ...")
		os.Exit(1)
	}

	cfg := vmconfig.Default()
	if *configPath != "" {
		loaded, err := vmconfig.Load(*configPath)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		cfg = loaded
	}

	level := hclog.LevelFromString(cfg.LogLevel)
	logger := hclog.New(&hclog.LoggerOptions{Name: "snowvm", Level: level})

	var source strings.Builder
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		source.Write(data)
		source.WriteByte('\n')
	}

	prog, err := vm.Load(source.String())
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	engine := vm.NewEngine(prog, logger)
	engine.SetLimits(cfg.CallStackDepth, cfg.OperandStackSize)

	// Disable the garbage collector for the run itself; everything the
	// interpreter allocates during the tight decode/dispatch loop is
	// short-lived frame/operand churn, so pausing collection here avoids
	// Go's GC fighting the VM for CPU the way gvm/vm/run.go's RunProgram
	// describes.
	gcPercent := currentGCPercent()
	debug.SetGCPercent(-1)
	defer debug.SetGCPercent(gcPercent)

	defer func() {
		if r := recover(); r != nil {
			fmt.Println("snowvm: fatal:", r)
			os.Exit(1)
		}
	}()

	if *debugMode {
		if err := engine.Start(*entryFunc); err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		runDebugREPL(engine)
		return
	}

	result, err := engine.Run(*entryFunc)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if result.Type != 0 || result.Int != 0 || result.Str != "" {
		fmt.Println(result.String())
	}
}

func currentGCPercent() int {
	if v, ok := os.LookupEnv("GOGC"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 100
}

// runDebugREPL adapts gvm/vm/run.go's RunProgramDebugMode command loop
// (n/next, r/run, b/break <line>) to this engine's Step-based
// single-instruction execution.
func runDebugREPL(e *vm.Engine) {
	fmt.Println("Commands:\n\tn or next: execute next instruction\n\tr or run: run program\n\tb or break <line>: toggle breakpoint at instruction index")
	e.DumpState()

	reader := bufio.NewReader(os.Stdin)
	waitForInput := true
	for {
		line := ""
		if waitForInput {
			fmt.Print("\n->")
			line, _ = reader.ReadString('\n')
			line = strings.ToLower(strings.TrimSpace(line))
		}

		switch {
		case !waitForInput || line == "n" || line == "next":
			result, done, err := e.Step()
			if waitForInput {
				e.DumpState()
			}
			if err != nil {
				fmt.Println(err)
				return
			}
			if done {
				if result.Type != 0 || result.Int != 0 || result.Str != "" {
					fmt.Println(result.String())
				}
				return
			}
			if e.AtBreakpoint() {
				fmt.Println("breakpoint")
				waitForInput = true
			}
		case line == "r" || line == "run":
			waitForInput = false
		case strings.HasPrefix(line, "b"):
			fields := strings.Fields(line)
			if len(fields) != 2 {
				fmt.Println("usage: b <instruction index>")
				continue
			}
			idx, err := strconv.Atoi(fields[1])
			if err != nil {
				fmt.Println("unknown breakpoint target:", fields[1])
				continue
			}
			e.ToggleBreakpoint(idx)
		}
	}
}
