package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/pipelab/pipelab/insts"
	"github.com/pipelab/pipelab/prediction"
	"github.com/pipelab/pipelab/simulation"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var (
	runProgramFile  string
	runCycles       int
	runForwarding   bool
	runPrediction   bool
	runStrategy     string
	runServe        bool
	runOpenBrowser  bool
	runMonitorPort  int
	runOutputFile   string
	runNoRecording  bool
	runExportAtEnd  bool
	runRegisterList []string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Step a program through the pipeline",
	Long: `Run loads a program (or a built-in demo sequence when no program ` +
		`file is given) and steps it through the pipeline. In batch mode it ` +
		`advances a fixed number of cycles and prints the explanations; with ` +
		`--serve it starts the monitoring server and waits for external step ` +
		`requests instead.`,
	Run: func(cmd *cobra.Command, args []string) {
		runSimulation()
	},
}

func init() {
	runCmd.Flags().StringVarP(&runProgramFile, "program", "p", "",
		"program file, one instruction per line")
	runCmd.Flags().IntVarP(&runCycles, "cycles", "n", 0,
		"number of advance requests to issue in batch mode "+
			"(default: enough to drain a hazard-free pipeline)")
	runCmd.Flags().BoolVar(&runForwarding, "forwarding", true,
		"model forwarding (RAW hazards cost nothing)")
	runCmd.Flags().BoolVar(&runPrediction, "prediction", true,
		"enable branch prediction")
	runCmd.Flags().StringVar(&runStrategy, "strategy", "always-not-taken",
		"branch-prediction strategy: always-taken, always-not-taken, "+
			"1-bit, or 2-bit-saturating")
	runCmd.Flags().BoolVar(&runServe, "serve", false,
		"start the monitoring server and wait for step requests")
	runCmd.Flags().BoolVar(&runOpenBrowser, "open", false,
		"open the monitoring URL in a browser (requires --serve)")
	runCmd.Flags().IntVar(&runMonitorPort, "monitor-port", 0,
		"port for the monitoring server (default: random, "+
			"or PIPELAB_MONITOR_PORT)")
	runCmd.Flags().StringVarP(&runOutputFile, "output", "o", "",
		"output file name for the sqlite recording")
	runCmd.Flags().BoolVar(&runNoRecording, "no-recording", false,
		"disable the sqlite recording")
	runCmd.Flags().BoolVar(&runExportAtEnd, "export", false,
		"print the exported state document as JSON after batch stepping")
	runCmd.Flags().StringSliceVar(&runRegisterList, "set-register", nil,
		"preload a register, e.g. --set-register 4=7 (repeatable)")

	rootCmd.AddCommand(runCmd)
}

func runSimulation() {
	program := loadProgram()
	strategy := parseStrategyOrDie(runStrategy)

	builder := simulation.MakeBuilder().
		WithForwarding(runForwarding).
		WithPrediction(runPrediction).
		WithStrategy(strategy)

	if runNoRecording {
		builder = builder.WithoutRecording()
	} else if runOutputFile != "" {
		builder = builder.WithOutputFileName(runOutputFile)
	}

	if runServe {
		builder = builder.WithMonitorPort(monitorPort())
	} else {
		builder = builder.WithoutMonitoring()
	}

	s := builder.Build()
	defer s.Terminate()

	s.ApplyInstructions(program)
	preloadRegisters(s)

	if runServe {
		serve(s)
		return
	}

	runBatch(s, len(program))
}

func loadProgram() []insts.Instruction {
	if runProgramFile == "" {
		return demoProgram()
	}

	src, err := os.ReadFile(runProgramFile)
	if err != nil {
		log.Fatalf("cannot read program: %v", err)
	}

	program, err := insts.ParseProgram(string(src))
	if err != nil {
		log.Fatalf("cannot parse program: %v", err)
	}

	return program
}

// demoProgram is a short sequence that exhibits a RAW hazard, a control
// hazard, and a load-store pair.
func demoProgram() []insts.Instruction {
	return []insts.Instruction{
		insts.NewRType("ADD", 1, 2, 3),
		insts.NewRType("SUB", 4, 1, 5),
		insts.NewBType("BEQ", 4, 6),
		insts.NewIType("LW", 7, 1, 0),
		insts.NewIType("SW", 7, 1, 4),
	}
}

func parseStrategyOrDie(label string) prediction.Strategy {
	strategy, ok := prediction.ParseStrategy(label)
	if !ok {
		log.Fatalf("unknown strategy %q", label)
	}

	return strategy
}

func monitorPort() int {
	if runMonitorPort != 0 {
		return runMonitorPort
	}

	envPort := os.Getenv("PIPELAB_MONITOR_PORT")
	if envPort == "" {
		return 0
	}

	port, err := strconv.Atoi(envPort)
	if err != nil {
		log.Fatalf("PIPELAB_MONITOR_PORT %q is not a number", envPort)
	}

	return port
}

func preloadRegisters(s *simulation.Simulation) {
	if len(runRegisterList) == 0 {
		return
	}

	registers := s.Engine().Registers()
	for _, assignment := range runRegisterList {
		var index, value int
		_, err := fmt.Sscanf(assignment, "%d=%d", &index, &value)
		if err != nil {
			log.Fatalf("register assignment %q is not index=value",
				assignment)
		}

		registers[index] = value
	}

	s.Engine().LoadRegisters(registers)
}

func serve(s *simulation.Simulation) {
	if runOpenBrowser {
		if err := browser.OpenURL(s.MonitorURL()); err != nil {
			fmt.Fprintf(os.Stderr, "cannot open browser: %v\n", err)
		}
	}

	// The monitor drives the engine from here on.
	select {}
}

func runBatch(s *simulation.Simulation, programLength int) {
	cycles := runCycles
	if cycles == 0 {
		cycles = programLength + 4
	}

	e := s.Engine()
	for i := 0; i < cycles; i++ {
		e.Step()
	}

	for _, explanation := range e.Explanations() {
		fmt.Println(explanation)
	}

	fmt.Printf("cycles=%d stalls=%d cpi=%.2f\n",
		e.Cycle(), e.Stalls(), e.CPI())

	if runExportAtEnd {
		doc, err := json.MarshalIndent(e.Export(), "", "  ")
		if err != nil {
			log.Fatalf("cannot export state: %v", err)
		}

		fmt.Println(string(doc))
	}

	atexit.Exit(0)
}
