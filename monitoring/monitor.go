// Package monitoring turns a running simulation into a web server, exposing
// the engine's read-only views to external display collaborators.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pipelab/pipelab/engine"
	"github.com/pipelab/pipelab/pipeline"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Monitor wraps a stepping engine with an HTTP API. The engine is
// single-writer; the monitor serializes all engine access with one lock.
type Monitor struct {
	engine     engine.Engine
	engineLock sync.Mutex

	portNumber int
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n",
			portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterEngine registers the engine to be monitored.
func (m *Monitor) RegisterEngine(e engine.Engine) {
	m.engine = e
}

// StartServer starts the monitor as a web server. It returns the URL that
// the server listens on.
func (m *Monitor) StartServer() string {
	r := mux.NewRouter()

	r.HandleFunc("/api/step", m.step)
	r.HandleFunc("/api/stepback", m.stepBack)
	r.HandleFunc("/api/cycle", m.cycle)
	r.HandleFunc("/api/occupancy", m.occupancy)
	r.HandleFunc("/api/registers", m.registers)
	r.HandleFunc("/api/memory", m.memory)
	r.HandleFunc("/api/explanations", m.explanations)
	r.HandleFunc("/api/execlog", m.execLog)
	r.HandleFunc("/api/wbresults", m.writeBackResults)
	r.HandleFunc("/api/cpi", m.cpi)
	r.HandleFunc("/api/predictor", m.predictor)
	r.HandleFunc("/api/export", m.export)
	r.HandleFunc("/api/engine", m.engineState)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	http.Handle("/", r)

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	go func() {
		err = http.Serve(listener, nil)
		dieOnErr(err)
	}()

	return url
}

func (m *Monitor) step(w http.ResponseWriter, _ *http.Request) {
	m.engineLock.Lock()
	m.engine.Step()
	cycle := m.engine.Cycle()
	m.engineLock.Unlock()

	fmt.Fprintf(w, "{\"cycle\":%d}", cycle)
}

func (m *Monitor) stepBack(w http.ResponseWriter, _ *http.Request) {
	m.engineLock.Lock()
	ok := m.engine.StepBack()
	cycle := m.engine.Cycle()
	m.engineLock.Unlock()

	fmt.Fprintf(w, "{\"restored\":%t,\"cycle\":%d}", ok, cycle)
}

func (m *Monitor) cycle(w http.ResponseWriter, _ *http.Request) {
	m.engineLock.Lock()
	cycle := m.engine.Cycle()
	stalls := m.engine.Stalls()
	m.engineLock.Unlock()

	fmt.Fprintf(w, "{\"cycle\":%d,\"stalls\":%d}", cycle, stalls)
}

func (m *Monitor) occupancy(w http.ResponseWriter, _ *http.Request) {
	m.engineLock.Lock()
	occupancy := m.engine.Occupancy()
	m.engineLock.Unlock()

	byStage := make(map[string][]string, pipeline.NumStages)
	for _, s := range pipeline.Stages() {
		byStage[s.String()] = occupancy[s]
	}

	m.writeJSON(w, byStage)
}

func (m *Monitor) registers(w http.ResponseWriter, _ *http.Request) {
	m.engineLock.Lock()
	registers := m.engine.Registers()
	m.engineLock.Unlock()

	m.writeJSON(w, registers)
}

func (m *Monitor) memory(w http.ResponseWriter, _ *http.Request) {
	m.engineLock.Lock()
	memory := m.engine.Memory()
	m.engineLock.Unlock()

	m.writeJSON(w, memory)
}

func (m *Monitor) explanations(w http.ResponseWriter, _ *http.Request) {
	m.engineLock.Lock()
	explanations := m.engine.Explanations()
	m.engineLock.Unlock()

	m.writeJSON(w, explanations)
}

func (m *Monitor) execLog(w http.ResponseWriter, _ *http.Request) {
	m.engineLock.Lock()
	entries := m.engine.ExecutionLog()
	m.engineLock.Unlock()

	lines := make([]string, len(entries))
	for i, entry := range entries {
		lines[i] = fmt.Sprintf("[%s] %s",
			entry.Time.Format("15:04:05.000"), entry.Message)
	}

	m.writeJSON(w, lines)
}

func (m *Monitor) writeBackResults(w http.ResponseWriter, _ *http.Request) {
	m.engineLock.Lock()
	export := m.engine.Export()
	m.engineLock.Unlock()

	m.writeJSON(w, export.WBResults)
}

func (m *Monitor) cpi(w http.ResponseWriter, _ *http.Request) {
	m.engineLock.Lock()
	cpi := m.engine.CPI()
	m.engineLock.Unlock()

	fmt.Fprintf(w, "{\"cpi\":%f}", cpi)
}

func (m *Monitor) predictor(w http.ResponseWriter, _ *http.Request) {
	m.engineLock.Lock()
	label := m.engine.StrategyLabel()
	m.engineLock.Unlock()

	fmt.Fprintf(w, "{\"strategy\":%q}", label)
}

func (m *Monitor) export(w http.ResponseWriter, _ *http.Request) {
	m.engineLock.Lock()
	export := m.engine.Export()
	m.engineLock.Unlock()

	m.writeJSON(w, export)
}

func (m *Monitor) engineState(w http.ResponseWriter, _ *http.Request) {
	m.engineLock.Lock()
	defer m.engineLock.Unlock()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(m.engine)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	proc, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := proc.CPUPercent()
	dieOnErr(err)

	memorySize, err := proc.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	m.writeJSON(w, rsp)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	m.writeJSON(w, prof)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, value any) {
	bytes, err := json.Marshal(value)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
