// Package simulation assembles the stepping engine, the data recorder, and
// the monitor into one runnable simulation.
package simulation

import (
	"github.com/pipelab/pipelab/datarecording"
	"github.com/pipelab/pipelab/engine"
	"github.com/pipelab/pipelab/insts"
	"github.com/pipelab/pipelab/monitoring"
)

// A Simulation owns one engine and the services around it.
type Simulation struct {
	id string

	engine       engine.Engine
	dataRecorder datarecording.DataRecorder
	monitor      *monitoring.Monitor

	monitorURL string
}

// ID returns the unique identifier of this simulation run.
func (s *Simulation) ID() string {
	return s.id
}

// Engine returns the stepping engine of the simulation.
func (s *Simulation) Engine() engine.Engine {
	return s.engine
}

// DataRecorder returns the recorder that persists the run, or nil when
// recording is disabled.
func (s *Simulation) DataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// Monitor returns the monitor of the simulation, or nil when monitoring is
// disabled.
func (s *Simulation) Monitor() *monitoring.Monitor {
	return s.monitor
}

// MonitorURL returns the URL the monitoring server listens on, or an empty
// string when monitoring is disabled.
func (s *Simulation) MonitorURL() string {
	return s.monitorURL
}

// ApplyInstructions resets the engine with a new instruction sequence.
func (s *Simulation) ApplyInstructions(sequence []insts.Instruction) {
	s.engine.ApplyInstructions(sequence)
}

// Terminate flushes and closes the recorder.
func (s *Simulation) Terminate() {
	if s.dataRecorder != nil {
		s.dataRecorder.Close()
	}
}
