package simulation

import (
	"github.com/pipelab/pipelab/datarecording"
	"github.com/pipelab/pipelab/engine"
	"github.com/pipelab/pipelab/monitoring"
	"github.com/pipelab/pipelab/prediction"
	"github.com/rs/xid"
)

// Builder can be used to build a simulation.
type Builder struct {
	forwarding        bool
	predictionEnabled bool
	strategy          prediction.Strategy

	recordingOn    bool
	outputFileName string

	monitorOn   bool
	monitorPort int
}

// MakeBuilder creates a new builder with forwarding, prediction, recording,
// and monitoring all enabled.
func MakeBuilder() Builder {
	return Builder{
		forwarding:        true,
		predictionEnabled: true,
		strategy:          prediction.AlwaysNotTaken,
		recordingOn:       true,
		monitorOn:         true,
	}
}

// WithForwarding sets whether the engine models forwarding.
func (b Builder) WithForwarding(enabled bool) Builder {
	b.forwarding = enabled
	return b
}

// WithPrediction sets whether the engine predicts branches.
func (b Builder) WithPrediction(enabled bool) Builder {
	b.predictionEnabled = enabled
	return b
}

// WithStrategy sets the branch-prediction strategy.
func (b Builder) WithStrategy(s prediction.Strategy) Builder {
	b.strategy = s
	return b
}

// WithoutRecording disables the sqlite data recorder.
func (b Builder) WithoutRecording() Builder {
	b.recordingOn = false
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithoutMonitoring sets the simulation to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.recordingOn && b.outputFileName != "" {
		panic("output file name cannot be set when recording is disabled")
	}
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{
		id: xid.New().String(),
	}

	s.engine = engine.MakeBuilder().
		WithForwarding(b.forwarding).
		WithPrediction(b.predictionEnabled).
		WithStrategy(b.strategy).
		Build("PipelineEngine")

	if b.recordingOn {
		outputPath := b.outputFileName
		if outputPath == "" {
			outputPath = "pipelab_run_" + s.id
		}

		s.dataRecorder = datarecording.NewDataRecorder(outputPath)
		s.engine.AcceptHook(datarecording.NewStepRecorder(s.dataRecorder))
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}

		s.monitor.RegisterEngine(s.engine)
		s.monitorURL = s.monitor.StartServer()
	}

	return s
}
