package pipeline

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"artifact-collector/src/metrics"
)

// Step is one named unit of work.
type Step struct {
	Name string
	Run  func() error
}

// StepError reports which step stopped the pipeline.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Pipeline runs steps strictly in order and stops at the first failure.
// Nothing is retried.
type Pipeline struct {
	logger  zerolog.Logger
	metrics *metrics.Recorder
	steps   []Step
	now     func() time.Time
}

func New(logger zerolog.Logger, rec *metrics.Recorder, steps ...Step) *Pipeline {
	return &Pipeline{
		logger:  logger.With().Str("component", "pipeline").Logger(),
		metrics: rec,
		steps:   steps,
		now:     time.Now,
	}
}

// Add appends a step.
func (p *Pipeline) Add(s Step) {
	p.steps = append(p.steps, s)
}

// Steps returns the step names in execution order.
func (p *Pipeline) Steps() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name
	}
	return names
}

// Run executes every step. A failing step is returned as *StepError.
func (p *Pipeline) Run() error {
	started := p.now()
	for i, s := range p.steps {
		log := p.logger.With().Str("step", s.Name).Int("index", i+1).Int("of", len(p.steps)).Logger()
		log.Info().Msg("step started")

		t0 := p.now()
		err := s.Run()
		d := p.now().Sub(t0)
		p.metrics.Step(s.Name, d, err)

		if err != nil {
			log.Error().Err(err).Dur("duration", d).Msg("step failed")
			return &StepError{Step: s.Name, Err: err}
		}
		log.Info().Dur("duration", d).Msg("step finished")
	}
	finished := p.now()
	p.metrics.Succeeded(finished)
	p.logger.Info().Dur("duration", finished.Sub(started)).Msg("pipeline finished")
	return nil
}
