package imagegen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Service is the fan-out orchestrator: it normalizes and uploads the source
// image once, then runs one provision→submit→poll pipeline per backend
// concurrently, reporting each outcome as soon as it resolves.
type Service struct {
	kie    *KieClient
	relay  *RelayClient
	poller *Poller
	logger zerolog.Logger
}

func NewService(kie *KieClient, relay *RelayClient, pollInterval, pollTimeout time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		kie:    kie,
		relay:  relay,
		poller: NewPoller(relay, pollInterval, pollTimeout, logger),
		logger: logger,
	}
}

// GenerateVariants turns one source image into up to count photorealistic
// variants, one per backend. The returned slice always has exactly count
// entries (capped at the number of configured backends); entry i corresponds
// to Backends[i] regardless of completion order. onResult, when non-nil, is
// invoked from each pipeline's goroutine the moment that pipeline resolves.
//
// Failures in the shared prefix (decode, upload) short-circuit the whole
// request: no jobs are launched and every outcome carries the shared error.
// A single backend's failure never affects its siblings.
func (s *Service) GenerateVariants(ctx context.Context, image []byte, prompt string, count int, onResult ResultFunc) []Outcome {
	if count > len(Backends) {
		count = len(Backends)
	}
	if count < 1 {
		count = 1
	}

	outcomes := make([]Outcome, count)
	for i := range outcomes {
		outcomes[i].Backend = Backends[i]
	}

	dataURI, err := NormalizeToDataURI(image)
	if err != nil {
		s.logger.Error().Err(err).Msg("fanout: normalize failed")
		for i := range outcomes {
			outcomes[i].Err = err
		}
		return outcomes
	}

	imageURL, err := s.kie.UploadImage(ctx, dataURI)
	if err != nil {
		s.logger.Error().Err(err).Msg("fanout: upload failed")
		for i := range outcomes {
			outcomes[i].Err = err
		}
		return outcomes
	}
	s.logger.Info().Int("backends", count).Msg("fanout: image staged, launching pipelines")

	var wg sync.WaitGroup
	for i := 0; i < count; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			outcome := s.runPipeline(ctx, Backends[idx], imageURL, prompt)
			outcomes[idx] = outcome
			if onResult != nil {
				onResult(idx, outcome)
			}
		}(i)
	}
	wg.Wait()

	return outcomes
}

// runPipeline executes the strictly sequential per-backend steps. Any step's
// failure terminates the pipeline with an absent result; provisioning and
// submission failures resolve immediately without consuming the poll budget.
func (s *Service) runPipeline(ctx context.Context, backend, imageURL, prompt string) Outcome {
	outcome := Outcome{Backend: backend}

	channelID, err := s.relay.NewChannel(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Str("backend", backend).Msg("fanout: channel provisioning failed")
		outcome.Err = err
		return outcome
	}

	taskID, err := s.kie.CreateTask(ctx, backend, s.relay.CallbackURL(channelID), imageURL, prompt)
	if err != nil {
		s.logger.Warn().Err(err).Str("backend", backend).Msg("fanout: submission failed")
		outcome.Err = err
		return outcome
	}
	s.logger.Info().Str("backend", backend).Str("task_id", taskID).Msg("fanout: task submitted")

	url, err := s.poller.Await(ctx, channelID)
	if err != nil {
		s.logger.Warn().Err(err).Str("backend", backend).Str("task_id", taskID).Msg("fanout: no result")
		outcome.Err = fmt.Errorf("backend %s: %w", backend, err)
		return outcome
	}

	s.logger.Info().Str("backend", backend).Str("task_id", taskID).Msg("fanout: variant ready")
	outcome.URL = url
	return outcome
}
