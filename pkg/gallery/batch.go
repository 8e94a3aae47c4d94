package gallery

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

type sourceJob struct {
	Source *Source
	Report *Report
}

// ProcessAll runs ProcessSource over every source, Config.Workers at a
// time. Sources share nothing but read-only config, so a failure in one
// never stops the others. Reports come back in catalog order.
func (g *Gallery) ProcessAll(ctx context.Context, sources []*Source, base string) []*Report {
	var wg sync.WaitGroup
	jobsChan := make(chan sourceJob, len(sources))
	resultsChan := make(chan sourceJob, len(sources))

	nWorkers := g.Config.Workers
	if nWorkers < 1 {
		nWorkers = 1
	}
	for i := 0; i < nWorkers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()
			for job := range jobsChan {
				if ctx.Err() != nil {
					job.Report = &Report{SourceID: job.Source.ID, SourceName: job.Source.Name, Err: ctx.Err()}
				} else {
					job.Report, _ = g.ProcessSource(ctx, job.Source, base)
				}
				resultsChan <- job
			}
		}()
	}

	for _, src := range sources {
		jobsChan <- sourceJob{Source: src}
	}

	close(jobsChan)
	wg.Wait()
	close(resultsChan)

	order := map[*Source]int{}
	for i, src := range sources {
		order[src] = i
	}
	reports := make([]*Report, len(sources))
	nFailed := 0
	for result := range resultsChan {
		reports[order[result.Source]] = result.Report
		if result.Report.Err != nil {
			nFailed++
		}
	}

	zerolog.Ctx(ctx).Info().Int("sources", len(sources)).Int("failed", nFailed).Int("workers", nWorkers).
		Msg("batch done")
	return reports
}
