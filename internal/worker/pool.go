// Package worker provides background processing for song analysis jobs.
package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ewilliams-labs/jamhub/internal/core/domain"
	"github.com/ewilliams-labs/jamhub/internal/core/ports"
)

// Job represents one background analysis task: fetch audio features and a
// genre label for a freshly queued song.
type Job struct {
	AreaID string
	Song   domain.Song
}

// Applier receives finished analysis results. The area registry implements
// it; results for songs that already left the queue are dropped there.
type Applier interface {
	ApplyAnalysis(areaID, songID string, features *domain.AudioFeatures, genre string)
}

// Pool manages background workers for analysis jobs.
type Pool struct {
	catalog ports.CatalogProvider
	tagger  ports.GenreTagger
	applier Applier
	jobs    chan Job
	wg      sync.WaitGroup
	timeout time.Duration
}

var _ ports.AnalysisScheduler = (*Pool)(nil)

// NewPool creates a worker pool with the given queue size. The tagger may be
// nil when genre classification is disabled.
func NewPool(catalog ports.CatalogProvider, tagger ports.GenreTagger, applier Applier, queueSize int) *Pool {
	if queueSize < 1 {
		queueSize = 1
	}
	return &Pool{
		catalog: catalog,
		tagger:  tagger,
		applier: applier,
		jobs:    make(chan Job, queueSize),
		timeout: 30 * time.Second,
	}
}

// Start launches the worker goroutines.
func (p *Pool) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				p.processJob(job)
			}
		}()
	}
}

// Stop waits for workers to finish after closing the queue.
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
}

// ScheduleAnalysis queues a job without blocking; on a full queue the job is
// dropped with a warning, the song simply stays unanalyzed.
func (p *Pool) ScheduleAnalysis(areaID string, song domain.Song) {
	select {
	case p.jobs <- Job{AreaID: areaID, Song: song}:
	default:
		log.Printf("WARN worker: dropping analysis job for song %s", song.ID)
	}
}

func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	var features *domain.AudioFeatures
	got, err := p.catalog.GetAudioFeatures(ctx, job.Song.URI)
	if err != nil {
		log.Printf("WARN worker: features for song %s failed: %v", job.Song.ID, err)
	} else {
		features = &got
	}

	genre := ""
	if p.tagger != nil {
		names := make([]string, 0, len(job.Song.Artists))
		for _, a := range job.Song.Artists {
			names = append(names, a.Name)
		}
		genre, err = p.tagger.TagGenre(ctx, job.Song.Name, names)
		if err != nil {
			log.Printf("WARN worker: genre for song %s failed: %v", job.Song.ID, err)
		}
	}

	if features == nil && genre == "" {
		return
	}
	p.applier.ApplyAnalysis(job.AreaID, job.Song.ID, features, genre)
}
