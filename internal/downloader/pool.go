// internal/downloader/pool.go
package downloader

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
)

// WorkerPool manages concurrent downloads using a worker pool pattern
type WorkerPool struct {
	downloader  *Downloader
	concurrency int
	progress    io.Writer
}

// NewWorkerPool creates a new worker pool with specified concurrency
func NewWorkerPool(concurrency int, d *Downloader) *WorkerPool {
	if concurrency <= 0 {
		concurrency = 4
	}
	if concurrency > 16 {
		concurrency = 16 // the CDN throttles aggressive clients
	}

	return &WorkerPool{
		downloader:  d,
		concurrency: concurrency,
		progress:    os.Stderr,
	}
}

// SetProgressWriter sets where the progress bar is drawn; nil hides it
func (wp *WorkerPool) SetProgressWriter(w io.Writer) {
	wp.progress = w
}

// DownloadBatch downloads every job and returns one result per job
func (wp *WorkerPool) DownloadBatch(ctx context.Context, jobs []Job, opts DownloadOptions) []*DownloadResult {
	if len(jobs) == 0 {
		return []*DownloadResult{}
	}

	var bar *progressbar.ProgressBar
	if wp.progress != nil {
		bar = progressbar.NewOptions(len(jobs),
			progressbar.OptionSetWriter(wp.progress),
			progressbar.OptionSetDescription("media"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	} else {
		bar = progressbar.DefaultSilent(int64(len(jobs)))
	}
	defer func() { _ = bar.Finish() }()

	queue := make(chan Job, len(jobs))
	results := make(chan *DownloadResult, len(jobs))

	var wg sync.WaitGroup
	for w := 1; w <= wp.concurrency; w++ {
		wg.Add(1)
		go wp.worker(ctx, w, queue, results, opts, &wg)
	}

	for _, j := range jobs {
		queue <- j
	}
	close(queue)

	go func() {
		wg.Wait()
		close(results)
	}()

	allResults := make([]*DownloadResult, 0, len(jobs))
	for result := range results {
		allResults = append(allResults, result)
		_ = bar.Add(1)
	}

	return allResults
}

// worker processes download jobs from the queue
func (wp *WorkerPool) worker(ctx context.Context, id int, queue <-chan Job, results chan<- *DownloadResult, opts DownloadOptions, wg *sync.WaitGroup) {
	defer wg.Done()

	for job := range queue {
		select {
		case <-ctx.Done():
			log.Debug().Int("worker_id", id).Msg("Worker cancelled")
			return
		default:
		}

		jobOpts := opts
		jobOpts.Filename = job.Filename
		result := wp.downloader.Download(ctx, job.URL, jobOpts)
		result.PostID = job.PostID

		if result.Error != nil {
			log.Warn().Err(result.Error).Str("url", job.URL).Str("post_id", job.PostID).Msg("Download failed")
		}
		results <- result
	}
}
