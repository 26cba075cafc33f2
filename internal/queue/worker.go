package queue

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// Worker processes jobs from a queue
type Worker struct {
	queue      *Queue
	handlers   map[JobType]JobHandler
	numWorkers int
	wg         sync.WaitGroup
	quit       chan struct{}
	scheduler  *gocron.Scheduler
}

// NewWorker creates a new worker
func NewWorker(queue *Queue, numWorkers int) *Worker {
	return &Worker{
		queue:      queue,
		handlers:   make(map[JobType]JobHandler),
		numWorkers: numWorkers,
		quit:       make(chan struct{}),
		scheduler:  gocron.NewScheduler(time.UTC),
	}
}

// RegisterHandler registers a handler for a job type
func (w *Worker) RegisterHandler(jobType JobType, handler JobHandler) {
	w.handlers[jobType] = handler
}

// Start starts the worker goroutines and the delayed-job sweep
func (w *Worker) Start() {
	log.Printf("Starting %d queue workers", w.numWorkers)

	for i := 0; i < w.numWorkers; i++ {
		w.wg.Add(1)
		go w.process(i)
	}

	if _, err := w.scheduler.Every(30).Seconds().Do(func() {
		if err := w.queue.PromoteDelayed(); err != nil {
			log.Printf("Error promoting delayed jobs: %v", err)
		}
	}); err != nil {
		log.Printf("Error scheduling delayed-job sweep: %v", err)
	}
	w.scheduler.StartAsync()
}

// Stop stops the worker
func (w *Worker) Stop() {
	log.Printf("Stopping queue workers")
	close(w.quit)
	w.wg.Wait()
	w.scheduler.Stop()
}

// process pulls jobs off the queue and dispatches them to their handlers
func (w *Worker) process(workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.quit:
			log.Printf("Worker %d stopped", workerID)
			return
		default:
			job, err := w.queue.Dequeue(1 * time.Second)
			if err != nil {
				log.Printf("Error dequeueing job: %v", err)
				time.Sleep(1 * time.Second)
				continue
			}
			if job == nil {
				continue
			}

			handler, ok := w.handlers[job.Type]
			if !ok {
				log.Printf("No handler registered for job type %s, dropping job %s", job.Type, job.ID)
				continue
			}

			if err := handler(context.Background(), *job); err != nil {
				if retryErr := w.queue.Retry(*job, err); retryErr != nil {
					log.Printf("Error scheduling retry for job %s: %v", job.ID, retryErr)
				}
			}
		}
	}
}
