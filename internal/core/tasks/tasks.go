// Copyright 2025.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package tasks runs named functions on a bounded worker pool and
// delivers every outcome, success or failure, on one result channel.
package tasks

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Result is the completion record of one submitted task. Exactly one
// Result is delivered per Submit; Err carries the failure, if any.
type Result struct {
	ID    string
	Name  string
	Value any
	Err   error
}

type job struct {
	id   string
	name string
	run  func() (any, error)
}

// Runner owns a fixed pool of workers draining a job queue. Tasks run
// in parallel across workers; callers that need per-profile ordering
// must serialize their own submissions.
type Runner struct {
	logger    *zap.SugaredLogger
	jobs      chan job
	results   chan Result
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewRunner creates a new instance of Runner with the given number of
// workers.
func NewRunner(logger *zap.SugaredLogger, workers int) *Runner {
	if workers <= 0 {
		workers = 2
	}
	r := &Runner{
		logger:  logger,
		jobs:    make(chan job, workers),
		results: make(chan Result, workers),
	}
	for i := 0; i < workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	return r
}

// Submit queues fn for execution and returns its task id. It must not
// be called after Close.
func (r *Runner) Submit(name string, fn func() (any, error)) string {
	id := uuid.NewString()
	r.jobs <- job{id: id, name: name, run: fn}
	return id
}

// Results returns the channel every task outcome is delivered on. The
// channel is closed by Close once all queued tasks have finished.
func (r *Runner) Results() <-chan Result {
	return r.results
}

// Close stops accepting tasks, waits for queued ones to finish, and
// closes the result channel.
func (r *Runner) Close() {
	r.closeOnce.Do(func() {
		close(r.jobs)
		r.wg.Wait()
		close(r.results)
	})
}

func (r *Runner) worker() {
	defer r.wg.Done()
	for j := range r.jobs {
		r.results <- r.execute(j)
	}
}

// execute runs one task. A panic is recovered so a faulty task can
// never take a worker down; it surfaces as a generic error with the
// detail in the log.
func (r *Runner) execute(j job) (result Result) {
	result = Result{ID: j.id, Name: j.name}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Errorw("task panicked", "task", j.name, "panic", rec)
			result.Value = nil
			result.Err = errors.New("unexpected error, see log")
		}
	}()
	result.Value, result.Err = j.run()
	return result
}
