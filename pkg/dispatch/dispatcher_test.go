// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func makePaths(n int) []string {
	paths := make([]string, n)
	for i := range paths {
		paths[i] = fmt.Sprintf("file%d.py", i)
	}
	return paths
}

func TestNew_DefaultLimit(t *testing.T) {
	tests := []struct {
		limit int
		want  int
	}{
		{0, DefaultLimit},
		{-3, DefaultLimit},
		{1, 1},
		{16, 16},
	}

	for _, tt := range tests {
		if got := New(tt.limit).Limit(); got != tt.want {
			t.Errorf("New(%d).Limit() = %d, want %d", tt.limit, got, tt.want)
		}
	}
}

func TestRun_NeverExceedsLimit(t *testing.T) {
	for _, limit := range []int{1, 2, 3, 8} {
		t.Run(fmt.Sprintf("limit=%d", limit), func(t *testing.T) {
			var peak atomic.Int64
			d := New(limit, WithObserver(func(n int) {
				for {
					cur := peak.Load()
					if int64(n) <= cur || peak.CompareAndSwap(cur, int64(n)) {
						return
					}
				}
			}))

			res := d.Run(context.Background(), PerFile(makePaths(20)), func(ctx context.Context, job Job) Outcome {
				time.Sleep(5 * time.Millisecond)
				return Outcome{Job: job}
			})

			if res.Jobs != 20 {
				t.Fatalf("Jobs = %d, want 20", res.Jobs)
			}
			if got := peak.Load(); got > int64(limit) {
				t.Errorf("peak in-flight = %d, exceeds limit %d", got, limit)
			}
			if got := peak.Load(); got < 1 {
				t.Errorf("observer never called")
			}
		})
	}
}

func TestRun_ItemsIndependentOfLimit(t *testing.T) {
	paths := makePaths(13)
	for _, limit := range []int{1, 2, 4, 32} {
		res := New(limit).Run(context.Background(), Batch(paths, 5), func(ctx context.Context, job Job) Outcome {
			return Outcome{Job: job, Output: []byte(strings.Join(job.Paths, "\n"))}
		})
		if res.Items != len(paths) {
			t.Errorf("limit %d: Items = %d, want %d", limit, res.Items, len(paths))
		}
		if res.Jobs != 3 {
			t.Errorf("limit %d: Jobs = %d, want 3", limit, res.Jobs)
		}
	}
}

func TestRun_NoJobsLaunchesNothing(t *testing.T) {
	called := false
	res := New(2).Run(context.Background(), nil, func(ctx context.Context, job Job) Outcome {
		called = true
		return Outcome{Job: job}
	})

	if called {
		t.Error("action called for empty job list")
	}
	if res.Jobs != 0 || res.Items != 0 || len(res.Outcomes) != 0 {
		t.Errorf("expected zero result, got %+v", res)
	}
}

func TestRun_FailuresDoNotStopSiblings(t *testing.T) {
	errBoom := errors.New("cannot start")
	res := New(2).Run(context.Background(), PerFile(makePaths(6)), func(ctx context.Context, job Job) Outcome {
		if job.Paths[0] == "file3.py" {
			return Outcome{Job: job, Err: errBoom}
		}
		return Outcome{Job: job, Output: []byte("ok\n")}
	})

	if res.Jobs != 6 {
		t.Errorf("Jobs = %d, want 6", res.Jobs)
	}
	if res.Failures != 1 {
		t.Errorf("Failures = %d, want 1", res.Failures)
	}
}

func TestRun_OutputStaysContiguous(t *testing.T) {
	res := New(4).Run(context.Background(), PerFile(makePaths(8)), func(ctx context.Context, job Job) Outcome {
		var b strings.Builder
		for i := 0; i < 3; i++ {
			fmt.Fprintf(&b, "%s line %d\n", job.Paths[0], i)
		}
		return Outcome{Job: job, Output: []byte(b.String())}
	})

	lines := strings.Split(strings.TrimSpace(string(res.Output())), "\n")
	if len(lines) != 24 {
		t.Fatalf("got %d lines, want 24", len(lines))
	}
	for i := 0; i < len(lines); i += 3 {
		owner := strings.Fields(lines[i])[0]
		for j := 1; j < 3; j++ {
			if !strings.HasPrefix(lines[i+j], owner+" ") {
				t.Fatalf("output of %s interleaved at line %d: %q", owner, i+j, lines[i+j])
			}
		}
	}
}

func TestRun_OutcomesInJobOrder(t *testing.T) {
	jobs := PerFile(makePaths(6))
	// Earlier jobs sleep longer, so they finish last.
	res := New(6).Run(context.Background(), jobs, func(ctx context.Context, job Job) Outcome {
		var idx int
		fmt.Sscanf(job.Paths[0], "file%d.py", &idx)
		time.Sleep(time.Duration(6-idx) * 10 * time.Millisecond)
		return Outcome{Job: job, Output: []byte(job.Paths[0] + "\n")}
	})

	if len(res.Outcomes) != len(jobs) {
		t.Fatalf("got %d outcomes, want %d", len(res.Outcomes), len(jobs))
	}
	for i, o := range res.Outcomes {
		if o.Job.Paths[0] != jobs[i].Paths[0] {
			t.Errorf("Outcomes[%d] = %s, want %s", i, o.Job.Paths[0], jobs[i].Paths[0])
		}
	}

	var want strings.Builder
	for _, j := range jobs {
		want.WriteString(j.Paths[0] + "\n")
	}
	if got := string(res.Output()); got != want.String() {
		t.Errorf("Output() = %q, want %q", got, want.String())
	}
}

func TestRun_CancelledContextSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var started atomic.Int64

	res := New(1).Run(ctx, PerFile(makePaths(10)), func(ctx context.Context, job Job) Outcome {
		if started.Add(1) == 1 {
			cancel()
		}
		return Outcome{Job: job}
	})

	if res.Jobs+res.Skipped != 10 {
		t.Errorf("Jobs(%d) + Skipped(%d) != 10", res.Jobs, res.Skipped)
	}
	if res.Skipped == 0 {
		t.Error("expected some jobs to be skipped after cancellation")
	}
}

func TestResult_OutputAddsTrailingNewline(t *testing.T) {
	r := Result{Outcomes: []Outcome{
		{Output: []byte("a")},
		{Output: nil},
		{Output: []byte("b\n")},
	}}
	if got := string(r.Output()); got != "a\nb\n" {
		t.Errorf("Output() = %q, want %q", got, "a\nb\n")
	}
}

func TestBatch(t *testing.T) {
	t.Run("splits evenly", func(t *testing.T) {
		jobs := Batch(makePaths(6), 2)
		if len(jobs) != 3 {
			t.Fatalf("len = %d, want 3", len(jobs))
		}
	})

	t.Run("remainder", func(t *testing.T) {
		jobs := Batch(makePaths(5), 2)
		if len(jobs) != 3 || len(jobs[2].Paths) != 1 {
			t.Fatalf("unexpected batches: %+v", jobs)
		}
	})

	t.Run("non-positive size is one batch", func(t *testing.T) {
		jobs := Batch(makePaths(7), 0)
		if len(jobs) != 1 || len(jobs[0].Paths) != 7 {
			t.Fatalf("unexpected batches: %+v", jobs)
		}
	})

	t.Run("empty", func(t *testing.T) {
		if jobs := Batch(nil, 3); jobs != nil {
			t.Fatalf("Batch(nil) = %+v, want nil", jobs)
		}
	})
}

func TestPerFile(t *testing.T) {
	jobs := PerFile([]string{"a", "b"})
	if len(jobs) != 2 || jobs[1].Paths[0] != "b" {
		t.Errorf("PerFile = %+v", jobs)
	}
}
