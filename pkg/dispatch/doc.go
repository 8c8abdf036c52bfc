// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package dispatch runs per-job actions with bounded concurrency.
//
// A Dispatcher admits at most Limit actions at a time and returns only
// after every admitted action has finished. Each action hands its Outcome
// back to the coordinating goroutine over a channel; the coordinator folds
// outcomes into a Result sequentially after the join, so no state is
// shared between workers and no lock is needed.
//
//	d := dispatch.New(4)
//	res := d.Run(ctx, dispatch.PerFile(paths), func(ctx context.Context, job dispatch.Job) dispatch.Outcome {
//	    out, err := run(ctx, job.Paths...)
//	    return dispatch.Outcome{Job: job, Output: out, Err: err}
//	})
//	// res is complete here: every worker has returned.
package dispatch
