// Package split contains the batch pipeline that turns notes with long
// answers into several short question/answer notes: candidate gating,
// change-set planning, the worker-pool runner, and the run report.
package split
