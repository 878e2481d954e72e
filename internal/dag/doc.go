// Package dag models a static task graph and executes it.
//
// A Graph is validated once on construction and never mutated. An Executor
// runs a Graph with bounded parallelism: a task starts only after every
// upstream task succeeded, failed tasks are retried per RetryPolicy, and a
// permanent failure marks all transitive descendants upstream_failed while
// independent branches keep running.
package dag
