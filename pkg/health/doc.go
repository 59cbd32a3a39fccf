/*
Package health provides two things: generic reachability checkers (HTTP,
TCP) that the QueueManager uses to preflight a compute backend before
leasing tasks against it, and the server's own /health, /ready, /metrics
HTTP surface.

The Checker interface is adapted from a generic container health monitor,
generalized from "is this container's process alive" to "is this backend
dependency reachable":

	checker := health.NewTCPChecker("scheduler.local:8786")
	result := checker.Check(ctx)
	if !result.Healthy {
		// fail fast instead of leasing tasks the backend can't run
	}

Server wraps a Store and answers liveness/readiness probes the same way a
manager-backed HealthServer would, minus the Raft leader check it has no
analogue for.
*/
package health
