// Package mgit is the core of a fleet-scale multi-repository orchestrator.
//
// A host process (a CLI, a service, a test harness) resolves credentials
// and configuration on its own and hands mgit a map of [ProviderConfig]
// values. From there mgit can resolve repository patterns across multiple
// providers concurrently ([Resolve]), run bounded-concurrency bulk
// clone/pull/sync operations ([Bulk]), and stream incremental file-level
// change records for a local working tree against a persisted anchor
// ([ChangePipeline]).
//
// mgit never pushes to a remote, never mutates issues or pull requests,
// and never hosts repositories itself: it is strictly a read-oriented
// orchestrator and change emitter.
package mgit
