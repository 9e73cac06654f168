// Package runmode selects and runs one of the process modes: the long-lived
// feed server with its schedule, a single update, the update loop, the
// diagnostic checks, or an interactive shell.
//
// Controller owns the lifecycle of each mode. Collaborators (pipeline, feed
// server, trigger, diagnostics) are injected through Options so the CLI can
// wire the real implementations and tests can substitute fakes. Assemble
// builds the production wiring from a validated configuration.
package runmode
