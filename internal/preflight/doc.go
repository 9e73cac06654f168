// Package preflight implements the diagnostics behind "articast run test".
//
// Checks cover the configuration file, the output and state directories,
// DNS and HTTPS reachability of every configured source and synthesis host,
// a capability probe (voice listing) of the primary and fallback engines,
// and the external binaries. Each check yields a Result; a failed check that
// is not Optional makes the run fail.
package preflight
