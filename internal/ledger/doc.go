// Package ledger is the durable dedup record of converted source items.
//
// Each (source, source_id) key has at most one row. A converted row is never
// downgraded; a failed row is overwritten by a later successful conversion so
// failures never block retries. The pipeline is the only writer; the feed
// synthesizer works from the filesystem and never reads the ledger.
package ledger
