// Package source adapts the external article collaborators.
//
// FreshRSS is reached through its Google Reader compatible API with a
// ClientLogin token; Wallabag through its REST API behind an OAuth2 password
// grant. Both return Items keyed by (source, source-native id) so the ledger
// can deduplicate across runs. Failures are classified with
// services.ErrSourceUnavailable so the pipeline can skip a category and keep
// going.
package source
