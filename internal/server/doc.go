// Package server serves the output directory over HTTP for podcast clients.
//
// Files are read through an os.Root opened on the output directory, so
// symlinks and paths that resolve outside it are refused by the kernel-level
// lookup rather than by string checks alone. Only GET, HEAD, and OPTIONS are
// accepted. Dotfiles (including in-flight temporary feed and artifact files)
// and directories answer 404. Every response carries permissive CORS headers
// and Cache-Control: no-store, so clients always see the feed as last
// written.
package server
