// Package textutil prepares article text for speech synthesis and for use in
// artifact filenames.
//
// SpeechText strips non-prose HTML with goquery, converts the remainder to
// markdown, and flattens the markdown AST into plain sentences. The filename
// helpers remove filesystem-unsafe characters and normalise Unicode so that
// names round-trip through the feed synthesizer.
package textutil
