// Package synth converts article text to audio.
//
// Engines wrap one speech backend each: the edge-tts and gtts-cli command
// line tools, and any OpenAI-compatible /v1/audio/speech endpoint such as
// Kokoro. A Session, created once per pipeline run, routes each item to its
// resolved engine and falls back to the configured fallback engine on any
// capability failure. Demotion is sticky for the life of the Session: once an
// engine fails it is not retried until the next run builds a new Session.
package synth
