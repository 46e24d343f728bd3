// Package memory provides conversation persistence and history shaping.
//
// Store implementations persist full conversation transcripts keyed by
// conversation id (in-process map, SQLite under memory/sqlite). Policies
// shape the history snapshot handed to the model on each turn: full history,
// a sliding window, or model-written summarization on overflow. Policies
// never modify the stored conversation, only the per-request view.
package memory
