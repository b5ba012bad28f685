// Package mcp exposes the study material index and the quiz generator
// over the Model Context Protocol, so external assistants and IDE
// integrations can use them as tools.
//
// # Tools
//
//   - search_materials: semantic search over one subject's indexed
//     documents
//   - subject_stats: per-subject index sizes and sources
//   - generate_quiz: multiple choice quiz on a topic, including correct
//     answers and explanations (registered only when a generator is
//     configured)
//
// Unlike the HTTP API, generate_quiz returns the full question set. MCP
// clients are trusted tooling building their own flows, not students
// taking a graded quiz, and nothing is persisted for them.
//
// # Error handling
//
// Caller mistakes (unknown subject, blank query, bad difficulty) come
// back as tool results with IsError set, so the calling model can read
// the message and correct itself. Infrastructure failures are returned
// as protocol errors.
//
// # Transport
//
// The server is transport-agnostic; the mcp subcommand runs it over
// stdio, which is what Claude Desktop, Cursor, and the Genkit CLI
// expect.
package mcp
