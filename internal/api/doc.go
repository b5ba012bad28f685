// Package api provides the JSON REST API server for EduMentor.
//
// # Architecture
//
// The server uses Go 1.22+ routing with a layered middleware stack:
//
//	Recovery → RequestID → Logging → CORS → RateLimit → Routes
//
// Health probes (/health, /ready) bypass the middleware stack via a
// top-level mux, ensuring they remain fast and unauthenticated. All
// dependencies are consumer-defined interfaces, so handlers can be tested
// against fakes; handler groups whose dependencies are nil are simply not
// registered.
//
// # Endpoints
//
// Health probes (no middleware):
//   - GET /health — returns {"status":"ok"}
//   - GET /ready  — pings the database when one is configured
//
// Chat:
//   - POST /api/v1/chat        — route a message to an agent, JSON reply
//   - POST /api/v1/chat/stream — same, streamed over SSE
//
// Profiles:
//   - GET /api/v1/profiles/{userID} — fetch a student profile
//   - PUT /api/v1/profiles/{userID} — create or replace a profile
//
// Study material:
//   - POST   /api/v1/subjects/{subject}/documents        — multipart PDF upload
//   - POST   /api/v1/subjects/{subject}/links            — ingest a web article
//   - GET    /api/v1/subjects/{subject}/search?q=&k=     — raw similarity search
//   - GET    /api/v1/subjects/stats                      — per-subject index stats
//   - DELETE /api/v1/subjects/{subject}/documents/{docID}
//
// History:
//   - GET    /api/v1/history/{userID}?limit=&subject=
//   - GET    /api/v1/history/{userID}/sessions
//   - GET    /api/v1/history/{userID}/stats
//   - GET    /api/v1/history/{userID}/search?q=
//   - DELETE /api/v1/history/{userID}
//
// Quizzes:
//   - POST   /api/v1/quiz/generate           — new quiz, correct answers withheld
//   - POST   /api/v1/quiz/submit             — grade against the stored questions
//   - GET    /api/v1/quiz/results/{userID}
//   - GET    /api/v1/quiz/result/{resultID}
//   - GET    /api/v1/quiz/statistics/{userID}
//   - DELETE /api/v1/quiz/results/{userID}
//   - GET    /api/v1/quiz/report/{resultID}?student_name= — PDF download
//
// Metrics:
//   - GET /api/v1/metrics — in-process counters snapshot
//
// # Error Handling
//
// Success responses are plain payloads; errors use an envelope:
//
//	{"error": {"code": "...", "message": "..."}}
//
// Store sentinels map to statuses (not-found 404, ownership 403, validation
// 400, rate limiting 429 from middleware, default 500). Chat is the
// exception: once the orchestrator accepts a request, agent failures come
// back as a 200 with an apology reply, never a 5xx, so a broken model does
// not break the chat client.
//
// # SSE Streaming
//
// Chat responses stream via Server-Sent Events with typed events:
//
//   - chunk: incremental text content
//   - done:  final response with session metadata
//   - error: request validation or stream failure
//
// # Security
//
// The middleware stack enforces per-IP rate limiting (token bucket), CORS
// with an explicit origin allowlist, and standard security headers. Uploads
// are capped with http.MaxBytesReader, filenames sanitized, and PDF magic
// bytes checked before extraction.
package api
