// Package pipeline runs `prog1 && prog2 | prog3 > file` with real processes.
//
// A Supervisor launches stage 1 and waits for it. If it exits 0, stages 2 and 3
// are started concurrently with one anonymous pipe between them and stage 3's
// output redirected to a file. The file is opened inside the stage-3 child,
// never by the supervisor.
//
// Pipe endpoints are ownership tokens: once the supervisor releases an Endpoint
// it can't be bound or closed again, so the reader always sees end-of-stream
// when the writer exits.
package pipeline
