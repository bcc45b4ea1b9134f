// Package pipeline exposes the agent loop behind a synchronous chat
// contract. A Pipe call appends the user message to the history, drives a
// full run, and returns the collected transcript as one string, with a small
// model catalog for clients that select models by id.
package pipeline
