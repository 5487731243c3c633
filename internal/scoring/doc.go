// Package scoring assigns each canonical event a heat score and a
// surprise score: an AI judgment when a scoring backend is configured
// and the per-run call budget allows it, a heuristic formula otherwise,
// and a straight reuse of the previous run's score when nothing about
// the event has changed since.
package scoring
