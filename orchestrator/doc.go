/*
Package orchestrator sequences generation runs.

A run executes on a single background worker while the caller's main
context pumps the scene dispatcher. The worker builds one job per work
item according to the selected mode, drives the backend through the
protocol client, and hands every scene touch (guidance renders, composite
renders, projection) to the main context. Exactly one run may be active
per orchestrator; cancellation is cooperative and ends the run with a
cancelled outcome rather than an error.
*/
package orchestrator
