// Package build provides the canonical build execution pipeline for vaultsite.
//
// A build runs a fixed sequence of stages over one vault: configure, discover,
// parse, corpus, render, graph, filter, emit and write. Per-document stages
// fan out over a bounded worker pool and end in a barrier; every document is
// isolated behind a timeout and a panic boundary so a single bad file never
// stalls or aborts the batch. Cancellation is checked between stages.
//
// All execution paths (CLI build, watch, tests) route through BuildService.
package build
