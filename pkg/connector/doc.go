// Package connector holds the framework the Dayforce source is built on.
//
// # Architecture Overview
//
// The connector package is organized into several sub-packages:
//
//   - core: the Source and Stream interfaces, stream descriptors, sync
//     phases and the Dependencies every stream receives (logger, reporter,
//     metrics collector, settings and clock).
//
//   - base: BaseStream, which streams embed for phase tracking, tracing,
//     job timing and record emission; the window iterator; bookmark access;
//     and the ErrorHandler that logs, reports and counts skipped records.
//
//   - registry: a factory registry. Sources register themselves in init and
//     the CLI creates them by name.
//
//   - sources/dayforce: the employees, punch and report streams.
//
// # Core Concepts
//
// Streams are described statically by a core.StreamDescriptor: the resource,
// key properties, replication key and method, the request parameters a user
// may override and the window step. Configuration problems are detected when
// streams are built, before any request is sent.
//
// A stream's Sync receives a core.SyncRun carrying the state, protocol writer,
// catalog entry and the run's start time. Incremental streams advance their
// bookmark to that time before fetching.
//
// Data anomalies (empty records, failed redaction, report row ceilings) are
// logged, forwarded to the reporter and skipped. Every other error ends the
// stream.
package connector
