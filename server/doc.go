package server

/*
Package `server` implements the supervisor of bchecker. The supervisor owns the listening socket and accepts
connections one at a time; every accepted connection is handed to a freshly spawned, isolated worker (see the
`client` package for what a worker does with it).

The supervisor's loop is the only place where its state changes. Workers, OS signal handlers and process waiters
never touch that state: they post `Event`s to a `Mailbox`, which the loop drains once per wake-up. Three events exist:
a worker is ready (the loop lets the acceptor take the next connection), a shutdown was requested (every worker is
told to terminate, the loop waits a grace interval, kills the stragglers and closes the listener), and a worker
exited (its record is removed from the `Registry`).

How a worker is isolated is up to the `Spawner`: `GoroutineSpawner` keeps it in-process, the `exec` package
re-executes the binary so that every connection gets its own process.
*/
