package client

/*
Package `client` implements the worker side of the server: a `Handler` owns one accepted connection and runs the
line protocol on it until the client quits, asks for a shutdown, disconnects, or the supervisor tells it to stop.

A handler never shares memory with its supervisor. It talks back only through a `Coordinator`, which says either
"ready" (the supervisor may accept the next connection) or "shutdown" (stop the whole service). Whether the worker
runs as a separate process or as a goroutine is decided by whoever builds the Coordinator and the stop channel.

Stop requests are honoured at the top of every request: a handler blocked reading a line has its read cut short,
then says goodbye to the client and closes the connection, the same way it does when the client quits.
*/
