// Package command defines the contract between the connection core and
// the command layer, plus the built-in diagnostic handler.
package command

import (
	"github.com/zogwei/greys-anatomy/internal/session"
)

// Prompt is written to the client whenever the server is ready for the
// next command.
const Prompt = "ga?>"

// Handler executes one decoded command line against a session.
//
// Execute returns an error only for network-communication failures
// (the caller destroys the session on those).  Ordinary command
// failures are the handler's own concern: it reports them to the
// client over the session's connection and returns nil.
type Handler interface {
	Execute(line string, sess *session.Session) error

	// Destroy tears the handler down during shutdown.  No Execute
	// calls are issued afterwards.
	Destroy()
}
