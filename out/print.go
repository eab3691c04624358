package out

import (
	"fmt"
	"io"
	"strings"
)

// protocol tokens
const (
	Ready   = "RDY"
	Valid   = "VALID"
	Invalid = "INVALID"
)

// Reply writes msg joined by newlines, nothing if there is nothing to write.
func Reply(w io.Writer, msg ...string) error {
	if len(msg) == 0 || (len(msg) == 1 && msg[0] == "") {
		return nil
	}
	_, err := io.WriteString(w, strings.Join(msg, "\n"))
	return err
}

// ReplyNL is like Reply, terminating the message with a newline.
func ReplyNL(w io.Writer, msg ...string) error {
	if len(msg) == 0 || (len(msg) == 1 && msg[0] == "") {
		return nil
	}
	return Reply(w, strings.Join(msg, "\n")+"\n")
}

func Welcome(w io.Writer, name string) error {
	return ReplyNL(w, "Welcome to "+name)
}

// Prompt tells the client that the server waits for one line
func Prompt(w io.Writer) error {
	return ReplyNL(w, Ready)
}

func Verdict(w io.Writer, valid bool) error {
	if valid {
		return ReplyNL(w, Valid)
	}
	return ReplyNL(w, Invalid)
}

// ReplyError reports a failed request, the connection stays open.
func ReplyError(w io.Writer, err error) error {
	return ReplyNL(w, "Error: "+strings.TrimSpace(err.Error()))
}

func Bye(w io.Writer, id int) error {
	return ReplyNL(w, fmt.Sprintf("Bye %d :)", id))
}
