package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// configureLogging takes a log level in string format
// and configures the sirupsen/logrus package. the provided
// log level string is case insensitive.
func configureLogging(level string) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		log.SetLevel(log.DebugLevel)
	case "INFO":
		log.SetLevel(log.InfoLevel)
	case "WARN":
		log.SetLevel(log.WarnLevel)
	case "ERROR":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}

// getCliInput retrieves a given value from std using the
// provided CLI. A follow on action can be optionally provided
func getCliInput(reader *bufio.Reader, prompt string, action func(value string) (string, error)) (string, error) {
	fmt.Print(prompt)
	// read value from stdin and remove \n characters
	value, _ := reader.ReadString('\n')
	value = strings.TrimRight(value, "\r\n")

	// execute post action and return function
	return action(value)
}

// requireValue is a getCliInput action rejecting empty input.
func requireValue(name string) func(value string) (string, error) {
	return func(value string) (string, error) {
		if len(strings.TrimSpace(value)) == 0 {
			return "", fmt.Errorf("%s is required", name)
		}
		return strings.TrimSpace(value), nil
	}
}

// printResponse writes a relayed response in the form used by the send
// command: the reply text followed by the thread to continue on.
func printResponse(w io.Writer, response MessageResponse) {
	fmt.Fprintln(w, response.Response)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "thread: %s\n", response.ThreadId)
}
