package main

import (
	"fmt"
	"strings"
)

type InvalidConfigError struct {
	Missing []string
}

func (e InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: missing or invalid values for %s", strings.Join(e.Missing, ", "))
}

type EnvFileNotFoundError struct {
	Path string
}

func (e EnvFileNotFoundError) Error() string {
	return fmt.Sprintf("cannot find env file at provided path %s", e.Path)
}

type ChatGPTErrorType string

const (
	ChatGPTErrorTypeAuth ChatGPTErrorType = "authentication"
	ChatGPTErrorTypeAPI  ChatGPTErrorType = "api"
)

type ChatGPTError struct {
	Code int
	Body map[string]interface{}
	Type ChatGPTErrorType
}

func (e ChatGPTError) Error() string {
	return fmt.Sprintf("received ChatGPT error type %s: status code %d", e.Type, e.Code)
}

type RelayErrorType string

const (
	// RelayErrorTypeClient marks failures caused by the submitted message.
	RelayErrorTypeClient RelayErrorType = "client"
	// RelayErrorTypeServer marks failures of the assistant run itself.
	RelayErrorTypeServer RelayErrorType = "server"
)

type RelayError struct {
	Type    RelayErrorType
	Message string
}

func (e RelayError) Error() string {
	return e.Message
}
