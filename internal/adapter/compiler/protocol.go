package compiler

import "time"

// Message types of the compiler websocket protocol
const (
	MsgInit   = "init"
	MsgKill   = "kill"
	MsgInput  = "input"
	MsgStdout = "stdout"
	MsgStderr = "stderr"
	MsgExit   = "exit"
	MsgError  = "error"

	DefaultKillGrace = 2 * time.Second
	writeTimeout     = 5 * time.Second
)

// Message is one JSON frame. Init frames carry the program; input and output
// frames carry Data. The exit frame carries the exit code as Data.
type Message struct {
	Type     string `json:"type"`
	Language string `json:"language,omitempty"`
	Code     string `json:"code,omitempty"`
	Input    string `json:"input,omitempty"`
	Data     string `json:"data,omitempty"`
}
