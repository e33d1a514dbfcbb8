// Command orchestrator-tui is a read-only operator dashboard: an agent
// availability grid plus a live tail of one project's canonical events. It
// speaks only the Hub's HTTP/WebSocket protocol and never imports the
// orchestrator core directly.
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	addr := flag.String("addr", "http://localhost:8088", "orchestratord HTTP address")
	project := flag.String("project", "", "project id to tail (defaults to the most recently active one)")
	flag.Parse()

	p := tea.NewProgram(newModel(*addr, *project), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "orchestrator-tui: %v\n", err)
		os.Exit(1)
	}
}
