// Package cli renders command output for the craftlure tool.
package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/energizer-project/craftlure/internal/network"
	"github.com/energizer-project/craftlure/internal/protocol"
)

// RenderProbe writes a probe result as a two-column table.
func RenderProbe(w io.Writer, r *network.ProbeResult) {
	tw := newTable(w, []string{"Field", "Value"})

	pong := "no reply"
	if r.PongOK {
		pong = r.Latency.Round(time.Millisecond).String()
	}

	favicon := "-"
	if r.Status.Favicon != "" {
		favicon = fmt.Sprintf("%d bytes", len(r.Status.Favicon))
	}

	tw.AppendBulk([][]string{
		{"Address", r.Address},
		{"Version", r.Status.Version.Name},
		{"Protocol", strconv.Itoa(r.Status.Version.Protocol)},
		{"Players", fmt.Sprintf("%d/%d", r.Status.Players.Online, r.Status.Players.Max)},
		{"Description", truncate(r.Status.DescriptionText(), 60)},
		{"Favicon", favicon},
		{"Ping", pong},
		{"Total", r.Duration.Round(time.Millisecond).String()},
	})
	tw.Render()
}

// RenderIdentity writes the offline identity of each username.
func RenderIdentity(w io.Writer, usernames []string) {
	tw := newTable(w, []string{"Username", "Offline UUID"})
	for _, name := range usernames {
		tw.Append([]string{name, protocol.NewOfflineIdentity(name).String()})
	}
	tw.Render()
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(header)
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)
	return tw
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
