package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/1broseidon/tagwm/internal/ipc"
	"github.com/1broseidon/tagwm/internal/wm"
)

// outputFlags registers --json. Without it, JSON is still used when stdout
// is not a terminal so that scripts get stable output.
func outputFlags(fs *flag.FlagSet) *bool {
	return fs.Bool("json", false, "Print JSON instead of a table")
}

func wantJSON(flagged bool) bool {
	return flagged || !term.IsTerminal(int(os.Stdout.Fd()))
}

func printJSON(v any) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func parseQueryFlags(name, usage string, args []string) (*bool, bool, int) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	asJSON := outputFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tagwm %s [--json]\n\n%s\n", name, usage)
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, false, 0
		}
		return nil, false, 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "%s takes no arguments\n", name)
		fs.Usage()
		return nil, false, 2
	}
	return asJSON, true, 0
}

func runStatus(args []string) int {
	asJSON, ok, code := parseQueryFlags("status", "Show daemon status via IPC.", args)
	if !ok {
		return code
	}
	status, err := ipc.NewClient().GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if wantJSON(*asJSON) {
		return printJSON(status)
	}
	fmt.Printf("daemon_running:   %v\n", status.DaemonRunning)
	fmt.Printf("instance:         %s\n", status.Instance)
	fmt.Printf("config:           %s\n", status.ConfigPath)
	fmt.Printf("uptime_seconds:   %d\n", status.UptimeSeconds)
	fmt.Printf("clients:          %d\n", status.Clients)
	fmt.Printf("tags:             %d\n", status.Tags)
	fmt.Printf("monitors:         %d\n", status.Monitors)
	fmt.Printf("focused:          %s\n", orDash(status.Focused.String()))
	fmt.Printf("exclusive_focus:  %v\n", status.ExclusiveFocus)
	return 0
}

func runClients(args []string) int {
	asJSON, ok, code := parseQueryFlags("clients", "List managed windows.", args)
	if !ok {
		return code
	}
	clients, err := ipc.NewClient().ListClients()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if wantJSON(*asJSON) {
		return printJSON(clients)
	}
	writeClients(os.Stdout, clients)
	return 0
}

func writeClients(w io.Writer, clients []wm.ClientInfo) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tAPP\tTITLE\tMONITOR\tTAGS\tLAYER\tFLAGS")
	for _, c := range clients {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, orDash(c.AppID), truncate(c.Title, 40), orDash(c.MonitorName),
			orDash(strings.Join(c.TagNames, ",")), c.Layer, clientFlags(c))
	}
	tw.Flush()
}

func clientFlags(c wm.ClientInfo) string {
	var flags []string
	add := func(on bool, name string) {
		if on {
			flags = append(flags, name)
		}
	}
	add(c.Focused, "focused")
	add(c.Banned, "hidden")
	add(c.Floating, "floating")
	add(c.Fullscreen, "fullscreen")
	add(c.Sticky, "sticky")
	add(c.Minimized, "minimized")
	add(c.Urgent, "urgent")
	add(c.State != wm.StateMapped.String(), c.State)
	return orDash(strings.Join(flags, ","))
}

func runTags(args []string) int {
	asJSON, ok, code := parseQueryFlags("tags", "List tags on every monitor.", args)
	if !ok {
		return code
	}
	tags, err := ipc.NewClient().ListTags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if wantJSON(*asJSON) {
		return printJSON(tags)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MONITOR\tTAG\tVIEWED\tLAYOUT\tMFACT\tNMASTER\tCLIENTS")
	for _, t := range tags {
		viewed := ""
		if t.Selected {
			viewed = "*"
		}
		if t.Urgent {
			viewed += "!"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.2f\t%d\t%d\n",
			orDash(t.MonitorName), t.Name, viewed, t.Layout, t.MasterFactor, t.MasterCount, t.Clients)
	}
	tw.Flush()
	return 0
}

func runMonitors(args []string) int {
	asJSON, ok, code := parseQueryFlags("monitors", "List monitors.", args)
	if !ok {
		return code
	}
	mons, err := ipc.NewClient().GetMonitors()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if wantJSON(*asJSON) {
		return printJSON(mons)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tGEOMETRY\tWORKAREA\tSCALE\tTAGS\tLAYOUT\tCLIENTS")
	for _, m := range mons {
		name := m.Name
		if m.Selected {
			name += " *"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%s\t%s\t%d\n",
			name, m.Geometry, m.WorkArea, m.Scale, orDash(strings.Join(m.SelectedTags, ",")), m.Layout, m.Clients)
	}
	tw.Flush()
	return 0
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
