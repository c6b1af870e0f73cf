package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/1broseidon/tagwm/internal/ipc"
)

var actionUsage = map[string]string{
	"view":      "view [--monitor NAME] <tag|previous>",
	"toggle":    "toggle [--monitor NAME] <tag>",
	"tag":       "tag [--client ID] <tag>",
	"toggletag": "toggletag [--client ID] <tag>",
	"send":      "send [--client ID] <monitor>",
	"focus":     "focus <client-id|next|prev>",
	"close":     "close [--client ID]",
	"layout":    "layout [--monitor NAME] <name|next|prev>",
	"master":    "master [--monitor NAME] factor|count <delta>",
	"set":       "set [--client ID] <property> [on|off|toggle]",
}

var actionArgs = map[string][2]int{
	"view":      {1, 1},
	"toggle":    {1, 1},
	"tag":       {1, 1},
	"toggletag": {1, 1},
	"send":      {1, 1},
	"focus":     {1, 1},
	"close":     {0, 0},
	"layout":    {1, 1},
	"master":    {2, 2},
	"set":       {1, 2},
}

// runAction sends one control command. Without --monitor the selected
// monitor is used; without --client the focused window.
func runAction(verb string, args []string) int {
	fs := flag.NewFlagSet(verb, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	monitor := fs.String("monitor", "", "Monitor (output name)")
	client := fs.String("client", "", "Client id (see 'tagwm clients')")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tagwm %s\n", actionUsage[verb])
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	n := actionArgs[verb]
	if fs.NArg() < n[0] || fs.NArg() > n[1] {
		fs.Usage()
		return 2
	}

	if err := sendAction(ipc.NewClient(), verb, *monitor, *client, fs.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func sendAction(c *ipc.Client, verb, monitor, client string, args []string) error {
	switch verb {
	case "view":
		if args[0] == "previous" {
			return c.ViewPrevious(monitor)
		}
		return c.ViewTag(monitor, args[0])
	case "toggle":
		return c.ToggleTag(monitor, args[0])
	case "tag":
		return c.MoveClientToTag(client, args[0])
	case "toggletag":
		return c.ToggleClientTag(client, args[0])
	case "send":
		return c.MoveClientToMonitor(client, args[0])
	case "focus":
		switch args[0] {
		case "next", "prev":
			return c.FocusDirection(args[0])
		}
		return c.FocusClient(args[0])
	case "close":
		return c.CloseClient(client)
	case "layout":
		return c.SetLayout(monitor, args[0])
	case "master":
		switch args[0] {
		case "factor":
			d, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid factor delta %q: %w", args[1], err)
			}
			return c.SetMaster(monitor, d, 0)
		case "count":
			d, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid count delta %q: %w", args[1], err)
			}
			return c.SetMaster(monitor, 0, d)
		}
		return fmt.Errorf("expected factor or count, got %q", args[0])
	case "set":
		value := "toggle"
		if len(args) > 1 {
			value = args[1]
		}
		return c.SetProperty(client, args[0], value)
	}
	return fmt.Errorf("unknown command: %s", verb)
}

func runReload(args []string) int {
	fs := flag.NewFlagSet("reload", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: tagwm reload")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Ask the running daemon to reload its configuration.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "reload takes no arguments")
		fs.Usage()
		return 2
	}
	if err := ipc.NewClient().Reload(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("config reloaded")
	return 0
}
