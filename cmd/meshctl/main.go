package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/matheus3301/meshchat/internal/api"
	"github.com/matheus3301/meshchat/internal/client"
	"github.com/matheus3301/meshchat/internal/profile"
	"github.com/matheus3301/meshchat/internal/tui/ui"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	socketPath := profile.SocketPath(profileName)
	c, err := client.New(socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot connect to daemon for profile %q: %v\n", profileName, err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	base, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if args[0] == "watch" {
		cmdWatch(base, c, *jsonFlag)
		return
	}

	ctx, cancel := context.WithTimeout(base, 10*time.Second)
	defer cancel()

	switch args[0] {
	case "status":
		cmdStatus(ctx, c, *jsonFlag)
	case "id":
		cmdID(ctx, c, lo.Contains(args[1:], "--qr"), lo.Contains(args[1:], "--invert"))
	case "send":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: meshctl send <text>")
			os.Exit(1)
		}
		cmdSend(ctx, c, strings.Join(args[1:], " "), *jsonFlag)
	case "connect":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: meshctl connect <peer-id> [verify-id]")
			os.Exit(1)
		}
		p := api.ConnectParams{Target: args[1]}
		if len(args) >= 3 {
			p.Verify = args[2]
		}
		cmdConnect(ctx, c, p)
	case "disconnect":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: meshctl disconnect <peer-id>")
			os.Exit(1)
		}
		check(c.Mesh.Disconnect(ctx, args[1]))
		fmt.Printf("Disconnecting from %s\n", args[1])
	case "members":
		switch {
		case len(args) == 1:
			cmdMembers(ctx, c, *jsonFlag)
		case len(args) == 3 && args[1] == "add":
			id, err := c.Mesh.AddMember(ctx, args[2])
			check(err)
			fmt.Printf("Member %s added\n", id)
		default:
			fmt.Fprintln(os.Stderr, "usage: meshctl members [add <peer-id>]")
			os.Exit(1)
		}
	case "group":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: meshctl group <name>")
			os.Exit(1)
		}
		name, err := c.Mesh.SetGroup(ctx, strings.Join(args[1:], " "))
		check(err)
		fmt.Printf("Group name set to %s\n", name)
	case "history":
		cmdHistory(ctx, c, args[1:], *jsonFlag)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: meshctl [--profile <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                   Show node status")
	fmt.Fprintln(os.Stderr, "  id [--qr [--invert]]     Print own peer id")
	fmt.Fprintln(os.Stderr, "  send <text>              Send a chat message")
	fmt.Fprintln(os.Stderr, "  connect <id> [verify]    Open a channel to a peer")
	fmt.Fprintln(os.Stderr, "  disconnect <id>          Close the channel to a peer")
	fmt.Fprintln(os.Stderr, "  members                  List group members")
	fmt.Fprintln(os.Stderr, "  members add <id>         Add a group member")
	fmt.Fprintln(os.Stderr, "  group <name>             Set the group name")
	fmt.Fprintln(os.Stderr, "  history [n] [--grep q]   Show the message log")
	fmt.Fprintln(os.Stderr, "  watch                    Stream node events")
}

func cmdStatus(ctx context.Context, c *client.Client, jsonOut bool) {
	resp, err := c.Mesh.GetStatus(ctx)
	check(err)
	if jsonOut {
		outputJSON(resp)
		return
	}
	group := resp.Group
	if group == "" {
		group = "-"
	}
	fmt.Printf("Profile:  %s\n", resp.Profile)
	fmt.Printf("Peer ID:  %s\n", resp.PeerID)
	fmt.Printf("State:    %s\n", resp.State)
	fmt.Printf("Group:    %s\n", group)
	fmt.Printf("Members:  %d\n", len(resp.Members))
	fmt.Printf("Links:    %s\n", strings.Join(resp.Peers, ", "))
	fmt.Printf("Messages: %d\n", resp.Messages)
	fmt.Printf("Uptime:   %s\n", (time.Duration(resp.UptimeMs) * time.Millisecond).Round(time.Second))
	if resp.RSSBytes > 0 {
		fmt.Printf("Memory:   %.1f MiB (cpu %.1f%%)\n", float64(resp.RSSBytes)/(1<<20), resp.CPUPercent)
	}
}

func cmdID(ctx context.Context, c *client.Client, qr, invert bool) {
	resp, err := c.Mesh.GetStatus(ctx)
	check(err)
	fmt.Println(resp.PeerID)
	if !qr {
		return
	}
	art, err := ui.RenderQR(resp.PeerID, invert)
	check(err)
	fmt.Print(art)
}

func cmdSend(ctx context.Context, c *client.Client, text string, jsonOut bool) {
	entry, err := c.Mesh.Send(ctx, text)
	check(err)
	if jsonOut {
		outputJSON(entry)
		return
	}
	fmt.Printf("Sent at %s\n", time.UnixMilli(entry.Timestamp).Format(time.TimeOnly))
}

func cmdConnect(ctx context.Context, c *client.Client, p api.ConnectParams) {
	check(c.Mesh.Connect(ctx, p))
	target := p.Target
	if p.Verify != "" {
		target = p.Verify
	}
	fmt.Printf("Connecting to %s...\n", target)
}

func cmdMembers(ctx context.Context, c *client.Client, jsonOut bool) {
	members, err := c.Mesh.ListMembers(ctx)
	check(err)
	if jsonOut {
		outputJSON(members)
		return
	}
	if len(members) == 0 {
		fmt.Println("No members.")
		return
	}
	table := newTable("PEER", "LINK")
	for _, m := range members {
		link := "down"
		if m.Connected {
			link = "up"
		}
		table.Append([]string{m.ID, link})
	}
	table.Render()
}

func cmdHistory(ctx context.Context, c *client.Client, args []string, jsonOut bool) {
	var p api.HistoryParams
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--grep" && i+1 < len(args):
			p.Query = args[i+1]
			i++
		default:
			n, err := strconv.Atoi(args[i])
			if err != nil {
				fmt.Fprintln(os.Stderr, "usage: meshctl history [n] [--grep <query>]")
				os.Exit(1)
			}
			p.Limit = n
		}
	}

	entries, err := c.Mesh.ListHistory(ctx, p)
	check(err)
	if jsonOut {
		outputJSON(entries)
		return
	}
	if len(entries) == 0 {
		fmt.Println("No messages.")
		return
	}
	table := newTable("TIME", "FROM", "TEXT")
	for _, e := range entries {
		table.Append([]string{formatTime(e.Timestamp), senderLabel(e), e.Text})
	}
	table.Render()
}

func cmdWatch(ctx context.Context, c *client.Client, jsonOut bool) {
	stream, err := c.Mesh.Watch(ctx, api.WatchParams{})
	check(err)

	for {
		evt, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled || ctx.Err() != nil {
				return
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		if jsonOut {
			outputJSON(evt)
			continue
		}
		fmt.Println(formatEvent(evt))
	}
}

var (
	stampStyle   = color.New(color.FgGray)
	ownStyle     = color.New(color.FgGreen, color.OpBold)
	partnerStyle = color.New(color.FgCyan, color.OpBold)
	noticeStyle  = color.New(color.FgYellow)
	peerStyle    = color.New(color.FgMagenta)
)

func formatEvent(evt *api.WatchEvent) string {
	stamp := stampStyle.Render(time.UnixMilli(evt.TimeMs).Format(time.TimeOnly))
	switch {
	case evt.Entry != nil && evt.Entry.Origin == "system":
		return fmt.Sprintf("%s %s", stamp, noticeStyle.Render("* "+evt.Entry.Text))
	case evt.Entry != nil && evt.Entry.Origin == "own":
		return fmt.Sprintf("%s %s %s", stamp, ownStyle.Render("you:"), evt.Entry.Text)
	case evt.Entry != nil:
		return fmt.Sprintf("%s %s %s", stamp, partnerStyle.Render(evt.Entry.Sender+":"), evt.Entry.Text)
	case evt.Peer != "":
		line := fmt.Sprintf("%s %s %s", stamp, peerStyle.Render(evt.Kind), evt.Peer)
		if evt.Error != "" {
			line += " (" + evt.Error + ")"
		}
		return line
	case evt.State != "":
		return fmt.Sprintf("%s %s %s", stamp, peerStyle.Render(evt.Kind), evt.State)
	default:
		return fmt.Sprintf("%s %s %s", stamp, peerStyle.Render(evt.Kind), evt.Group)
	}
}

func senderLabel(e api.EntryView) string {
	switch e.Origin {
	case "own":
		return "you"
	case "system":
		return "*"
	default:
		return e.Sender
	}
}

func formatTime(ms int64) string {
	t := time.UnixMilli(ms)
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04:05")
	}
	return t.Format("01/02 15:04")
}

func newTable(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	return table
}

// check exits with the gRPC status message of err, if any.
func check(err error) {
	if err == nil {
		return
	}
	if st, ok := status.FromError(err); ok {
		fmt.Fprintf(os.Stderr, "error: %s\n", st.Message())
	} else {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(1)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
