package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/matheus3301/meshchat/internal/client"
	"github.com/matheus3301/meshchat/internal/profile"
	"github.com/matheus3301/meshchat/internal/tui"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	socketPath := profile.SocketPath(profileName)

	// Probe daemon health; auto-start if needed.
	if !client.Probe(socketPath) {
		fmt.Fprintf(os.Stderr, "daemon not running for profile %q, starting...\n", profileName)
		if err := startDaemon(profileName); err != nil {
			fmt.Fprintf(os.Stderr, "failed to start daemon: %v\n", err)
			os.Exit(1)
		}
		if !client.WaitFor(socketPath, 10*time.Second) {
			fmt.Fprintf(os.Stderr, "daemon did not become ready, see %s\n", profile.LogPath(profileName))
			os.Exit(1)
		}
	}

	c, err := client.New(socketPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to daemon: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	app := tui.NewApp(c.Mesh, profileName)
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// startDaemon launches meshd from next to this binary, or from PATH.
func startDaemon(profileName string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	meshd := filepath.Join(filepath.Dir(executable), "meshd")

	if _, err := os.Stat(meshd); err != nil {
		meshd = "meshd"
	}

	// Not attached to our terminal: the daemon would draw over the UI. Its
	// output lands in the profile log file.
	cmd := exec.Command(meshd, "--profile", profileName)
	return cmd.Start()
}
