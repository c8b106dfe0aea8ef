package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
)

var version = "dev" // Set by -ldflags during build

// Available subcommands
var subcommands = []struct {
	name        string
	description string
}{
	{"config", "Manage configuration"},
	{"import", "Parse performance logs into a run"},
	{"query", "List stored runs, reports and statistics"},
	{"trend", "Build trend series over past runs"},
}

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-V") {
		fmt.Printf("perftrend version %s\n", version)
		os.Exit(0)
	}

	if len(os.Args) == 1 || os.Args[1] == "--help" || os.Args[1] == "-h" {
		printHelp()
		os.Exit(0)
	}

	subcommand := os.Args[1]
	if !known(subcommand) {
		fmt.Fprintf(os.Stderr, "Error: unknown subcommand '%s'\n\n", subcommand)
		printUsage()
		os.Exit(1)
	}

	cmdName := "perftrend-" + subcommand
	cmdPath, err := exec.LookPath(cmdName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: command '%s' not found in PATH\n", cmdName)
		fmt.Fprintf(os.Stderr, "Install the tools with: go install ./cmd/...\n")
		os.Exit(1)
	}

	os.Exit(dispatch(cmdPath, os.Args[2:]))
}

func known(name string) bool {
	for _, sc := range subcommands {
		if sc.name == name {
			return true
		}
	}
	return false
}

// dispatch replaces this process with the tool at cmdPath. Where exec is
// unavailable it runs the tool as a child and returns its exit code.
func dispatch(cmdPath string, args []string) int {
	argv := append([]string{filepath.Base(cmdPath)}, args...)
	if err := syscall.Exec(cmdPath, argv, os.Environ()); err == nil {
		return 0
	}

	cmd := exec.Command(cmdPath, args...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode()
		}
		fmt.Fprintf(os.Stderr, "Error executing %s: %v\n", filepath.Base(cmdPath), err)
		return 1
	}
	return 0
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: perftrend <command> [options]\n\n")
	fmt.Fprintf(os.Stderr, "Available commands:\n")
	for _, sc := range subcommands {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", sc.name, sc.description)
	}
	fmt.Fprintf(os.Stderr, "\nRun 'perftrend <command> --help' for more information on a command.\n")
}

func printHelp() {
	fmt.Printf("perftrend - Performance test trend analysis\n\n")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Printf("DESCRIPTION:\n")
	fmt.Printf("  Parses JMeter summariser logs into per-endpoint reports, stores one set of\n")
	fmt.Printf("  reports per test run and builds trend series over a window of past runs.\n")
	fmt.Printf("  This is a unified command that dispatches to the individual perftrend-* tools.\n\n")

	fmt.Printf("USAGE:\n")
	fmt.Printf("  perftrend <command> [options]\n\n")

	fmt.Printf("AVAILABLE COMMANDS:\n")
	for _, sc := range subcommands {
		fmt.Printf("  %-8s %s\n", sc.name, sc.description)
	}

	fmt.Printf("\nGLOBAL OPTIONS:\n")
	fmt.Printf("  -h, --help       Show this help message\n")
	fmt.Printf("  -V, --version    Show version\n\n")

	fmt.Printf("GETTING STARTED:\n")
	fmt.Printf("  1. Create a configuration:\n")
	fmt.Printf("       perftrend config init\n\n")

	fmt.Printf("  2. Import the logs of a run:\n")
	fmt.Printf("       perftrend import ./results\n\n")

	fmt.Printf("  3. Show the response time trend of the last 10 runs:\n")
	fmt.Printf("       perftrend trend --range-mode count --count 10\n\n")

	fmt.Printf("  4. Render the error chart as PNG:\n")
	fmt.Printf("       perftrend trend --view summarizer --chart error --format png --out errors.png\n\n")

	fmt.Printf("EXAMPLES:\n")
	fmt.Printf("  # Which runs are stored, and what did run 12 measure?\n")
	fmt.Printf("  perftrend query runs\n")
	fmt.Printf("  perftrend query stats --run 12 --report summary.log\n\n")

	fmt.Printf("  # Compare every fifth nightly run in a separate database\n")
	fmt.Printf("  perftrend trend --db ~/nightly.db --range-mode nth --step 5\n\n")

	fmt.Printf("For detailed help on any command:\n")
	fmt.Printf("  perftrend <command> --help\n")
}
