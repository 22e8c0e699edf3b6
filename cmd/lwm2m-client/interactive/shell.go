// Package interactive provides the debug console of lwm2m-client.
package interactive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/lwm2m-go/lwm2m-client/pkg/client"
	"github.com/lwm2m-go/lwm2m-client/pkg/model"
)

// Shell reads console commands and applies them to a running client.
type Shell struct {
	client *client.Client
	rl     *readline.Instance
	out    io.Writer
}

// New creates a shell attached to the terminal.
func New(c *client.Client) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "lwm2m> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Shell{client: c, rl: rl, out: rl.Stdout()}, nil
}

func newShell(c *client.Client, out io.Writer) *Shell {
	return &Shell{client: c, out: out}
}

// Stdout returns a writer that coordinates with the prompt.
func (s *Shell) Stdout() io.Writer {
	return s.out
}

// Run reads commands until quit, EOF or ctx ends.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}
		if !s.Exec(ctx, line) {
			cancel()
			return
		}
	}
}

// Exec runs one command line. It returns false when the shell should exit.
func (s *Shell) Exec(ctx context.Context, line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()
	case "get", "g":
		s.cmdGet(ctx, args)
	case "write", "w":
		s.cmdWrite(ctx, args, false)
	case "create":
		s.cmdWrite(ctx, args, true)
	case "exec", "x":
		s.cmdExec(ctx, args)
	case "delete", "rm":
		s.cmdDelete(ctx, args)
	case "backup":
		s.cmdBackup(ctx, args, false)
	case "restore":
		s.cmdBackup(ctx, args, true)
	case "observe":
		s.cmdObserve()
	case "send":
		s.cmdSend(ctx, args)
	case "state":
		s.cmdState()
	case "dump":
		s.cmdDump(ctx, args)
	case "snapshot":
		s.cmdSnapshot(ctx)
	case "creds":
		s.cmdCreds(ctx, args)
	case "quit", "exit", "q":
		fmt.Fprintln(s.out, "Exiting...")
		return false
	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
LWM2M Client Commands:
  Resources:
    get <pattern>             - Show resources matching a URI pattern
    write <uri> <value>       - Write a resource locally
    create <uri> <value>      - Create a resource from its definition
    exec <uri> [arg]          - Execute a function resource
    delete <pattern>          - Delete matching resources
    backup <object>           - Snapshot an object in memory
    restore <object>          - Restore the last object snapshot
    observe                   - Show and clear pending changes

  Transport:
    send <line>               - Feed a raw transport line, e.g. /read:AQ...
    state                     - Show connection state

  Persistence:
    dump [object...]          - Print the repository as JSON
    snapshot                  - Save the state file now
    creds save|clear          - Store or delete bootstrap credentials

  General:
    help                      - Show this help
    quit                      - Exit

  URI Format:
    /object/instance/resource - e.g. /3/0/0; patterns are regular expressions`)
}

func (s *Shell) cmdGet(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: get <pattern>")
		return
	}
	values, err := s.client.Store().Values(ctx, args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(s.out, "%-16s %v\n", k, values[k])
	}
}

func (s *Shell) cmdWrite(ctx context.Context, args []string, create bool) {
	if len(args) < 2 {
		fmt.Fprintln(s.out, "Usage: write <uri> <value>")
		return
	}
	uri, err := model.ParseURI(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Invalid URI: %v\n", err)
		return
	}
	value := parseValue(strings.Join(args[1:], " "))
	if create {
		err = s.client.Store().Create(ctx, uri, value, 0)
	} else {
		err = s.client.Store().Write(ctx, uri, value, 0)
	}
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "%s = %v\n", uri, value)
}

func (s *Shell) cmdExec(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(s.out, "Usage: exec <uri> [arg]")
		return
	}
	uri, err := model.ParseURI(args[0])
	if err != nil {
		fmt.Fprintf(s.out, "Invalid URI: %v\n", err)
		return
	}
	var arg any
	if len(args) > 1 {
		arg = strings.Join(args[1:], " ")
	}
	if err := s.client.Store().Execute(ctx, uri, arg, 0); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Executed %s\n", uri)
}

func (s *Shell) cmdDelete(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: delete <pattern>")
		return
	}
	if err := s.client.Store().Delete(ctx, args[0], false); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(s.out, "Deleted %s\n", args[0])
}

func (s *Shell) cmdBackup(ctx context.Context, args []string, restore bool) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: backup|restore <object>")
		return
	}
	id, err := strconv.ParseUint(args[0], 10, 16)
	if err != nil {
		fmt.Fprintf(s.out, "Invalid object id: %s\n", args[0])
		return
	}
	if restore {
		err = s.client.Store().Restore(ctx, uint16(id))
	} else {
		err = s.client.Store().Backup(ctx, uint16(id))
	}
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	if restore {
		fmt.Fprintf(s.out, "Restored object %d\n", id)
	} else {
		fmt.Fprintf(s.out, "Backed up object %d\n", id)
	}
}

func (s *Shell) cmdObserve() {
	changed := s.client.Store().ConsumeUpdated()
	if len(changed) == 0 {
		fmt.Fprintln(s.out, "No changes")
		return
	}
	for _, u := range changed {
		fmt.Fprintln(s.out, u)
	}
}

func (s *Shell) cmdSend(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: send <line>")
		return
	}
	resp, ok := s.client.Dispatcher().HandleLine(ctx, args[0])
	if !ok {
		fmt.Fprintln(s.out, "(no response)")
		return
	}
	fmt.Fprintln(s.out, resp)
}

func (s *Shell) cmdState() {
	d := s.client.Dispatcher()
	fmt.Fprintf(s.out, "State:          %s\n", d.State().Label())
	if hb := d.LastHeartbeat(); !hb.IsZero() {
		fmt.Fprintf(s.out, "Last heartbeat: %s\n", hb.Format("15:04:05.000"))
	}
	fmt.Fprintf(s.out, "Session:        %s\n", s.client.SessionID())
	fmt.Fprintf(s.out, "Resources:      %d\n", s.client.Store().Len())
}

func (s *Shell) cmdDump(ctx context.Context, args []string) {
	ids := make([]uint16, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseUint(a, 10, 16)
		if err != nil {
			fmt.Fprintf(s.out, "Invalid object id: %s\n", a)
			return
		}
		ids = append(ids, uint16(id))
	}
	data, err := s.client.Store().Export(ctx, ids...)
	if err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	pretty, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(s.out, string(pretty))
}

func (s *Shell) cmdSnapshot(ctx context.Context) {
	if err := s.client.SaveSnapshot(ctx); err != nil {
		fmt.Fprintf(s.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(s.out, "Snapshot saved")
}

func (s *Shell) cmdCreds(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: creds save|clear")
		return
	}
	var ok bool
	switch args[0] {
	case "save":
		ok = s.client.SaveCredentials(ctx)
	case "clear":
		ok = s.client.ClearCredentials()
	default:
		fmt.Fprintln(s.out, "Usage: creds save|clear")
		return
	}
	if ok {
		fmt.Fprintf(s.out, "Credentials %s: ok\n", args[0])
	} else {
		fmt.Fprintf(s.out, "Credentials %s: failed\n", args[0])
	}
}

// parseValue turns console input into the most specific value it spells.
func parseValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
