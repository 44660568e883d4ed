// Package cli parses livetune command lines.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandServe    Command = "serve"
	CommandStatus   Command = "status"
	CommandSnapshot Command = "snapshot"
	CommandControls Command = "controls"
	CommandSet      Command = "set"
	CommandStart    Command = "start"
	CommandStop     Command = "stop"
	CommandDoc      Command = "doc"
	CommandEdit     Command = "edit"
	CommandMode     Command = "mode"
	CommandReply    Command = "reply"
	CommandDevices  Command = "devices"
	CommandDoctor   Command = "doctor"
	CommandVersion  Command = "version"
	CommandHelp     Command = "help"
)

// commandArity is the number of positional arguments each command takes.
var commandArity = map[Command]int{
	CommandServe:    0,
	CommandStatus:   0,
	CommandSnapshot: 0,
	CommandControls: 0,
	CommandSet:      2,
	CommandStart:    0,
	CommandStop:     0,
	CommandDoc:      0,
	CommandEdit:     0,
	CommandMode:     1,
	CommandReply:    1,
	CommandDevices:  0,
	CommandDoctor:   0,
	CommandVersion:  0,
	CommandHelp:     0,
}

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
	Args       []string
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			arity, ok := commandArity[cmd]
			if !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			rest := args[i+1:]
			if len(rest) < arity {
				return Parsed{}, fmt.Errorf("command %q requires %d argument(s)", arg, arity)
			}
			if len(rest) > arity {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			parsed.Args = append([]string(nil), rest...)
			return parsed, nil
		}
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command> [args]

Owner:
  serve              Run the owner process on $XDG_RUNTIME_DIR/livetune.sock

Capture settings (require a running owner):
  status             Print recorder and document state
  snapshot           Print the settings a new capture session would start with
  controls           Print every setting with its editable/live/inert flags
  set FIELD VALUE    Change one setting (live while recording for denoise_*)
  start              Start capture with the current settings
  stop               Stop capture

Session document (use the store directly when no owner runs):
  doc                Print the document, its state and derived modes
  edit               Replace the document with text read from stdin
  mode VALUE         Set conversation mode: server_vad | client_interrupt
  reply VALUE        Set reply mode: stream | sentence

Other:
  devices            List available input devices
  doctor             Run configuration and environment checks
  version            Print version information
  help               Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/livetune/config.jsonc)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
