package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandRecord   Command = "record"
	CommandToggle   Command = "toggle"
	CommandStop     Command = "stop"
	CommandCancel   Command = "cancel"
	CommandStatus   Command = "status"
	CommandLevel    Command = "level"
	CommandDevices  Command = "devices"
	CommandHistory  Command = "history"
	CommandShow     Command = "show"
	CommandSessions Command = "sessions"
	CommandTodo     Command = "todo"
	CommandLanguage Command = "language"
	CommandDoctor   Command = "doctor"
	CommandVersion  Command = "version"
	CommandHelp     Command = "help"
)

// maxArgs caps the positional arguments each command accepts; -1 is unbounded.
var maxArgs = map[Command]int{
	CommandRecord:   0,
	CommandToggle:   0,
	CommandStop:     0,
	CommandCancel:   0,
	CommandStatus:   0,
	CommandLevel:    0,
	CommandDevices:  0,
	CommandHistory:  1,
	CommandShow:     1,
	CommandSessions: 1,
	CommandTodo:     -1,
	CommandLanguage: 1,
	CommandDoctor:   0,
	CommandVersion:  0,
	CommandHelp:     0,
}

type Parsed struct {
	Command    Command
	Args       []string
	ConfigPath string
	Language   string
	ShowHelp   bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}
	haveCommand := false

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
		case "--language":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--language requires a value")
			}
			parsed.Language = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			if haveCommand {
				parsed.Args = append(parsed.Args, arg)
				continue
			}

			cmd := Command(arg)
			if _, ok := maxArgs[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			haveCommand = true
			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
		}
	}

	if limit := maxArgs[parsed.Command]; limit >= 0 && len(parsed.Args) > limit {
		return Parsed{}, fmt.Errorf("unexpected arguments after command %q", parsed.Command)
	}
	if parsed.Command == CommandShow && len(parsed.Args) != 1 {
		return Parsed{}, errors.New("show requires a transcript id")
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--language LANG] <command> [args]

Commands:
  record        Start a recording session (owns the control socket)
  toggle        Start recording or stop+transcribe when already recording
  stop          Stop active recording and transcribe
  cancel        Cancel active recording and discard audio
  status        Print current state
  level         Print live input level
  devices       List available input devices
  history [N]   List recent transcripts (newest first)
  show ID       Print one stored transcript
  sessions [N]  List recent sessions from the journal
  todo ...      Manage todos: add TEXT | list [DATE] | done DATE INDEX
  language [L]  Show or set recognition language (auto, tr, en, de, fr)
  doctor        Run configuration and environment checks
  version       Print version information
  help          Show this help

Flags:
  --config PATH     Config file path (default: $XDG_CONFIG_HOME/voxnote/config.yaml)
  --language LANG   Override recognition language for this run
  -h, --help        Show help
  --version         Show version
`, binaryName)
}
