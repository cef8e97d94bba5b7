package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/drpcorg/crdtop"
	"github.com/drpcorg/crdtop/hlc"
	"github.com/drpcorg/crdtop/oplog"
	"github.com/drpcorg/crdtop/utils"
	"github.com/ergochat/readline"
	"go.uber.org/zap"
)

// REPL per se.
type REPL struct {
	Log     *oplog.Log
	Replica *crdtop.Replica[*oplog.Log]
	Logger  utils.Logger

	out io.Writer
	rl  *readline.Instance
	srv *http.Server
}

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),

	readline.PcItem("shared"),
	readline.PcItem("relation"),
	readline.PcItem("owned"),

	readline.PcItem("log"),
	readline.PcItem("export"),
	readline.PcItem("import"),
	readline.PcItem("decode"),

	readline.PcItem("exit"),
	readline.PcItem("quit"),
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

// Config of the command line tool. Every flag has a CRDTOP_* environment
// override, e.g. CRDTOP_DIR.
type Config struct {
	Dir       string
	Node      string
	Listen    string
	LogFormat string
	LogLevel  string
	Sync      bool
}

func (c *Config) Flags(fs *flag.FlagSet) {
	fs.StringVar(&c.Dir, "dir", envOr("CRDTOP_DIR", "crdtop.db"), "op log directory")
	fs.StringVar(&c.Node, "node", envOr("CRDTOP_NODE", ""), "node id, base64; random if empty")
	fs.StringVar(&c.Listen, "listen", envOr("CRDTOP_LISTEN", ""), "HTTP address for /op and /metrics")
	fs.StringVar(&c.LogFormat, "log-format", envOr("CRDTOP_LOG_FORMAT", "text"), "text or json")
	fs.StringVar(&c.LogLevel, "log-level", envOr("CRDTOP_LOG_LEVEL", "warn"), "debug, info, warn or error")
	fs.BoolVar(&c.Sync, "sync", envOr("CRDTOP_SYNC", "") == "true", "fsync every append")
}

func envOr(name, def string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return def
}

// NewLogger is slog text by default, zap JSON on request.
func (c *Config) NewLogger() (utils.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, err
	}
	switch c.LogFormat {
	case "text":
		return utils.NewDefaultLogger(level), nil
	case "json":
		zc := zap.NewProductionConfig()
		zc.Level = zapLevel(level)
		zl, err := zc.Build()
		if err != nil {
			return nil, err
		}
		return utils.NewZapLogger(zl), nil
	}
	return nil, fmt.Errorf("unknown log format %q", c.LogFormat)
}

func zapLevel(level slog.Level) zap.AtomicLevel {
	switch {
	case level <= slog.LevelDebug:
		return zap.NewAtomicLevelAt(zap.DebugLevel)
	case level <= slog.LevelInfo:
		return zap.NewAtomicLevelAt(zap.InfoLevel)
	case level <= slog.LevelWarn:
		return zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return zap.NewAtomicLevelAt(zap.ErrorLevel)
}

// Open opens the op log and the replica on top of it.
func (repl *REPL) Open(cfg Config) (err error) {
	if repl.out == nil {
		repl.out = os.Stdout
	}
	if repl.Logger == nil {
		if repl.Logger, err = cfg.NewLogger(); err != nil {
			return
		}
	}
	node := crdtop.NewId()
	if cfg.Node != "" {
		if node, err = crdtop.IdFromBase64(cfg.Node); err != nil {
			return
		}
	}
	repl.Log, err = oplog.Open(cfg.Dir, oplog.Options{Sync: cfg.Sync, Logger: repl.Logger})
	if err != nil {
		return
	}
	clock := hlc.NewHLC(hlc.Options{})
	repl.Replica = crdtop.NewReplica(node, clock, crdtop.NewStore(repl.Log),
		crdtop.ReplicaOptions{Logger: repl.Logger})
	repl.Logger.Info("replica open", "dir", cfg.Dir, "node", node.Base64())
	if cfg.Listen != "" {
		repl.srv = &http.Server{Addr: cfg.Listen, Handler: repl.Handler()}
		go func() {
			if err := repl.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				repl.Logger.Error("http server failed", "addr", cfg.Listen, "err", err)
			}
		}()
	}
	return nil
}

func (repl *REPL) OpenReadline() (err error) {
	repl.rl, err = readline.NewEx(&readline.Config{
		Prompt:          "◌ ",
		HistoryFile:     ".crdtop_cmd_log.txt",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return
	}
	repl.rl.CaptureExitSignal()
	return
}

func (repl *REPL) Close() error {
	if repl.rl != nil {
		_ = repl.rl.Close()
		repl.rl = nil
	}
	if repl.srv != nil {
		_ = repl.srv.Close()
		repl.srv = nil
	}
	if repl.Log != nil {
		err := repl.Log.Close()
		repl.Log = nil
		return err
	}
	return nil
}

// REPL reads and runs one line.
func (repl *REPL) REPL(ctx context.Context) (op crdtop.CRDTOperation, err error) {
	var line string
	line, err = repl.rl.Readline()
	if err == readline.ErrInterrupt && len(line) != 0 {
		return op, nil
	}
	if err != nil {
		return op, err
	}
	return repl.Execute(ctx, line)
}

// Execute runs one command line. Commands that commit return the
// stamped operation.
func (repl *REPL) Execute(ctx context.Context, line string) (op crdtop.CRDTOperation, err error) {
	cmd, rest := cutWord(line)
	switch cmd {
	case "":
	// ----- mutations -----
	case "shared":
		op, err = repl.CommandShared(ctx, rest)
	case "relation":
		op, err = repl.CommandRelation(ctx, rest)
	case "owned":
		op, err = repl.CommandOwned(ctx, rest)
	// ----- the log -----
	case "log", "ls":
		err = repl.CommandLog(ctx, rest)
	case "export":
		err = repl.CommandExport(ctx, rest)
	case "import":
		err = repl.CommandImport(ctx, rest)
	case "decode":
		err = repl.CommandDecode(rest)
	case "help":
		_, _ = fmt.Fprint(repl.out, Help)
	case "exit", "quit":
		err = io.EOF
	default:
		err = fmt.Errorf("command unknown: %s", cmd)
	}
	return
}

// cutWord splits off the first whitespace separated word.
func cutWord(line string) (word, rest string) {
	line = strings.TrimSpace(line)
	ws := strings.IndexAny(line, " \t\r\n")
	if ws < 0 {
		return line, ""
	}
	return line[:ws], strings.TrimSpace(line[ws:])
}

func main() {
	cfg := Config{}
	cfg.Flags(flag.CommandLine)
	flag.Parse()

	repl := REPL{}
	if err := repl.Open(cfg); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	defer repl.Close()
	if err := repl.OpenReadline(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	ctx := context.Background()
	var op crdtop.CRDTOperation
	var err error
	for err != io.EOF {
		if err != nil {
			_, _ = fmt.Fprintf(os.Stdout, "%s\n", err.Error())
			err = nil
		} else if op.Typ != nil {
			_, _ = fmt.Fprintf(os.Stderr, "%s\n", op.String())
		}
		op, err = repl.REPL(ctx)
	}
}
