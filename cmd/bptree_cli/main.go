package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/sushant-115/bptreeindex/config"
	"github.com/sushant-115/bptreeindex/core/indexing/bptree"
	"github.com/sushant-115/bptreeindex/core/indexing/bptree/dotexport"
	"github.com/sushant-115/bptreeindex/core/indexmanager"
	"github.com/sushant-115/bptreeindex/pkg/logger"
	"github.com/sushant-115/bptreeindex/pkg/telemetry"
	"go.uber.org/zap"
)

var (
	configPath  = flag.String("config", "", "Path to a YAML config file")
	order       = flag.Int("order", 0, "B+ tree order (overrides the config file)")
	verifyEach  = flag.Bool("verify", false, "Verify the tree after every mutation")
	historyFile = flag.String("history", filepath.Join(os.TempDir(), "bptree_cli_history"), "Readline history file")
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed, color.Bold)
	keyColor  = color.New(color.FgCyan)
)

var errExit = errors.New("exit requested")

// session runs CLI commands against one in-memory index.
type session struct {
	ctx   context.Context
	index *indexmanager.BPlusTreeIndexManager[int64, string]
	out   io.Writer
}

// processCommand handles a single command, either from args or interactive
// mode. It returns errExit for exit/quit.
func (s *session) processCommand(args []string) error {
	if len(args) == 0 {
		return nil
	}

	command := strings.ToLower(args[0])
	switch command {
	case "put", "insert":
		if len(args) < 3 {
			return usageError("put <key> <value>")
		}
		key, err := parseKey(args[1])
		if err != nil {
			return err
		}
		if err := s.index.Put(s.ctx, key, strings.Join(args[2:], " ")); err != nil {
			return err
		}
		okColor.Fprintln(s.out, "OK")
	case "get", "search":
		if len(args) < 2 {
			return usageError("get <key>")
		}
		key, err := parseKey(args[1])
		if err != nil {
			return err
		}
		value, found, err := s.index.Get(s.ctx, key)
		if err != nil {
			return err
		}
		if !found {
			warnColor.Fprintf(s.out, "NOT FOUND %d\n", key)
			return nil
		}
		fmt.Fprintf(s.out, "%s = %s\n", keyColor.Sprint(key), value)
	case "delete", "del":
		if len(args) < 2 {
			return usageError("delete <key>")
		}
		key, err := parseKey(args[1])
		if err != nil {
			return err
		}
		err = s.index.Delete(s.ctx, key)
		if errors.Is(err, indexmanager.ErrKeyNotFound) {
			warnColor.Fprintf(s.out, "NOT FOUND %d\n", key)
			return nil
		}
		if err != nil {
			return err
		}
		okColor.Fprintln(s.out, "DELETED")
	case "range":
		if len(args) < 3 {
			return usageError("range <start> <end> [limit]")
		}
		start, err := parseKey(args[1])
		if err != nil {
			return err
		}
		end, err := parseKey(args[2])
		if err != nil {
			return err
		}
		limit := 0
		if len(args) > 3 {
			if limit, err = strconv.Atoi(args[3]); err != nil {
				return fmt.Errorf("invalid limit %q: %w", args[3], err)
			}
		}
		pairs, err := s.index.GetRange(s.ctx, start, end, limit)
		if err != nil {
			return err
		}
		s.printPairs(pairs)
	case "scan":
		limit := 0
		if len(args) > 1 {
			var err error
			if limit, err = strconv.Atoi(args[1]); err != nil {
				return fmt.Errorf("invalid limit %q: %w", args[1], err)
			}
		}
		pairs, err := s.index.Scan(s.ctx, limit)
		if err != nil {
			return err
		}
		s.printPairs(pairs)
	case "verify":
		if err := s.index.Verify(s.ctx); err != nil {
			return err
		}
		okColor.Fprintln(s.out, "VALID")
	case "stats":
		st := s.index.Stats(s.ctx)
		fmt.Fprintf(s.out, "order=%d height=%d keys=%d nodes=%d leaves=%d internals=%d free_slots=%d version=%d\n",
			st.Order, st.Height, st.Keys, st.Nodes, st.Leaves, st.Internals, st.FreeSlots, s.index.Version())
	case "dot":
		if len(args) < 2 {
			return usageError("dot <file>")
		}
		if err := s.writeDot(args[1]); err != nil {
			return err
		}
		okColor.Fprintf(s.out, "wrote %s\n", args[1])
	case "help":
		printHelp(s.out)
	case "exit", "quit":
		return errExit
	default:
		return fmt.Errorf("unknown command %q, type 'help' for a list of commands", command)
	}
	return nil
}

func (s *session) printPairs(pairs []indexmanager.KeyValuePair[int64, string]) {
	for _, p := range pairs {
		fmt.Fprintf(s.out, "%s = %s\n", keyColor.Sprint(p.Key), p.Value)
	}
	fmt.Fprintf(s.out, "(%d entries)\n", len(pairs))
}

func (s *session) writeDot(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	walker := dotexport.WalkerFunc[int64](func(fn bptree.WalkFunc[int64]) error {
		return s.index.Walk(s.ctx, fn)
	})
	if err := dotexport.Write[int64](f, walker); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func parseKey(raw string) (int64, error) {
	key, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid key %q: keys are 64-bit integers", raw)
	}
	return key, nil
}

func usageError(usage string) error {
	return fmt.Errorf("usage: %s", usage)
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  put <key> <value>")
	fmt.Fprintln(w, "  get <key>")
	fmt.Fprintln(w, "  delete <key>")
	fmt.Fprintln(w, "  range <start> <end> [limit]   keys in [start, end)")
	fmt.Fprintln(w, "  scan [limit]")
	fmt.Fprintln(w, "  verify")
	fmt.Fprintln(w, "  stats")
	fmt.Fprintln(w, "  dot <file>                    write a Graphviz diagram")
	fmt.Fprintln(w, "  help")
	fmt.Fprintln(w, "  exit / quit")
}

// splitCommands turns "put 1 a ; get 1" into separate argument lists.
func splitCommands(args []string) [][]string {
	var cmds [][]string
	var current []string
	for _, arg := range strings.Fields(strings.Join(args, " ")) {
		if arg == ";" {
			if len(current) > 0 {
				cmds = append(cmds, current)
			}
			current = nil
			continue
		}
		current = append(current, arg)
	}
	if len(current) > 0 {
		cmds = append(cmds, current)
	}
	return cmds
}

func (s *session) interactive(rl *readline.Instance) {
	fmt.Fprintln(s.out, "bptree CLI (interactive mode). Type 'help' for commands, 'exit' or 'quit' to leave.")
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			errColor.Fprintf(s.out, "Error reading input: %v\n", err)
			continue
		}

		if err := s.processCommand(strings.Fields(line)); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			errColor.Fprintf(s.out, "Error: %v\n", err)
		}
	}
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *order != 0 {
		cfg.Index.Order = *order
	}
	if *verifyEach {
		cfg.Index.VerifyEveryMutation = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	zlogger := logger.MustNew(cfg.Logger)
	defer func() { _ = zlogger.Sync() }()

	tel, shutdown, err := telemetry.New(cfg.Telemetry)
	if err != nil {
		zlogger.Fatal("failed to initialise telemetry", zap.Error(err))
	}
	defer func() { _ = shutdown(context.Background()) }()

	ctx := context.Background()
	index, err := indexmanager.NewBPlusTreeIndexManager[int64, string](cfg.Index.Order, tel,
		indexmanager.WithLogger(zlogger),
		indexmanager.VerifyEveryMutation(cfg.Index.VerifyEveryMutation))
	if err != nil {
		zlogger.Fatal("failed to create index", zap.Error(err))
	}
	defer func() { _ = index.Close(ctx) }()

	s := &session{ctx: ctx, index: index, out: color.Output}

	if flag.NArg() > 0 {
		for _, cmd := range splitCommands(flag.Args()) {
			if err := s.processCommand(cmd); err != nil {
				if errors.Is(err, errExit) {
					return
				}
				errColor.Fprintf(s.out, "Error: %v\n", err)
				os.Exit(1)
			}
		}
		return
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "bptree> ",
		HistoryFile:     *historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		zlogger.Fatal("failed to start readline", zap.Error(err))
	}
	defer rl.Close()
	s.interactive(rl)
}
