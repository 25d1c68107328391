// Command flmctl drives a filter list manager instance through the bridge.
//
//	flmctl [-config flm.toml] [-workdir dir] [-remote tcp://host:port] <command> [args]
//
// Without -remote the bridge runs in process.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"

	"github.com/goccy/go-json"

	"github.com/VanDung-dev/flm-bridge/bridge"
	"github.com/VanDung-dev/flm-bridge/catalog"
	"github.com/VanDung-dev/flm-bridge/columnar"
	"github.com/VanDung-dev/flm-bridge/config"
	"github.com/VanDung-dev/flm-bridge/flm"
	"github.com/VanDung-dev/flm-bridge/host"
	"github.com/VanDung-dev/flm-bridge/remote"
)

var errUsage = errors.New("usage")

type command struct {
	usage string
	run   func(ctx context.Context, s *session, args []string) error
}

var commands = map[string]command{
	"constants":      {"constants", runConstants},
	"default-config": {"default-config", runDefaultConfig},
	"install":        {"install [-title t] [-description d] [-trusted] [-file path | url]", runInstall},
	"list":           {"list", runList},
	"enable":         {"enable id...", runEnable(true)},
	"disable":        {"disable id...", runEnable(false)},
	"delete":         {"delete id...", runDelete},
	"rules":          {"rules id...", runRules},
	"active-rules":   {"active-rules", runActiveRules},
	"pull-metadata":  {"pull-metadata", runPullMetadata},
	"update":         {"update [-ignore-expiration] [-timeout ms] [id...]", runUpdate},
	"export":         {"export [-counts] [-o file]", runExport},
}

// session is the boundary and, once opened, the manager a command works on.
type session struct {
	cfg      config.Config
	boundary host.Boundary
	manager  *host.Manager
	out      io.Writer
	closers  []func() error
}

func (s *session) open() (*host.Manager, error) {
	if s.manager != nil {
		return s.manager, nil
	}
	d, err := host.Open(s.boundary, s.cfg.LibraryConfiguration(),
		host.WithDriverLogger(s.cfg.Logger("flmctl")))
	if err != nil {
		return nil, err
	}
	s.manager = host.NewManager(d)
	return s.manager, nil
}

func (s *session) close() error {
	var errs []error
	if s.manager != nil {
		errs = append(errs, s.manager.Close())
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

func (s *session) print(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(s.out, string(data))
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "flmctl: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) (err error) {
	fs := flag.NewFlagSet("flmctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "TOML configuration file")
	workdir := fs.String("workdir", "", "Library working directory")
	remoteAddr := fs.String("remote", "", "Remote bridge server address")
	fs.Usage = func() { usage(fs, stderr) }
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}
	cmd, ok := commands[fs.Arg(0)]
	if !ok {
		fs.Usage()
		return errUsage
	}

	cfg := config.Default()
	if *configPath != "" {
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	if *workdir != "" {
		cfg.Library.WorkingDirectory = *workdir
	}

	s := &session{cfg: cfg, out: stdout}
	defer func() {
		if cerr := s.close(); err == nil {
			err = cerr
		}
	}()

	log := cfg.Logger("flmctl")
	if *remoteAddr != "" {
		c, err := remote.Dial(ctx, *remoteAddr,
			remote.WithTimeout(cfg.Remote.Timeout), remote.WithClientLogger(log))
		if err != nil {
			return err
		}
		s.boundary = c
		s.closers = append(s.closers, c.Close)
	} else {
		b := bridge.New(catalog.Factory(catalog.WithLogger(log)), bridge.WithLogger(log))
		s.boundary = host.NewInProcess(b)
		s.closers = append(s.closers, b.Close)
	}

	if err := cmd.run(ctx, s, fs.Args()[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "usage: flmctl %s\n", cmd.usage)
		}
		return err
	}
	return nil
}

func usage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "usage: flmctl [flags] <command> [args]")
	fs.PrintDefaults()
	fmt.Fprintln(w, "\ncommands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
}

func parseIDs(args []string) ([]flm.FilterID, error) {
	ids := make([]flm.FilterID, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid filter id %q", a)
		}
		ids = append(ids, flm.FilterID(id))
	}
	return ids, nil
}

func requireIDs(args []string) ([]flm.FilterID, error) {
	if len(args) == 0 {
		return nil, errUsage
	}
	return parseIDs(args)
}

func runConstants(_ context.Context, s *session, _ []string) error {
	c, err := s.boundary.Constants()
	if err != nil {
		return err
	}
	return s.print(c)
}

func runDefaultConfig(_ context.Context, s *session, _ []string) error {
	cfg, err := host.DefaultConfiguration(s.boundary)
	if err != nil {
		return err
	}
	return s.print(cfg)
}

func runInstall(ctx context.Context, s *session, args []string) error {
	fs := flag.NewFlagSet("install", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	title := fs.String("title", "", "Custom title")
	description := fs.String("description", "", "Custom description")
	trusted := fs.Bool("trusted", false, "Mark the list trusted")
	file := fs.String("file", "", "Install the contents of a local file")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if (*file == "") == (fs.NArg() == 0) || fs.NArg() > 1 {
		return errUsage
	}

	var titlePtr, descPtr *string
	if *title != "" {
		titlePtr = title
	}
	if *description != "" {
		descPtr = description
	}

	m, err := s.open()
	if err != nil {
		return err
	}

	var list *flm.FullFilterList
	if *file != "" {
		body, err := os.ReadFile(*file)
		if err != nil {
			return err
		}
		list, err = m.InstallCustomFilterFromString(ctx, flm.InstallFromString{
			IsEnabled:         true,
			IsTrusted:         *trusted,
			FilterBody:        string(body),
			CustomTitle:       titlePtr,
			CustomDescription: descPtr,
		})
		if err != nil {
			return err
		}
	} else {
		list, err = m.InstallCustomFilterList(ctx, fs.Arg(0), *trusted, titlePtr, descPtr)
		if err != nil {
			return err
		}
	}
	return s.print(list)
}

func runList(ctx context.Context, s *session, _ []string) error {
	m, err := s.open()
	if err != nil {
		return err
	}
	lists, err := m.GetStoredFiltersMetadata(ctx)
	if err != nil {
		return err
	}
	return s.print(lists)
}

func runEnable(enabled bool) func(context.Context, *session, []string) error {
	return func(ctx context.Context, s *session, args []string) error {
		ids, err := requireIDs(args)
		if err != nil {
			return err
		}
		m, err := s.open()
		if err != nil {
			return err
		}
		n, err := m.EnableFilterLists(ctx, ids, enabled)
		if err != nil {
			return err
		}
		return s.print(map[string]int64{"changed": n})
	}
}

func runDelete(ctx context.Context, s *session, args []string) error {
	ids, err := requireIDs(args)
	if err != nil {
		return err
	}
	m, err := s.open()
	if err != nil {
		return err
	}
	n, err := m.DeleteCustomFilterLists(ctx, ids)
	if err != nil {
		return err
	}
	return s.print(map[string]int64{"deleted": n})
}

func runRules(ctx context.Context, s *session, args []string) error {
	ids, err := requireIDs(args)
	if err != nil {
		return err
	}
	m, err := s.open()
	if err != nil {
		return err
	}
	rules, err := m.GetFilterRulesAsStrings(ctx, ids)
	if err != nil {
		return err
	}
	return s.print(rules)
}

func runActiveRules(ctx context.Context, s *session, _ []string) error {
	m, err := s.open()
	if err != nil {
		return err
	}
	rules, err := m.GetActiveRules(ctx)
	if err != nil {
		return err
	}
	return s.print(rules)
}

func runPullMetadata(ctx context.Context, s *session, _ []string) error {
	m, err := s.open()
	if err != nil {
		return err
	}
	res, err := m.PullMetadata(ctx)
	if err != nil {
		return err
	}
	return s.print(res)
}

func runUpdate(ctx context.Context, s *session, args []string) error {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	ignoreExpiration := fs.Bool("ignore-expiration", false, "Update lists that have not expired")
	timeout := fs.Int("timeout", 0, "Loose timeout in milliseconds, 0 for none")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	ids, err := parseIDs(fs.Args())
	if err != nil {
		return err
	}
	m, err := s.open()
	if err != nil {
		return err
	}

	var res *flm.UpdateResult
	if len(ids) > 0 {
		res, err = m.ForceUpdateFiltersByIDs(ctx, ids, int32(*timeout))
	} else {
		res, err = m.UpdateFilters(ctx, *ignoreExpiration, int32(*timeout), false)
	}
	if err != nil {
		return err
	}
	return s.print(res)
}

func runExport(ctx context.Context, s *session, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	counts := fs.Bool("counts", false, "Export rule counts instead of rules")
	out := fs.String("o", "", "Output file, stdout when empty")
	if err := fs.Parse(args); err != nil || fs.NArg() > 0 {
		return errUsage
	}
	m, err := s.open()
	if err != nil {
		return err
	}

	active, err := m.GetActiveRules(ctx)
	if err != nil {
		return err
	}

	conv := columnar.NewConverter(nil)
	var data []byte
	if *counts {
		ids := make([]flm.FilterID, len(active))
		for i, a := range active {
			ids[i] = a.FilterID
		}
		rc, err := m.GetRulesCount(ctx, ids)
		if err != nil {
			return err
		}
		record := conv.RulesCountToRecord(rc)
		defer record.Release()
		data, err = columnar.SerializeToIPC(record)
		if err != nil {
			return err
		}
	} else {
		record := conv.ActiveRulesToRecord(active)
		defer record.Release()
		data, err = columnar.SerializeToIPC(record)
		if err != nil {
			return err
		}
	}

	if *out == "" {
		_, err = s.out.Write(data)
		return err
	}
	return os.WriteFile(*out, data, 0o644)
}
