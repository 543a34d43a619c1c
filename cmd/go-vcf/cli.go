package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/facebookgo/atomicfile"
	"github.com/urfave/cli/v2"

	"github.com/tartampluch/go-vcf/internal/card"
	"github.com/tartampluch/go-vcf/internal/cardfile"
	"github.com/tartampluch/go-vcf/internal/config"
	"github.com/tartampluch/go-vcf/internal/engine"
	"github.com/tartampluch/go-vcf/internal/i18n"
	"github.com/tartampluch/go-vcf/internal/qr"
	"github.com/tartampluch/go-vcf/internal/server"
	"github.com/tartampluch/go-vcf/internal/store"
)

// appEnv carries the process streams and the state built by the Before hook.
type appEnv struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	fetcher engine.CardFetcher

	// logToFile is disabled in tests so runs do not touch the user cache dir.
	logToFile bool
	logCloser io.Closer

	settings *config.Settings
	catalog  *i18n.Catalog
}

func (e *appEnv) close() {
	if e.logCloser != nil {
		_ = e.logCloser.Close()
		e.logCloser = nil
	}
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *appEnv) *cli.App {
	cli.VersionPrinter = func(c *cli.Context) {
		printVersion(c.App.Writer)
	}

	app := &cli.App{
		Name:      config.CommandName,
		Usage:     config.AppUsage,
		Version:   config.Version,
		Reader:    env.stdin,
		Writer:    env.stdout,
		ErrWriter: env.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: config.FlagConfig, Value: config.DefaultSettingsPath(), Usage: config.FlagDescConfig},
			&cli.BoolFlag{Name: config.FlagDebug, Usage: config.FlagDescDebug},
			&cli.StringFlag{Name: config.FlagLang, Usage: config.FlagDescLang},
			&cli.BoolFlag{Name: config.FlagStrict, Usage: config.FlagDescStrict},
			&cli.IntFlag{Name: config.FlagFold, Usage: config.FlagDescFold},
		},
		Before: env.before,
		Commands: []*cli.Command{
			showCmd(env),
			listCmd(env),
			validateCmd(env),
			renameCmd(env),
			newCmd(env),
			copyCmd(env),
			formatCmd(env),
			indexCmd(env),
			contactsCmd(env),
			birthdaysCmd(env),
			upcomingCmd(env),
			calendarCmd(env),
			serveCmd(env),
			fetchCmd(env),
			passwordCmd(env),
			qrCmd(env),
			scanCmd(env),
		},
	}
	// Disable the default exit handler so errors are returned to run.
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// before loads settings, applies global flag overrides and sets up logging.
func (e *appEnv) before(c *cli.Context) error {
	e.logCloser = setupLogging(c.Bool(config.FlagDebug), e.logToFile, e.stderr)
	logStartupInfo()

	settings, err := config.Load(c.String(config.FlagConfig))
	if err != nil {
		return err
	}
	if c.IsSet(config.FlagLang) {
		settings.Language = c.String(config.FlagLang)
	}
	if c.IsSet(config.FlagStrict) {
		settings.StrictBegin = c.Bool(config.FlagStrict)
	}
	if c.IsSet(config.FlagFold) {
		settings.FoldWidth = c.Int(config.FlagFold)
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	e.settings = settings
	e.catalog = i18n.New(settings.Language)
	return nil
}

func (e *appEnv) parser() *card.Parser {
	policy, _ := card.ParseDisplayNamePolicy(e.settings.DisplayNamePolicy)
	return &card.Parser{
		MaxLineLength: e.settings.MaxLineLength,
		Strict:        e.settings.StrictBegin,
		DisplayName:   policy,
	}
}

func (e *appEnv) encoder() *card.Encoder {
	return &card.Encoder{FoldWidth: e.settings.FoldWidth}
}

// fail turns err into a localized exit error.
func (e *appEnv) fail(err error) error {
	return cli.Exit(fmt.Sprintf("%s: %v", e.catalog.Error(err), err), config.ExitCodeError)
}

// action logs the command and checks its positional argument count.
func (e *appEnv) action(minArgs int, fn cli.ActionFunc) cli.ActionFunc {
	return func(c *cli.Context) error {
		slog.Debug(config.MsgCommand,
			config.LogKeyComponent, config.CompCLI,
			config.LogKeyCommand, c.Command.Name,
		)
		if c.NArg() < minArgs {
			return cli.Exit(fmt.Sprintf("%s: %s %s", config.ErrArgsMissing, c.Command.Name, c.Command.ArgsUsage), config.ExitCodeError)
		}
		return fn(c)
	}
}

// writeOutput writes data atomically to path, or to stdout when path is empty.
func (e *appEnv) writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := e.stdout.Write(data)
		return err
	}
	f, err := atomicfile.New(path, config.FilePermCard)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrOutputWrite, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Abort()
		return fmt.Errorf("%s: %w", config.ErrOutputWrite, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%s: %w", config.ErrOutputWrite, err)
	}
	return nil
}

func (e *appEnv) openStore(c *cli.Context) (*store.Store, error) {
	path := c.String(config.FlagDB)
	if path == "" {
		path = e.settings.DatabasePath
	}
	if path == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", config.ErrCacheDir, err)
		}
		path = filepath.Join(cacheDir, config.AppID, config.DatabaseFileName)
	}
	return store.Open(path)
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{Name: config.FlagDB, Usage: config.FlagDescDB}
}

func outputFlag() cli.Flag {
	return &cli.StringFlag{Name: config.FlagOutput, Aliases: []string{"o"}, Usage: config.FlagDescOutput}
}

func dateFlag() cli.Flag {
	return &cli.TimestampFlag{Name: config.FlagDate, Layout: config.DateFormatFullDash, Usage: config.FlagDescDate}
}

// clock honours --date.
func clock(c *cli.Context) engine.Clock {
	if ts := c.Timestamp(config.FlagDate); ts != nil {
		return engine.FixedClock{At: *ts}
	}
	return engine.RealClock{}
}

// -----------------------------------------------------------------------------
// Card file commands
// -----------------------------------------------------------------------------

func showCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      config.CmdShow,
		Usage:     config.UsageShow,
		ArgsUsage: config.ArgsFile,
		Action: env.action(1, func(c *cli.Context) error {
			rec, err := cardfile.Read(c.Args().First(), env.parser())
			if err != nil {
				return env.fail(err)
			}
			defer rec.Release()
			_, err = fmt.Fprint(env.stdout, rec.Describe())
			return err
		}),
	}
}

func listCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      config.CmdList,
		Usage:     config.UsageList,
		ArgsUsage: config.ArgsDir,
		Action: env.action(1, func(c *cli.Context) error {
			files, err := cardfile.List(c.Args().First())
			if err != nil {
				return env.fail(err)
			}
			for _, f := range files {
				if _, err := fmt.Fprintf(env.stdout, "%s\n%s\n\n", filepath.Base(f), cardfile.Summary(f)); err != nil {
					return err
				}
			}
			return nil
		}),
	}
}

func validateCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      config.CmdValidate,
		Usage:     config.UsageValidate,
		ArgsUsage: config.ArgsFiles,
		Action: env.action(1, func(c *cli.Context) error {
			failed := 0
			for _, path := range c.Args().Slice() {
				rec, err := cardfile.Read(path, env.parser())
				if err == nil {
					err = card.Validate(rec)
					rec.Release()
				}
				if err != nil {
					failed++
				}
				_, _ = fmt.Fprintf(env.stdout, config.FormatStatus, path, env.catalog.Error(err))
			}
			if failed > 0 {
				return cli.Exit("", config.ExitCodeError)
			}
			return nil
		}),
	}
}

func renameCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      config.CmdRename,
		Usage:     config.UsageRename,
		ArgsUsage: config.ArgsRename,
		Action: env.action(2, func(c *cli.Context) error {
			if err := cardfile.UpdateDisplayName(c.Args().Get(0), c.Args().Get(1), env.encoder()); err != nil {
				return env.fail(err)
			}
			return nil
		}),
	}
}

func newCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      config.CmdNew,
		Usage:     config.UsageNew,
		ArgsUsage: config.ArgsRename,
		Action: env.action(2, func(c *cli.Context) error {
			if err := cardfile.Create(c.Args().Get(0), c.Args().Get(1), env.encoder()); err != nil {
				return env.fail(err)
			}
			return nil
		}),
	}
}

func copyCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      config.CmdCopy,
		Usage:     config.UsageCopy,
		ArgsUsage: config.ArgsCopy,
		Action: env.action(2, func(c *cli.Context) error {
			if err := cardfile.Copy(c.Args().Get(0), c.Args().Get(1), env.encoder()); err != nil {
				return env.fail(err)
			}
			return nil
		}),
	}
}

func formatCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      config.CmdFormat,
		Usage:     config.UsageFormat,
		ArgsUsage: config.ArgsFile,
		Flags:     []cli.Flag{outputFlag()},
		Action: env.action(1, func(c *cli.Context) error {
			records, err := cardfile.ReadAll(c.Args().First(), env.parser())
			if err != nil {
				return env.fail(err)
			}
			if len(records) == 0 {
				return env.fail(&card.Error{Kind: card.InvalidRecord, Message: config.ErrNoRecords})
			}
			data, err := env.encodeAll(records)
			if err != nil {
				return env.fail(err)
			}
			if err := env.writeOutput(c.String(config.FlagOutput), data); err != nil {
				return env.fail(err)
			}
			return nil
		}),
	}
}

func (e *appEnv) encodeAll(records []*card.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := card.NewEncoder(&buf)
	enc.FoldWidth = e.settings.FoldWidth
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, err
		}
		rec.Release()
	}
	return buf.Bytes(), nil
}

// -----------------------------------------------------------------------------
// Contact index commands
// -----------------------------------------------------------------------------

func indexCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      config.CmdIndex,
		Usage:     config.UsageIndex,
		ArgsUsage: config.ArgsPaths,
		Flags:     []cli.Flag{dbFlag()},
		Action: env.action(1, func(c *cli.Context) error {
			st, err := env.openStore(c)
			if err != nil {
				return env.fail(err)
			}
			defer func() { _ = st.Close() }()

			var files []string
			for _, path := range c.Args().Slice() {
				info, err := os.Stat(path)
				if err != nil {
					return env.fail(&card.Error{Kind: card.InvalidFile, Message: config.ErrFileOpen, Err: err})
				}
				if !info.IsDir() {
					files = append(files, path)
					continue
				}
				listed, err := cardfile.List(path)
				if err != nil {
					return env.fail(err)
				}
				files = append(files, listed...)
			}

			total := 0
			for _, f := range files {
				n, err := st.IndexFile(f, env.parser())
				if err != nil {
					return env.fail(err)
				}
				total += n
			}
			_, err = fmt.Fprintln(env.stdout, env.catalog.Plural(config.TKeyIndexed, total))
			return err
		}),
	}
}

func contactsCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  config.CmdContacts,
		Usage: config.UsageContacts,
		Flags: []cli.Flag{dbFlag()},
		Action: env.action(0, func(c *cli.Context) error {
			st, err := env.openStore(c)
			if err != nil {
				return env.fail(err)
			}
			defer func() { _ = st.Close() }()

			contacts, err := st.ListContacts()
			if err != nil {
				return env.fail(err)
			}
			env.printContacts(contacts)
			return nil
		}),
	}
}

func birthdaysCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  config.CmdBirthdays,
		Usage: config.UsageBirthdays,
		Flags: []cli.Flag{
			dbFlag(),
			&cli.IntFlag{Name: config.FlagMonth, Aliases: []string{"m"}, Usage: config.FlagDescMonth},
			dateFlag(),
		},
		Action: env.action(0, func(c *cli.Context) error {
			month := c.Int(config.FlagMonth)
			if !c.IsSet(config.FlagMonth) {
				month = int(clock(c).Now().Month())
			}

			st, err := env.openStore(c)
			if err != nil {
				return env.fail(err)
			}
			defer func() { _ = st.Close() }()

			contacts, err := st.ContactsByBirthMonth(month)
			if err != nil {
				return env.fail(err)
			}
			env.printContacts(contacts)
			return nil
		}),
	}
}

func (e *appEnv) printContacts(contacts []store.Contact) {
	na := e.catalog.Msg(config.TKeyNotAvailable)
	orNA := func(s string) string {
		if s == "" {
			return na
		}
		return s
	}

	_, _ = fmt.Fprintf(e.stdout, config.FormatRow,
		e.catalog.Msg(config.TKeyColName),
		e.catalog.Msg(config.TKeyColBirthday),
		e.catalog.Msg(config.TKeyColAnniversary),
		e.catalog.Msg(config.TKeyColFile),
	)
	for _, ct := range contacts {
		_, _ = fmt.Fprintf(e.stdout, config.FormatRow, ct.Name, orNA(ct.Birthday), orNA(ct.Anniversary), filepath.Base(ct.File))
	}
}

// -----------------------------------------------------------------------------
// Calendar commands
// -----------------------------------------------------------------------------

func syncFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: config.FlagURL, Usage: config.FlagDescURL},
		&cli.StringFlag{Name: config.FlagUser, Usage: config.FlagDescUser},
		&cli.StringFlag{Name: config.FlagReminder, Usage: config.FlagDescReminder},
		dateFlag(),
	}
}

// syncSetup builds a generator and its source from a positional file or
// directory, or from --url.
func (e *appEnv) syncSetup(c *cli.Context) (*engine.Generator, engine.SyncConfig, error) {
	gen := &engine.Generator{
		Clock:         clock(c),
		Fetcher:       e.fetcher,
		Parser:        *e.parser(),
		FormatSummary: e.catalog.Summary,
	}

	cfg := engine.SyncConfig{ReminderTrigger: e.settings.ReminderTrigger}
	if c.IsSet(config.FlagReminder) {
		cfg.ReminderTrigger = c.String(config.FlagReminder)
	}

	if c.NArg() > 0 {
		path := c.Args().First()
		info, err := os.Stat(path)
		if err != nil {
			return nil, cfg, &card.Error{Kind: card.InvalidFile, Message: config.ErrFileOpen, Err: err}
		}
		cfg.Mode = config.SourceModeLocal
		if info.IsDir() {
			cfg.Mode = config.SourceModeDir
		}
		cfg.LocalPath = path
		return gen, cfg, nil
	}

	cfg.Mode = config.SourceModeWeb
	cfg.WebURL = firstNonEmpty(c.String(config.FlagURL), e.settings.CardDAVURL)
	cfg.WebUser = firstNonEmpty(c.String(config.FlagUser), e.settings.CardDAVUser)
	cfg.WebPass = engine.Password(cfg.WebUser)
	if cfg.WebURL == "" {
		return nil, cfg, cli.Exit(config.ErrArgsMissing+": "+c.Command.ArgsUsage, config.ExitCodeError)
	}
	return gen, cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func calendarCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      config.CmdCalendar,
		Usage:     config.UsageCalendar,
		ArgsUsage: config.ArgsSource,
		Flags:     append(syncFlags(), outputFlag()),
		Action: env.action(0, func(c *cli.Context) error {
			gen, cfg, err := env.syncSetup(c)
			if err != nil {
				return err
			}
			ics, _, _, err := gen.RunSync(c.Context, cfg)
			if err != nil {
				return env.fail(err)
			}
			if err := env.writeOutput(c.String(config.FlagOutput), ics); err != nil {
				return env.fail(err)
			}
			return nil
		}),
	}
}

func upcomingCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      config.CmdUpcoming,
		Usage:     config.UsageUpcoming,
		ArgsUsage: config.ArgsSource,
		Flags:     syncFlags(),
		Action: env.action(0, func(c *cli.Context) error {
			gen, cfg, err := env.syncSetup(c)
			if err != nil {
				return err
			}
			_, entries, _, err := gen.RunSync(c.Context, cfg)
			if err != nil {
				return env.fail(err)
			}

			sort.SliceStable(entries, func(i, j int) bool {
				if !entries[i].NextOccurrence.Equal(entries[j].NextOccurrence) {
					return entries[i].NextOccurrence.Before(entries[j].NextOccurrence)
				}
				return entries[i].Name < entries[j].Name
			})
			for _, en := range entries {
				summary := env.catalog.Summary(en.Occasion, en.Name, en.YearsNext, en.YearKnown)
				_, _ = fmt.Fprintf(env.stdout, config.FormatEntry, en.NextOccurrence.Format(config.DateFormatFullDash), summary)
			}
			return nil
		}),
	}
}

func serveCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      config.CmdServe,
		Usage:     config.UsageServe,
		ArgsUsage: config.ArgsSource,
		Flags: append(syncFlags(),
			&cli.StringFlag{Name: config.FlagPort, Usage: config.FlagDescPort},
			&cli.DurationFlag{Name: config.FlagInterval, Value: config.DefaultSyncInterval, Usage: config.FlagDescInterval},
		),
		Action: env.action(0, func(c *cli.Context) error {
			port := firstNonEmpty(c.String(config.FlagPort), env.settings.ServerPort)
			if err := config.ValidatePort(port); err != nil {
				return env.fail(err)
			}

			gen, cfg, err := env.syncSetup(c)
			if err != nil {
				return err
			}

			srv := server.NewFeedServer(port)
			refresh := func(ctx context.Context) error {
				ics, entries, _, err := gen.RunSync(ctx, cfg)
				if err != nil {
					return err
				}
				srv.Update(ics, engine.Cards(entries))
				return nil
			}
			if err := refresh(c.Context); err != nil {
				return env.fail(err)
			}

			feedURL := (&url.URL{
				Scheme: config.SchemeHTTP,
				Host:   config.LocalhostBindAddr + config.AddrSeparator + port,
				Path:   config.RouteCalendar,
			}).String()
			_, _ = fmt.Fprintln(env.stdout, env.catalog.Template(config.TKeyFeedReady, map[string]any{"URL": feedURL}))

			if interval := c.Duration(config.FlagInterval); interval > 0 {
				go refreshLoop(c.Context, interval, refresh)
			}

			if err := srv.Start(c.Context); err != nil {
				return env.fail(err)
			}
			slog.Info(config.MsgAppStop, config.LogKeyComponent, config.CompMain)
			return nil
		}),
	}
}

// refreshLoop regenerates the feed every interval until ctx is cancelled.
// A failed refresh keeps the previous feed.
func refreshLoop(ctx context.Context, interval time.Duration, refresh func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := refresh(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				slog.Warn(config.ErrVCardParse,
					config.LogKeyComponent, config.CompCLI,
					config.LogKeyError, err,
				)
				continue
			}
			slog.Info(config.MsgFeedRefreshed, config.LogKeyComponent, config.CompCLI)
		}
	}
}

// -----------------------------------------------------------------------------
// Remote & QR commands
// -----------------------------------------------------------------------------

func fetchCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  config.CmdFetch,
		Usage: config.UsageFetch,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: config.FlagURL, Usage: config.FlagDescURL},
			&cli.StringFlag{Name: config.FlagUser, Usage: config.FlagDescUser},
			outputFlag(),
		},
		Action: env.action(0, func(c *cli.Context) error {
			target := firstNonEmpty(c.String(config.FlagURL), env.settings.CardDAVURL)
			if target == "" {
				return cli.Exit(config.ErrArgsMissing+": --"+config.FlagURL, config.ExitCodeError)
			}
			user := firstNonEmpty(c.String(config.FlagUser), env.settings.CardDAVUser)

			rc, err := env.fetcher.Fetch(c.Context, target, user, engine.Password(user))
			if err != nil {
				return env.fail(err)
			}
			defer func() { _ = rc.Close() }()

			source := target
			if u, err := url.Parse(target); err == nil {
				source = engine.SafeURL(u)
			}
			records, err := cardfile.DecodeAll(rc, source, env.parser())
			if err != nil {
				return env.fail(err)
			}
			if len(records) == 0 {
				return env.fail(&card.Error{Kind: card.InvalidRecord, Message: config.ErrNoRecords})
			}

			if out := c.String(config.FlagOutput); out != "" {
				data, err := env.encodeAll(records)
				if err != nil {
					return env.fail(err)
				}
				if err := env.writeOutput(out, data); err != nil {
					return env.fail(err)
				}
				return nil
			}

			for i, rec := range records {
				if i > 0 {
					_, _ = fmt.Fprintln(env.stdout)
				}
				_, _ = fmt.Fprint(env.stdout, rec.Describe())
				rec.Release()
			}
			return nil
		}),
	}
}

func passwordCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      config.CmdPassword,
		Usage:     config.UsagePassword,
		ArgsUsage: config.ArgsUser,
		Action: env.action(1, func(c *cli.Context) error {
			data, err := io.ReadAll(env.stdin)
			if err != nil {
				return env.fail(err)
			}
			pass := strings.TrimRight(string(data), "\r\n")
			if pass == "" {
				return cli.Exit(config.ErrPasswordEmpty, config.ExitCodeError)
			}
			if err := engine.StorePassword(c.Args().First(), pass); err != nil {
				return env.fail(err)
			}
			return nil
		}),
	}
}

func qrCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      config.CmdQR,
		Usage:     config.UsageQR,
		ArgsUsage: config.ArgsFile,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: config.FlagSize, Value: config.DefaultQRSize, Usage: config.FlagDescSize},
			outputFlag(),
		},
		Action: env.action(1, func(c *cli.Context) error {
			rec, err := cardfile.Read(c.Args().First(), env.parser())
			if err != nil {
				return env.fail(err)
			}
			defer rec.Release()

			png, err := qr.EncodeRecord(rec, c.Int(config.FlagSize))
			if err != nil {
				return env.fail(err)
			}
			if err := env.writeOutput(c.String(config.FlagOutput), png); err != nil {
				return env.fail(err)
			}
			return nil
		}),
	}
}

func scanCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      config.CmdScan,
		Usage:     config.UsageScan,
		ArgsUsage: config.ArgsPNG,
		Flags:     []cli.Flag{outputFlag()},
		Action: env.action(1, func(c *cli.Context) error {
			data, err := os.ReadFile(c.Args().First())
			if err != nil {
				return env.fail(&card.Error{Kind: card.InvalidFile, Message: config.ErrFileOpen, Err: err})
			}
			rec, err := qr.DecodeRecord(data, env.parser())
			if err != nil {
				return env.fail(err)
			}
			defer rec.Release()

			if out := c.String(config.FlagOutput); out != "" {
				if err := cardfile.Write(out, rec, env.encoder()); err != nil {
					return env.fail(err)
				}
				return nil
			}
			enc := card.NewEncoder(env.stdout)
			enc.FoldWidth = env.settings.FoldWidth
			return enc.Encode(rec)
		}),
	}
}
