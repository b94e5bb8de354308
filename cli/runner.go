// Command execution for CLI commands.
//
// Information Hiding:
// - Session assembly (screen, storage, planner, actor, loop) hidden
// - Output formatting hidden

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/richinex/vlmpilot/actor"
	"github.com/richinex/vlmpilot/computer"
	"github.com/richinex/vlmpilot/config"
	"github.com/richinex/vlmpilot/history"
	"github.com/richinex/vlmpilot/llm"
	"github.com/richinex/vlmpilot/loop"
	"github.com/richinex/vlmpilot/model"
	"github.com/richinex/vlmpilot/observability"
	"github.com/richinex/vlmpilot/planner"
	"github.com/richinex/vlmpilot/screen"
	"github.com/richinex/vlmpilot/storage"
)

// Options holds CLI overrides applied on top of the loaded settings.
// Zero values leave the setting untouched.
type Options struct {
	ConfigPath   string
	PlannerModel string
	Provider     string
	ActorModel   string
	ActorURL     string
	MaxTurns     int
	Direct       bool
	FramesDir    string
	DBPath       string
	Verbose      bool
}

// LoadSettings loads settings and applies opts.
func LoadSettings(opts Options) (config.Settings, error) {
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Settings{}, err
	}
	if opts.PlannerModel != "" {
		settings.Planner.Model = opts.PlannerModel
	}
	if opts.Provider != "" {
		settings.Planner.Provider = config.NormalizeProvider(opts.Provider)
	}
	if opts.ActorModel != "" {
		settings.Actor.Model = opts.ActorModel
	}
	if opts.ActorURL != "" {
		settings.Actor.BaseURL = opts.ActorURL
	}
	if opts.MaxTurns > 0 {
		settings.Session.MaxTurns = opts.MaxTurns
	}
	if opts.Direct {
		settings.Session.DirectMode = true
	}
	if opts.FramesDir != "" {
		settings.Screen.Backend = config.BackendFiles
		settings.Screen.FramesDir = opts.FramesDir
	}
	if opts.DBPath != "" {
		settings.Storage.DBPath = opts.DBPath
	}
	if opts.Verbose {
		settings.Logger.Level = "debug"
	}
	return settings, settings.Validate()
}

// Run executes one task end to end and prints its progress to stdout.
func Run(ctx context.Context, task string, opts Options) error {
	settings, err := LoadSettings(opts)
	if err != nil {
		return err
	}
	observability.InitializeLogger(settings.Logger)
	defer observability.Sync()
	logger := observability.GetLogger()

	store, closeStore, err := openStore(settings.Storage)
	if err != nil {
		return err
	}
	defer closeStore()

	capturer, display, closeScreen, err := openScreen(ctx, settings.Screen, logger)
	if err != nil {
		return err
	}
	defer closeScreen()
	stored := screen.NewStoringCapturer(capturer, store)

	out := NewConsoleSink(os.Stdout)

	actorCfg := actor.DefaultConfig()
	actorCfg.Model = settings.Actor.Model
	actorCfg.Provider = settings.Actor.Provider
	actorCfg.BaseURL = settings.Actor.BaseURL
	actorCfg.APIKey = settings.Actor.APIKey
	actorCfg.MaxTokens = settings.Actor.MaxTokens
	actorCfg.Retries = settings.Actor.Retries
	actorCfg.HistoryWindow = settings.Actor.ActionHistoryWindow
	actorCfg.SelectedScreen = settings.Session.SelectedScreen
	act, err := actor.New(actorCfg, stored, out, logger)
	if err != nil {
		return err
	}

	exec := computer.NewExecutor(display, stored, screen.Request{Display: settings.Session.SelectedScreen}, logger)

	imagesToKeep := settings.Session.ImagesToKeep()
	l := loop.New(act, exec, loop.Options{
		MaxTurns:   settings.Session.MaxTurns,
		DirectMode: settings.Session.DirectMode,
		HideImages: settings.Session.HideImages,
	}, logger).
		WithShaper(history.NewShaper(imagesToKeep, logger)).
		WithTranscripts(store).
		WithSink(out)

	var p *planner.Planner
	if !settings.Session.DirectMode {
		p, err = planner.New(plannerConfig(settings), stored, out, logger)
		if err != nil {
			return err
		}
		l.WithPlanner(p)
		fmt.Printf("Planner: %s (%s)  Actor: %s\n\n", settings.Planner.Model, p.Provider().Name(), settings.Actor.Model)
	} else {
		fmt.Printf("Direct mode. Actor: %s\n\n", settings.Actor.Model)
	}

	state, err := l.Run(ctx, task)
	if state != nil {
		fmt.Printf("\nSession %s: %d turns, stopped: %s, %s\n",
			state.SessionID, state.Turns, stopLabel(state.Stop, err), state.Duration.Round(time.Millisecond))
	}
	if p != nil {
		fmt.Printf("Planner tokens: %d  estimated cost: $%.5f\n", p.Ledger().TotalTokens(), p.Ledger().TotalCost())
	}
	fmt.Printf("Actor tokens: %d\n", act.TotalTokens())
	return err
}

func stopLabel(stop loop.StopReason, err error) string {
	if err != nil {
		return "error"
	}
	return string(stop)
}

func plannerConfig(s config.Settings) planner.Config {
	cfg := planner.Config{
		Model:              s.Planner.Model,
		Provider:           s.Planner.Provider,
		APIKey:             s.Planner.APIKey,
		Endpoint:           s.Planner.Endpoint,
		BaseURL:            s.Planner.BaseURL,
		MaxTokens:          s.Planner.MaxTokens,
		Temperature:        s.Planner.Temperature,
		Retries:            s.Planner.Retries,
		SystemPromptSuffix: s.Planner.SystemPromptSuffix,
		ImagesToKeep:       s.Session.ImagesToKeep(),
		SelectedScreen:     s.Session.SelectedScreen,
	}
	if t := s.Planner.Tunnel; t.Addr != "" {
		cfg.Tunnel = &llm.TunnelConfig{
			Addr:           t.Addr,
			User:           t.User,
			KeyFile:        t.KeyFile,
			KnownHostsFile: t.KnownHostsFile,
			Timeout:        t.Timeout,
		}
	}
	return cfg
}

type sessionStore interface {
	storage.BlobStore
	storage.TranscriptStore
}

func openStore(cfg config.StorageConfig) (sessionStore, func(), error) {
	if cfg.DBPath == "" {
		return storage.NewInMemoryStorage(), func() {}, nil
	}
	s, err := storage.OpenSqlite(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return s, func() { s.Close() }, nil
}

func openScreen(ctx context.Context, cfg config.ScreenConfig, logger *zap.Logger) (screen.Capturer, computer.Display, func(), error) {
	switch cfg.Backend {
	case config.BackendFiles:
		c, err := screen.NewFileCapturer(cfg.FramesDir)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info("replaying screenshots", zap.String("dir", cfg.FramesDir), zap.Int("frames", c.Frames()))
		return c, computer.NewDryRun(cfg.Width, cfg.Height), func() {}, nil
	case config.BackendBrowser:
		b, err := screen.NewBrowserDisplay(ctx, screen.BrowserConfig{
			StartURL: cfg.StartURL,
			Width:    cfg.Width,
			Height:   cfg.Height,
			Headless: cfg.Headless,
		}, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		return b, b, func() { b.Close() }, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown screen backend: %q", cfg.Backend)
	}
}

// ConsoleSink prints session progress. Inline screenshots are replaced by
// a short marker since terminals cannot show them.
type ConsoleSink struct {
	w io.Writer
}

// NewConsoleSink creates a sink writing to w.
func NewConsoleSink(w io.Writer) *ConsoleSink {
	return &ConsoleSink{w: w}
}

var imgTag = regexp.MustCompile(`<img src="data:[^"]*">`)

func (s *ConsoleSink) Output(rendered string) {
	fmt.Fprintln(s.w, imgTag.ReplaceAllString(rendered, "[screenshot]"))
}

func (s *ConsoleSink) ToolResult(id string, result model.ToolResult) {
	if result.IsError() {
		fmt.Fprintf(s.w, "  action %s failed\n", shortID(id))
	}
}

func (s *ConsoleSink) Response(provider, raw string) {}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Models prints the planner model table and the actor presets. A non-empty
// prefix limits the planner table to matching names.
func Models(w io.Writer, prefix string) {
	planners := llm.Models()
	if prefix != "" {
		planners = llm.SearchModels(prefix)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PLANNER MODEL\tAPI ID\tPROVIDER")
	for _, m := range planners {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.DisplayName, m.APIID, m.Provider)
	}
	tw.Flush()

	fmt.Fprintln(w)
	fmt.Fprintln(tw, "ACTOR MODEL\tAPI ID\tPROVIDER")
	for _, name := range actor.Presets() {
		p := actor.LookupPreset(name)
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Name, p.APIID, p.Provider)
	}
	tw.Flush()
}

// Transcripts lists recorded sessions, or the turns of one session.
func Transcripts(ctx context.Context, w io.Writer, dbPath, sessionID string) error {
	store, err := storage.OpenSqlite(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	if sessionID == "" {
		sessions, err := store.ListSessions(ctx)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Fprintln(w, "No sessions recorded.")
			return nil
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SESSION\tSTARTED\tTURNS\tTASK")
		for _, s := range sessions {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.SessionID, s.StartedAt.Format(time.DateTime), s.Turns, truncateString(s.Task, 60))
		}
		return tw.Flush()
	}

	turns, err := store.LoadTurns(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		return fmt.Errorf("session %q not found", sessionID)
	}
	fmt.Fprintf(w, "Task: %s\n", turns[0].Task)
	for _, t := range turns {
		fmt.Fprintf(w, "\n[%d] %s\n", t.Index, t.CreatedAt.Format(time.TimeOnly))
		if t.Decision != "" {
			fmt.Fprintf(w, "  plan:   %s\n", oneLine(t.Decision))
		}
		fmt.Fprintf(w, "  action: %s\n", oneLine(t.Action))
		status := "ok"
		if t.IsError {
			status = "error"
		}
		fmt.Fprintf(w, "  result: %s (%s)\n", oneLine(t.Result), status)
		if t.ScreenshotRef != "" {
			fmt.Fprintf(w, "  screen: %s\n", t.ScreenshotRef)
		}
	}
	return nil
}

func oneLine(s string) string {
	return truncateString(strings.Join(strings.Fields(s), " "), 160)
}

// truncateString truncates a string to maxLen characters.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
