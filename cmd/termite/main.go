package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/termite-dev/termite/internal/agent"
	"github.com/termite-dev/termite/internal/config"
	"github.com/termite-dev/termite/internal/llm"
	"github.com/termite-dev/termite/internal/project"
	"github.com/termite-dev/termite/internal/prompt"
	"github.com/termite-dev/termite/internal/repl"
	"github.com/termite-dev/termite/internal/session"
	"github.com/termite-dev/termite/internal/stats"
	"github.com/termite-dev/termite/internal/tools"
	"github.com/termite-dev/termite/internal/ui"
)

// Version info set by ldflags at build time.
var (
	version    = "dev"
	commitHash = "dev"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	model := flag.String("model", "", "override model name")
	baseURL := flag.String("base-url", "", "override LLM base URL")
	workspace := flag.String("workspace", "", "override workspace root")
	logFile := flag.String("log", "", "log file path (empty to disable)")
	temperature := flag.Float64("temperature", -1, "override sampling temperature")
	systemMsg := flag.String("system", "", "extra instructions appended to the system prompt")
	proxy := flag.String("proxy", "", "override outbound HTTP proxy")
	execPrompt := flag.String("p", "", "exec mode: run this prompt and exit")
	quiet := flag.Bool("q", false, "exec mode: print only the final answer")
	approveAll := flag.Bool("approve-all", false, "exec mode: approve every gated tool call")
	sessionName := flag.String("s", "", "session name to continue or create")
	sessionList := flag.Bool("sessions", false, "list sessions and exit")
	sessionDelete := flag.String("session-delete", "", "delete a session and exit")
	listModels := flag.Bool("list-models", false, "list local inference models and exit")
	showVersion := flag.Bool("version", false, "show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("termite %s (%s)\n", version, commitHash)
		return
	}

	if *sessionList || *sessionDelete != "" {
		store, err := session.NewStore()
		if err != nil {
			log.Fatalf("open session store: %v", err)
		}
		if *sessionList {
			infos, err := store.List()
			if err != nil {
				log.Fatalf("list sessions: %v", err)
			}
			if len(infos) == 0 {
				fmt.Println("No sessions found.")
				return
			}
			fmt.Printf("%-28s  %-18s  %s\n", "NAME", "MODIFIED", "MESSAGES")
			for _, info := range infos {
				fmt.Printf("%-28s  %-18s  %d\n", info.Name, info.ModTime.Format("2006-01-02 15:04"), info.MessageCount)
			}
			return
		}
		if err := store.Delete(*sessionDelete); err != nil {
			log.Fatalf("%v", err)
		}
		fmt.Printf("Deleted session %s\n", *sessionDelete)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	settings, err := config.LoadSettings()
	if err != nil {
		log.Fatalf("load settings: %v", err)
	}
	applyOverrides(cfg, settings, *model, *baseURL, *workspace, *logFile, *proxy)
	if *temperature >= 0 {
		cfg.LLM.Temperature = float32(*temperature)
	}

	if *listModels {
		if cfg.LLM.LocalCommand == "" {
			log.Fatal("no local inference command configured")
		}
		parts := strings.Fields(cfg.LLM.LocalCommand)
		models, err := llm.ListLocalModels(context.Background(), parts[0], parts[1:]...)
		if err != nil {
			log.Fatalf("list models: %v", err)
		}
		for _, m := range models {
			fmt.Println(m)
		}
		return
	}

	execMode := *execPrompt != ""

	writer := ui.NewWriter()
	if execMode {
		writer.SetHeadless(true)
	}
	if *quiet {
		writer.SetQuiet(true)
	}

	logger, err := agent.NewLogger(cfg.Agent.LogFile)
	if err != nil {
		log.Fatalf("open log: %v", err)
	}
	defer logger.Close()

	registry := tools.DefaultRegistry(tools.CatalogConfig{
		Root:             cfg.Workspace.Root,
		MaxFileSizeMB:    cfg.Tools.Read.MaxFileSizeMB,
		SearchMaxResults: cfg.Tools.Search.MaxResults,
		SearchContext:    cfg.Tools.Search.ContextLines,
		ShellDefaultSec:  cfg.Tools.Shell.DefaultTimeoutSeconds,
		ShellMaxSec:      cfg.Tools.Shell.MaxTimeoutSeconds,
	})

	backend, backendDesc := buildBackend(cfg)
	projectContext := project.Collect(cfg.Workspace.Root, cfg.Context.MaxChars)
	systemPrompt := prompt.Build(cfg.Workspace.Root, registry, projectContext)
	if *systemMsg != "" {
		systemPrompt += "\n\n# ADDITIONAL INSTRUCTIONS\n\n" + *systemMsg
	}

	store, err := session.NewStore()
	if err != nil {
		writer.Warn(fmt.Sprintf("session persistence disabled: %v", err))
		store = nil
	}
	name := *sessionName
	var unlock func()
	if store != nil {
		if name == "" {
			name = store.GenerateName()
		}
		if unlock, err = store.Lock(name); err != nil {
			log.Fatalf("%v", err)
		}
		defer unlock()
	}

	st := stats.New()
	emitter := agent.NewEmitter(0)

	r := &repl.REPL{
		Emitter:     emitter,
		Writer:      writer,
		Registry:    registry,
		Store:       store,
		Stats:       st,
		Settings:    settings,
		SessionName: name,
	}

	opts := agent.Options{
		Backend:       backend,
		Registry:      registry,
		Session:       tools.NewSession(),
		Logger:        logger,
		Emitter:       emitter,
		Stats:         st,
		Model:         cfg.LLM.Model,
		Temperature:   cfg.LLM.Temperature,
		MaxTokens:     cfg.LLM.MaxTokens,
		MaxIterations: cfg.Agent.MaxIterations,
		SystemPrompt:  systemPrompt,
	}
	if execMode {
		if *approveAll {
			opts.Approver = repl.ApproveAll{}
		}
	} else {
		opts.Approver = r
		opts.ErrorDecider = r
		opts.ContinueDecider = r
	}

	a := agent.New(opts)
	r.Agent = a

	if store != nil && store.Exists(name) {
		if prior, err := store.Load(name); err == nil && len(prior) > 0 {
			if prior[0].Role != llm.RoleSystem {
				prior = append([]llm.Message{{Role: llm.RoleSystem, Content: systemPrompt}}, prior...)
			}
			if err := a.ReplaceHistory(prior); err == nil {
				writer.Startup(fmt.Sprintf("Continuing session %s (%d messages)", name, len(prior)))
			}
		}
	}

	writer.Startup(fmt.Sprintf("backend: %s", backendDesc))

	ctx := context.Background()
	if execMode {
		go drainExecEvents(emitter, writer)
		if err := repl.RunExec(ctx, a, writer, store, st, name, *execPrompt); err != nil {
			writer.Error(err.Error())
			os.Exit(1)
		}
		return
	}

	if err := r.Run(ctx); err != nil {
		writer.Error(err.Error())
		os.Exit(1)
	}
}

func applyOverrides(cfg *config.Config, settings *config.Settings, model, baseURL, workspace, logFile, proxy string) {
	if cfg.LLM.APIKey == "" && settings.APIKey != "" {
		cfg.LLM.APIKey = settings.APIKey
	}
	if settings.DefaultModel != "" && cfg.LLM.Model == "" {
		cfg.LLM.Model = settings.DefaultModel
	}
	if settings.Proxy != "" && cfg.LLM.Proxy == "" {
		cfg.LLM.Proxy = settings.Proxy
	}
	if model != "" {
		cfg.LLM.Model = model
	}
	if baseURL != "" {
		cfg.LLM.BaseURL = baseURL
	}
	if workspace != "" {
		cfg.Workspace.Root = workspace
	}
	if logFile != "" {
		cfg.Agent.LogFile = logFile
	}
	if proxy != "" {
		cfg.LLM.Proxy = proxy
	}
}

func buildBackend(cfg *config.Config) (llm.Backend, string) {
	if cfg.LLM.LocalCommand != "" {
		parts := strings.Fields(cfg.LLM.LocalCommand)
		return llm.NewLocalBackend(parts[0], parts[1:]...),
			fmt.Sprintf("local (%s)", parts[0])
	}
	client, err := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Proxy)
	if err != nil {
		log.Fatalf("build LLM client: %v", err)
	}
	return client, fmt.Sprintf("%s (model %s)", cfg.LLM.BaseURL, cfg.LLM.Model)
}

// drainExecEvents renders progress to stderr in exec mode.
func drainExecEvents(emitter *agent.Emitter, writer *ui.Writer) {
	for ev := range emitter.Events() {
		switch ev.Kind {
		case agent.EventToolStarted:
			writer.ToolCall(ev.ToolName, compactExecArgs(ev.Args))
		case agent.EventToolFinished:
			if ev.Result != nil && !ev.Result.Success {
				writer.ToolResult(ev.Result.Error, false)
			}
		case agent.EventFinalMessage:
			writer.Assistant(ev.Text)
		case agent.EventErrorRaised:
			writer.Error(ev.Text)
		}
	}
}

func compactExecArgs(raw json.RawMessage) string {
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return ""
	}
	parts := make([]string, 0, len(args))
	for k, v := range args {
		s := fmt.Sprintf("%s=%v", k, v)
		if len(s) > 60 {
			s = s[:57] + "..."
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}
