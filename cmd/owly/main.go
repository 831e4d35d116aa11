package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"owly/internal/agents"
	"owly/internal/chat"
	"owly/internal/config"
	"owly/internal/embedding"
	"owly/internal/llm"
	"owly/internal/logging"
	"owly/internal/retrieval"
	"owly/internal/rules"
	"owly/internal/store"
)

var (
	// Global flags
	verbose    bool
	apiKey     string
	workspace  string
	configPath string
	timeout    time.Duration

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "owly",
	Short: "Owly - conversational mortgage eligibility assistant",
	Long: `Owly helps loan officers match borrower scenarios to lender programs.

It accumulates scenario facts across a conversation, routes each message by
intent, and runs a leader/specialist/evaluator pipeline over the loaded
lender guidelines when enough of the scenario is known.

Run without arguments to start the interactive chat interface.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive()
	},
}

// askCmd runs a single turn and exits
var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Ask a single question or submit a scenario without a session",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

// statusCmd shows system status
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show Owly system status",
	RunE:  showStatus,
}

// conversationsCmd lists recent conversations
var conversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "List recent conversations",
	RunE:  listConversations,
}

// seedCmd loads a YAML fixture of lender guidelines into the store
var seedCmd = &cobra.Command{
	Use:   "seed [fixture.yaml]",
	Short: "Load lender documents, chunks, and rules from a YAML fixture",
	Long: `Loads a guideline fixture into the local store. The fixture holds
documents (with their chunks) and structured rules per lender. This is
the offline substitute for the hosted ingestion pipeline.`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "OpenAI-compatible API key (or set OWLY_API_KEY env)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "owly.yaml", "Config file path")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")

	conversationsCmd.Flags().Int("limit", 20, "Maximum conversations to list")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(conversationsCmd)
	rootCmd.AddCommand(seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app bundles the wired components for a command invocation.
type app struct {
	cfg     *config.Config
	store   *store.LocalStore
	service *chat.Service
}

func (a *app) Close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}

// buildApp loads config and wires the store, retrieval, and pipeline.
func buildApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if apiKey != "" {
		cfg.LLM.APIKey = apiKey
		if cfg.Embedding.APIKey == "" {
			cfg.Embedding.APIKey = apiKey
		}
	}

	cwd := workspace
	if cwd == "" {
		cwd, _ = os.Getwd()
	}
	if err := logging.Initialize(cwd, logging.Options{
		DebugMode:  cfg.Logging.DebugMode || verbose,
		Level:      cfg.Logging.Level,
		Categories: cfg.Logging.Categories,
		JSONFormat: cfg.Logging.JSONFormat,
	}); err != nil {
		return nil, err
	}

	localStore, err := store.NewLocalStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	client := llm.NewOpenAIClient(cfg.LLM)

	var engine embedding.Engine
	if cfg.Embedding.APIKey != "" {
		engine = embedding.NewOpenAIEngine(cfg.Embedding)
	} else {
		logger.Debug("No embedding API key configured; retrieval uses keyword matching")
	}
	searcher := retrieval.NewRetriever(localStore, engine)

	matcher := rules.NewMatcher(localStore)
	factory := agents.NewFactory(client, searcher, matcher, localStore, localStore, cfg.Agents)
	service := chat.NewService(localStore, client, searcher, localStore, localStore, factory, cfg.Agents)

	return &app{cfg: cfg, store: localStore, service: service}, nil
}

func commandContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}

// runInteractive starts the chat REPL.
func runInteractive() error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Println("Owly - mortgage eligibility assistant")
	fmt.Println("Type your question or scenario. 'exit' to quit.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	conversationID := ""
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		resp := a.service.ProcessMessage(ctx, line, conversationID)
		cancel()

		conversationID = resp.ConversationID
		fmt.Println()
		fmt.Println(resp.Response)
		fmt.Printf("\n[confidence %d%%", resp.Confidence)
		if len(resp.Citations) > 0 {
			fmt.Printf(", %d citations", len(resp.Citations))
		}
		fmt.Println("]")
		fmt.Println()
	}
	return scanner.Err()
}

// runAsk processes one message with no prior conversation state.
func runAsk(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext()
	defer cancel()

	message := strings.Join(args, " ")
	logger.Info("Processing message", zap.String("input", message))

	resp := a.service.ProcessMessage(ctx, message, "")

	fmt.Println(resp.Response)
	if len(resp.Citations) > 0 {
		fmt.Println("\nSources:")
		for _, c := range resp.Citations {
			fmt.Printf("  [%s] %s - %s\n", c.SourceID, c.Lender, c.Ref)
		}
	}
	return nil
}

// showStatus displays configuration and corpus state.
func showStatus(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Println("Owly System Status")
	fmt.Println("==================")
	fmt.Printf("Version:  %s\n", a.cfg.Version)
	fmt.Printf("Model:    %s\n", a.cfg.LLM.Model)
	fmt.Printf("Database: %s\n", a.cfg.Storage.DatabasePath)
	fmt.Println()

	if a.cfg.LLM.APIKey != "" {
		fmt.Println("✓ API key configured")
	} else {
		fmt.Println("✗ API key not configured")
	}

	stats, err := a.store.CorpusStats()
	if err != nil {
		return fmt.Errorf("failed to read corpus stats: %w", err)
	}
	fmt.Printf("✓ Lenders:   %d", len(stats.Lenders))
	if len(stats.Lenders) > 0 {
		fmt.Printf(" (%s)", strings.Join(stats.Lenders, ", "))
	}
	fmt.Println()
	fmt.Printf("✓ Documents: %d\n", stats.DocumentCount)
	fmt.Printf("✓ Rules:     %d\n", stats.RuleCount)
	return nil
}

// listConversations prints recent conversations with their fact state.
func listConversations(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	convs, err := a.store.ListConversations(limit)
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}
	if len(convs) == 0 {
		fmt.Println("No conversations yet.")
		return nil
	}

	for _, c := range convs {
		fmt.Printf("%s  %s  facts=%d missing=%d  %s\n",
			c.ID, c.Status, len(c.Facts), len(c.MissingFields),
			c.UpdatedAt.Format(time.RFC3339))
	}
	return nil
}
