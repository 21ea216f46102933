package ctl

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sessiond/pkg/types"
)

// Config carries the persistent CLI settings.
type Config struct {
	ServerURL string
	LogLvl    string
	Timeout   time.Duration
}

// DefaultConfig reads env-backed defaults.
func DefaultConfig() *Config {
	return &Config{
		ServerURL: envStr("SESSIOND_URL", "http://127.0.0.1:8080"),
		LogLvl:    envStr("SESSIONCTL_LOG_LEVEL", "info"),
		Timeout:   2 * time.Minute,
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// buildRootCmd is a convenience for help-only fallbacks.
func buildRootCmd() *cobra.Command { return buildRootCmdWith(DefaultConfig()) }

// buildRootCmdWith constructs the Cobra command tree over the HTTP client.
func buildRootCmdWith(cfg *Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "sessionctl",
		Short:         "Control a running sessiond instance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("server", cfg.ServerURL, "sessiond base URL (defaults SESSIOND_URL or http://127.0.0.1:8080)")
	root.PersistentFlags().String("log-level", cfg.LogLvl, "Log level: debug|info|warn|error (defaults SESSIONCTL_LOG_LEVEL or info)")
	root.PersistentFlags().Duration("timeout", cfg.Timeout, "Request timeout for streaming commands")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if f := cmd.InheritedFlags().Lookup("server"); f != nil {
			if v := f.Value.String(); v != "" {
				cfg.ServerURL = v
			}
		}
		if f := cmd.InheritedFlags().Lookup("log-level"); f != nil {
			if v := f.Value.String(); v != "" {
				cfg.LogLvl = v
			}
		}
		if f := cmd.InheritedFlags().Lookup("timeout"); f != nil {
			if d, err := time.ParseDuration(f.Value.String()); err == nil && d > 0 {
				cfg.Timeout = d
			}
		}
		SetLogLevel(cfg.LogLvl)
	}

	client := func() *Client { return NewClient(cfg.ServerURL) }
	opCtx := func() (context.Context, context.CancelFunc) {
		return context.WithTimeout(context.Background(), cfg.Timeout)
	}

	modelsCmd := &cobra.Command{Use: "models", Short: "List models discovered by the server", RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opCtx()
		defer cancel()
		models, err := client().Models(ctx)
		if err != nil {
			return err
		}
		return printJSON(types.ModelsResponse{Models: models})
	}}

	statusCmd := &cobra.Command{Use: "status", Short: "Show server status", RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opCtx()
		defer cancel()
		st, err := client().Status(ctx)
		if err != nil {
			return err
		}
		return printJSON(st)
	}}

	sessionsCmd := &cobra.Command{Use: "sessions", Short: "List live sessions", RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opCtx()
		defer cancel()
		sessions, err := client().Sessions(ctx)
		if err != nil {
			return err
		}
		return printJSON(types.SessionsResponse{Sessions: sessions})
	}}

	createCmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a generation session",
		Example: "  sessionctl create --model tinyllama.gguf --context-window 2048 --temperature 0.7",
	}
	createModel := createCmd.Flags().String("model", "", "Model id (empty uses the server default)")
	createWindow := createCmd.Flags().Int("context-window", 0, "Context window in tokens (0=server default)")
	createGPULayers := createCmd.Flags().Int("gpu-layers", 0, "GPU offload layer count")
	createTemp := createCmd.Flags().Float64("temperature", 0, "Sampling temperature (0=server default)")
	createTopK := createCmd.Flags().Int("top-k", 0, "Top-K (0=server default)")
	createTopP := createCmd.Flags().Float64("top-p", 0, "Top-P (0=server default)")
	createRepeat := createCmd.Flags().Float64("repeat-penalty", 0, "Repetition penalty (0=server default)")
	createSeed := createCmd.Flags().Int64("seed", 0, "Sampler seed (0=server chooses)")
	createGreedy := createCmd.Flags().Bool("greedy", false, "Use greedy (argmax) sampling")
	createDiscard := createCmd.Flags().Bool("discard-on-error", false, "Fail the create when the model load fails")
	createCmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opCtx()
		defer cancel()
		st, err := client().Create(ctx, types.CreateSessionRequest{
			Model:         *createModel,
			ContextWindow: *createWindow,
			GPULayers:     *createGPULayers,
			Sampling: types.SamplingParams{
				Temperature:   *createTemp,
				TopK:          *createTopK,
				TopP:          *createTopP,
				RepeatPenalty: *createRepeat,
				Seed:          *createSeed,
				Greedy:        *createGreedy,
			},
			DiscardOnError: *createDiscard,
		})
		if err != nil {
			return err
		}
		if !st.Loaded {
			warn("session created but model failed to load: %s", st.LastError)
		}
		return printJSON(st)
	}

	getCmd := &cobra.Command{Use: "get <session-id>", Short: "Show one session's status", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opCtx()
		defer cancel()
		st, err := client().Get(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(st)
	}}

	destroyCmd := &cobra.Command{Use: "destroy <session-id>", Short: "Destroy a session and free its resources", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opCtx()
		defer cancel()
		if err := client().Destroy(ctx, args[0]); err != nil {
			return err
		}
		info("destroyed %s", args[0])
		return nil
	}}

	systemCmd := &cobra.Command{Use: "system <session-id> <text>", Short: "Set the system prompt (starts a fresh turn)", Args: cobra.ExactArgs(2), RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opCtx()
		defer cancel()
		return client().System(ctx, args[0], args[1])
	}}

	promptCmd := &cobra.Command{
		Use:   "prompt <session-id> <text>",
		Short: "Prefill the user prompt",
		Args:  cobra.ExactArgs(2),
	}
	promptMax := promptCmd.Flags().Int("max-tokens", 0, "Hint for the number of tokens to be generated next")
	promptCmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opCtx()
		defer cancel()
		n, err := client().Prompt(ctx, args[0], args[1], *promptMax)
		if err != nil {
			return err
		}
		debug("prompt processed, sequence length %d", n)
		return printJSON(types.PromptResponse{PromptTokens: n})
	}

	nextCmd := &cobra.Command{Use: "next <session-id>", Short: "Generate exactly one token", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opCtx()
		defer cancel()
		tok, err := client().Next(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(tok)
	}}

	generateCmd := &cobra.Command{
		Use:     "generate <session-id>",
		Short:   "Stream generated tokens to stdout",
		Example: "  sessionctl generate 0b8e6f2a-... --max-tokens 128",
		Args:    cobra.ExactArgs(1),
	}
	generateMax := generateCmd.Flags().Int("max-tokens", 0, "Maximum new tokens (0=server default)")
	generateCmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opCtx()
		defer cancel()
		res, err := client().Generate(ctx, args[0], *generateMax, os.Stdout)
		if err != nil {
			return err
		}
		fmt.Println()
		debug("finish_reason=%s", res.FinishReason)
		return nil
	}

	resetCmd := &cobra.Command{Use: "reset <session-id>", Short: "Reset the session for a fresh conversation", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opCtx()
		defer cancel()
		return client().Reset(ctx, args[0])
	}}

	root.AddCommand(modelsCmd, statusCmd, sessionsCmd, createCmd, getCmd, destroyCmd, systemCmd, promptCmd, nextCmd, generateCmd, resetCmd)

	// completion command
	completionCmd := &cobra.Command{Use: "completion", Short: "Generate the autocompletion script for the specified shell"}
	completionCmd.AddCommand(&cobra.Command{Use: "bash", Short: "Bash completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenBashCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "zsh", Short: "Zsh completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenZshCompletion(os.Stdout) }})
	completionCmd.AddCommand(&cobra.Command{Use: "fish", Short: "Fish completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenFishCompletion(os.Stdout, true) }})
	completionCmd.AddCommand(&cobra.Command{Use: "powershell", Short: "PowerShell completion", RunE: func(cmd *cobra.Command, args []string) error { return root.GenPowerShellCompletionWithDesc(os.Stdout) }})
	root.AddCommand(completionCmd)

	return root
}
