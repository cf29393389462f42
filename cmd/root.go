package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/meysamhadeli/repoaudit/cache"
	"github.com/meysamhadeli/repoaudit/code_analyzer"
	contracts_analyzer "github.com/meysamhadeli/repoaudit/code_analyzer/contracts"
	"github.com/meysamhadeli/repoaudit/config"
	"github.com/meysamhadeli/repoaudit/constants/lipgloss"
	"github.com/meysamhadeli/repoaudit/pipeline"
	"github.com/meysamhadeli/repoaudit/providers"
	"github.com/meysamhadeli/repoaudit/source_acquirer"
	"github.com/meysamhadeli/repoaudit/token_management"
	contracts_token "github.com/meysamhadeli/repoaudit/token_management/contracts"
)

// RootDependencies holds everything subcommands share.
type RootDependencies struct {
	Config          *config.Config
	Cwd             string
	Logger          *slog.Logger
	TokenManagement contracts_token.ITokenManagement
	Analyzer        contracts_analyzer.ICodeAnalyzer
	Acquirer        *source_acquirer.Acquirer
	Cache           *cache.ReplyCache
}

var rootCmd = &cobra.Command{
	Use:   "repoaudit",
	Short: "Audit a source repository with a language model",
	Long: `repoaudit clones a repository (or reads a local checkout), selects its source files,
packs them into a bounded prompt and asks a language model for a structured health report:
a 0-100 score, an executive summary, a short roadmap and categorised findings.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if version, _ := cmd.Flags().GetBool("version"); version {
			fmt.Println(lipgloss.Info.Render("repoaudit " + config.DefaultConfig.Version))
			return nil
		}
		return cmd.Help()
	},
}

func init() {
	config.InitFlags(rootCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, lipgloss.Red.Render(err.Error()))
		os.Exit(1)
	}
}

// handleRootCommand loads the configuration and wires the shared components.
func handleRootCommand(cmd *cobra.Command) (*RootDependencies, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current working directory: %w", err)
	}

	cfg, err := config.LoadConfigs(cmd.Root(), cwd)
	if err != nil {
		return nil, err
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	analyzer, err := code_analyzer.NewCodeAnalyzer(cfg.Selector, cfg.Aggregator, cfg.TemplateVersion, logger)
	if err != nil {
		return nil, err
	}

	acquirer := source_acquirer.NewAcquirer(source_acquirer.NewGitCloner(), cfg.Clone.TempDir, logger)
	acquirer.CloneTimeout = cfg.Clone.Timeout

	deps := &RootDependencies{
		Config:          cfg,
		Cwd:             cwd,
		Logger:          logger,
		TokenManagement: token_management.NewTokenManager(),
		Analyzer:        analyzer,
		Acquirer:        acquirer,
	}

	if cfg.Cache.Enabled {
		replyCache, err := cache.NewReplyCache(cfg.Cache.Dir, cfg.Cache.MaxAge)
		if err != nil {
			return nil, err
		}
		deps.Cache = replyCache
	}

	return deps, nil
}

// newPipeline builds the audit pipeline. The provider is only created when
// withGenerator is set, so dry runs need no API key.
func (deps *RootDependencies) newPipeline(withGenerator bool) (*pipeline.Pipeline, error) {
	opts := []pipeline.Option{pipeline.WithLogger(deps.Logger)}
	if deps.Cache != nil {
		opts = append(opts, pipeline.WithCache(deps.Cache, deps.Config.AIProviderConfig.Model))
	}

	var generator pipeline.Generator
	if withGenerator {
		provider, err := providers.ChatProviderFactory(deps.Config.AIProviderConfig, deps.TokenManagement)
		if err != nil {
			return nil, err
		}
		generator = providers.NewGenerator(provider, deps.Logger)
	}

	return pipeline.New(deps.Acquirer, deps.Analyzer, generator, opts...), nil
}

// defaultCredential applies the configured GitHub token to github.com URLs.
func (deps *RootDependencies) defaultCredential(url, explicit string) source_acquirer.Credential {
	if explicit != "" {
		return source_acquirer.NewCredential(explicit)
	}
	if source_acquirer.Host(url) == "github.com" {
		return source_acquirer.NewCredential(deps.Config.Clone.GithubToken)
	}
	return source_acquirer.Credential{}
}
