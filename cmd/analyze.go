package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/meysamhadeli/repoaudit/constants/lipgloss"
	"github.com/meysamhadeli/repoaudit/pipeline"
	"github.com/meysamhadeli/repoaudit/report"
	"github.com/meysamhadeli/repoaudit/source_acquirer"
	"github.com/meysamhadeli/repoaudit/token_management"
	"github.com/meysamhadeli/repoaudit/utils"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [url|path]",
	Short: "Audit a repository and print its health report",
	Long: `The 'analyze' subcommand clones the given repository URL (or reads a local directory),
packs its source files into a prompt within the configured character budget and asks the
configured model for a health report. With --dry-run it stops after building the prompt.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		return handleAnalyzeCommand(cmd, args, rootDependencies)
	},
}

func init() {
	analyzeCmd.Flags().Bool("dry-run", false, "Build the prompt and print the coverage without calling the model")
	analyzeCmd.Flags().Bool("json", false, "Print the result as JSON")
	analyzeCmd.Flags().Bool("show-prompt", false, "Print the assembled prompt (dry run only)")
	analyzeCmd.Flags().String("revision", "", "Branch, tag or commit hash to check out")
	analyzeCmd.Flags().String("token", "", "Access token for private repositories (defaults to GITHUB_TOKEN for github.com)")
	analyzeCmd.Flags().String("theme", "dracula", "Highlighting theme for the rendered report")

	rootCmd.AddCommand(analyzeCmd)
}

func handleAnalyzeCommand(cmd *cobra.Command, args []string, rootDependencies *RootDependencies) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	asJSON, _ := cmd.Flags().GetBool("json")
	showPrompt, _ := cmd.Flags().GetBool("show-prompt")
	revision, _ := cmd.Flags().GetString("revision")
	token, _ := cmd.Flags().GetString("token")
	theme, _ := cmd.Flags().GetString("theme")

	target := ""
	if len(args) == 1 {
		target = args[0]
	} else {
		input, err := utils.InputPromptWithContext(ctx, bufio.NewReader(os.Stdin), os.Stdout, "Repository URL or path ")
		if err != nil {
			return err
		}
		target = input
	}
	if target == "" {
		return errors.New("a repository URL or path is required")
	}

	ref, cred := rootDependencies.reference(target, revision, token)

	auditPipeline, err := rootDependencies.newPipeline(!dryRun)
	if err != nil {
		return err
	}

	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgLightBlue)).
		WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
		WithDelay(100 * time.Millisecond).WithRemoveWhenDone(true)

	if dryRun {
		spinnerInstance, _ := spinner.Start("Building prompt...")
		preview, err := auditPipeline.Preview(ctx, ref, cred)
		spinnerInstance.Stop()
		if err != nil {
			return describeFailure(err)
		}
		if asJSON {
			return utils.RenderJSON(os.Stdout, preview, "")
		}
		if showPrompt {
			fmt.Println(preview.Payload.Text())
		}
		fmt.Println(utils.CoverageBox(preview.Manifest, preview.EstimatedTokens))
		providerConfig := rootDependencies.Config.AIProviderConfig
		if limit := token_management.MaxInputTokens(providerConfig.Provider, providerConfig.Model); limit > 0 && preview.EstimatedTokens > limit {
			fmt.Println(lipgloss.Yellow.Render(fmt.Sprintf("Estimated prompt tokens %d exceed the %s context window of %d", preview.EstimatedTokens, providerConfig.Model, limit)))
		}
		fmt.Println(lipgloss.Gray.Render(fmt.Sprintf("Template %s, payload digest %s", preview.TemplateVersion, preview.PayloadDigest)))
		return nil
	}

	spinnerInstance, _ := spinner.Start("Auditing repository...")
	result, err := auditPipeline.Run(ctx, ref, cred)
	spinnerInstance.Stop()
	if err != nil {
		return describeFailure(err)
	}

	if asJSON {
		return utils.RenderJSON(os.Stdout, result, "")
	}

	if err := utils.RenderReport(os.Stdout, result.Report, theme); err != nil {
		return err
	}
	fmt.Println(utils.CoverageBox(result.Manifest, result.EstimatedTokens))
	if result.Cached {
		fmt.Println(lipgloss.Gray.Render("Reply served from cache"))
	} else {
		rootDependencies.TokenManagement.DisplayTokens(rootDependencies.Config.AIProviderConfig.Provider, rootDependencies.Config.AIProviderConfig.Model)
	}
	return nil
}

// reference turns a CLI target into a repository reference. Existing
// directories are audited in place.
func (deps *RootDependencies) reference(target, revision, token string) (source_acquirer.RepositoryReference, source_acquirer.Credential) {
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return source_acquirer.RepositoryReference{LocalPath: target, Revision: revision}, source_acquirer.Credential{}
	}
	return source_acquirer.RepositoryReference{URL: target, Revision: revision}, deps.defaultCredential(target, token)
}

// describeFailure prefixes pipeline errors with a hint for the failing stage.
func describeFailure(err error) error {
	if errors.Is(err, context.Canceled) {
		return errors.New("audit cancelled")
	}

	var reportErr *report.ReportError
	if errors.As(err, &reportErr) {
		return fmt.Errorf("the model reply could not be used (%s): %w", reportErr.KindName(), err)
	}

	var stageErr *pipeline.StageError
	if errors.As(err, &stageErr) {
		switch {
		case errors.Is(err, source_acquirer.ErrAuth):
			return fmt.Errorf("access denied, check the token: %w", err)
		case errors.Is(err, source_acquirer.ErrNotFound):
			return fmt.Errorf("repository or revision not found: %w", err)
		case errors.Is(err, source_acquirer.ErrInvalidReference):
			return fmt.Errorf("not a repository URL: %w", err)
		}
	}
	return err
}
