package cmd

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/meysamhadeli/repoaudit/cache"
	"github.com/meysamhadeli/repoaudit/constants/lipgloss"
	"github.com/meysamhadeli/repoaudit/utils"
)

// resetCacheCmd represents the reset-cache command
var resetCacheCmd = &cobra.Command{
	Use:   "reset-cache",
	Short: "Reset the reply cache",
	Long: `The 'reset-cache' command removes every cached model reply from the cache directory
('.cache' in the working directory unless cache.dir is set).
Use --expired to only drop entries older than cache.max_age.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		stats, _ := cmd.Flags().GetBool("stats")
		expired, _ := cmd.Flags().GetBool("expired")

		rootDependencies, err := handleRootCommand(cmd)
		if err != nil {
			return err
		}
		return handleResetCacheCommand(rootDependencies, force, stats, expired)
	},
}

func init() {
	resetCacheCmd.Flags().BoolP("force", "f", false, "Force cache reset without confirmation")
	resetCacheCmd.Flags().BoolP("stats", "s", false, "Show cache statistics instead of resetting")
	resetCacheCmd.Flags().Bool("expired", false, "Only remove entries older than cache.max_age")

	rootCmd.AddCommand(resetCacheCmd)
}

func handleResetCacheCommand(rootDependencies *RootDependencies, force bool, showStats bool, expiredOnly bool) error {
	replyCache := rootDependencies.Cache
	if replyCache == nil {
		// The cache may be disabled for audits but still hold old entries.
		var err error
		replyCache, err = cache.NewReplyCache(rootDependencies.Config.Cache.Dir, rootDependencies.Config.Cache.MaxAge)
		if err != nil {
			return err
		}
	}

	if showStats {
		stats, err := replyCache.Stats()
		if err != nil {
			return fmt.Errorf("could not read cache statistics: %w", err)
		}
		fmt.Println(lipgloss.Info.Render("Cache Statistics:"))
		fmt.Printf("  Cache Directory: %s\n", stats.Dir)
		fmt.Printf("  Cached Replies: %d\n", stats.Entries)
		fmt.Printf("  Total Size: %.2f MB\n", float64(stats.TotalSizeBytes)/(1024*1024))
		return nil
	}

	if !force && !utils.Confirm(bufio.NewReader(os.Stdin), os.Stdout, "Are you sure you want to reset the reply cache?") {
		fmt.Println(lipgloss.Yellow.Render("Cache reset cancelled."))
		return nil
	}

	spinner := pterm.DefaultSpinner.WithStyle(pterm.NewStyle(pterm.FgCyan)).
		WithSequence("⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏").
		WithDelay(100 * time.Millisecond).WithRemoveWhenDone(true)
	spinnerInstance, _ := spinner.Start("Resetting reply cache...")

	if expiredOnly {
		removed, err := replyCache.CleanExpired(rootDependencies.Config.Cache.MaxAge)
		spinnerInstance.Stop()
		if err != nil {
			return fmt.Errorf("error cleaning cache: %w", err)
		}
		fmt.Println(lipgloss.Green.Render(fmt.Sprintf("✓ Removed %d expired replies", removed)))
		return nil
	}

	err := replyCache.Clear()
	spinnerInstance.Stop()
	if err != nil {
		return fmt.Errorf("error resetting cache: %w", err)
	}
	fmt.Println(lipgloss.Green.Render("✓ Reply cache has been successfully reset!"))
	return nil
}
