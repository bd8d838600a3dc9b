// Package cli implements the brandctl command tree. Commands talk to a
// brandwatch server through pkg/client; provider keys come from the local
// encrypted vault and are decrypted only for the submission call.
package cli

import (
	"os"

	"brandwatch/pkg/client"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "brandctl",
		Short: "Brand visibility testing across LLM providers",
		Long: `brandctl submits prompt test runs to a brandwatch server, watches their
progress and renders mention analytics. Provider API keys are stored
encrypted on this machine and sent only inside a submission.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("api", defaultAPIURL(), "brandwatch server base URL")

	rootCmd.AddCommand(newKeysCmd())
	rootCmd.AddCommand(newSubmitCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newDashboardCmd())
	rootCmd.AddCommand(newAnalyzeCmd())

	return rootCmd
}

func defaultAPIURL() string {
	if url := os.Getenv("BRANDWATCH_API"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

func apiClient(cmd *cobra.Command) *client.Client {
	baseURL, _ := cmd.Flags().GetString("api")
	return client.New(baseURL)
}
