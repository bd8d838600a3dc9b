package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"brandwatch/internal/pkg/mentions"

	"github.com/spf13/cobra"
)

// newAnalyzeCmd creates the analyze command
func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Run mention extraction on a local text file",
		Long: `Analyze counts brand and competitor mentions in a local file using the
same engine the server runs on stored responses. Works offline; results
go to stdout as JSON.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			brand, _ := cmd.Flags().GetString("brand")
			competitors, _ := cmd.Flags().GetStringSlice("competitors")

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			analysis := mentions.Analyze(string(raw), brand, competitors)

			out, err := json.MarshalIndent(analysis, "", "  ")
			if err != nil {
				return err
			}

			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().String("brand", "", "brand name to count")
	cmd.Flags().StringSlice("competitors", nil, "competitor names to count")
	cmd.MarkFlagRequired("brand")

	return cmd
}
