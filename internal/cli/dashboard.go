package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newDashboardCmd creates the dashboard command
func newDashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show a user's mention analytics summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")

			dashboard, err := apiClient(cmd).Dashboard(cmd.Context(), userID)
			if err != nil {
				return err
			}

			fmt.Println(renderDashboard(dashboard))
			return nil
		},
	}

	cmd.Flags().String("user", "", "user id")
	cmd.MarkFlagRequired("user")

	return cmd
}
