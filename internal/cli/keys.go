package cli

import (
	"fmt"
	"strings"

	"brandwatch/internal/pkg/llm"
	"brandwatch/internal/pkg/vault"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
)

// newKeysCmd creates the keys command group
func newKeysCmd() *cobra.Command {
	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage provider API keys",
		Long: `Provider keys are encrypted under a per-session key before they touch
disk. The session key lives in session-lifetime storage; clearing it
makes every stored key unreadable until re-entered.`,
	}

	keysCmd.AddCommand(newKeysSetCmd())
	keysCmd.AddCommand(newKeysListCmd())
	keysCmd.AddCommand(newKeysRemoveCmd())
	keysCmd.AddCommand(newKeysClearCmd())

	return keysCmd
}

func newKeysSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <provider>",
		Short: "Store an API key for a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := strings.ToLower(args[0])
			if !llm.Supported(provider) {
				return fmt.Errorf("unknown provider %q (supported: %s)", provider, strings.Join(llm.Providers(), ", "))
			}

			var plaintext string
			prompt := &survey.Password{
				Message: fmt.Sprintf("API key for %s:", provider),
			}
			if err := survey.AskOne(prompt, &plaintext, survey.WithValidator(survey.Required)); err != nil {
				return err
			}

			store, err := vault.DefaultStore()
			if err != nil {
				return err
			}
			if err := store.SetKey(provider, plaintext); err != nil {
				return err
			}

			fmt.Println(successStyle.Render(fmt.Sprintf("Stored encrypted key for %s", provider)))
			return nil
		},
	}
}

func newKeysListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List providers with stored keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := vault.DefaultStore()
			if err != nil {
				return err
			}

			creds, err := store.List()
			if err != nil {
				return err
			}
			if len(creds) == 0 {
				fmt.Println("No keys stored. Run: brandctl keys set <provider>")
				return nil
			}

			for _, cred := range creds {
				fmt.Printf("%-12s stored %s\n", cred.Provider, cred.CreatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func newKeysRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <provider>",
		Short: "Remove a provider's stored key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := vault.DefaultStore()
			if err != nil {
				return err
			}
			if err := store.Remove(strings.ToLower(args[0])); err != nil {
				return err
			}

			fmt.Printf("Removed key for %s\n", strings.ToLower(args[0]))
			return nil
		},
	}
}

func newKeysClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Wipe the session key and every stored credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			var confirmed bool
			prompt := &survey.Confirm{
				Message: "Remove all stored keys and the session key?",
				Default: false,
			}
			if err := survey.AskOne(prompt, &confirmed); err != nil {
				return err
			}
			if !confirmed {
				fmt.Println("Aborted.")
				return nil
			}

			store, err := vault.DefaultStore()
			if err != nil {
				return err
			}
			if err := store.ClearAll(); err != nil {
				return err
			}

			fmt.Println(successStyle.Render("Vault cleared"))
			return nil
		},
	}
}
