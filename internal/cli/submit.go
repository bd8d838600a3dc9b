package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"brandwatch/internal/pkg/llm"
	"brandwatch/internal/pkg/vault"
	"brandwatch/pkg/client"

	"github.com/spf13/cobra"
)

const pollInterval = 2 * time.Second

// newSubmitCmd creates the submit command
func newSubmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a bulk test run",
		Long: `Submit fans the named prompts across the requested provider/model pairs.
Keys for the named providers are decrypted from the local vault and sent
only inside this submission; they are never persisted server-side.
Example: brandctl submit --user u-1 --prompts p-1,p-2 --providers openai:gpt-4o,anthropic:claude-sonnet-4-20250514 --iterations 3 --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			promptIDs, _ := cmd.Flags().GetStringSlice("prompts")
			pairs, _ := cmd.Flags().GetStringSlice("providers")
			iterations, _ := cmd.Flags().GetInt("iterations")
			watch, _ := cmd.Flags().GetBool("watch")

			configurations, err := parseConfigurations(pairs)
			if err != nil {
				return err
			}

			store, err := vault.DefaultStore()
			if err != nil {
				return err
			}
			apiKeys, err := loadKeys(store, configurations)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			sdk := apiClient(cmd)

			run, err := sdk.SubmitBulkTest(ctx, client.BulkTestRequest{
				UserID:         userID,
				PromptIDs:      promptIDs,
				Configurations: configurations,
				APIKeys:        apiKeys,
				Iterations:     iterations,
			})
			if err != nil {
				return err
			}

			fmt.Println(renderRun(run))

			if watch {
				return watchRun(ctx, sdk, run.RunID)
			}

			fmt.Printf("Poll with: brandctl watch %s\n", run.RunID)
			return nil
		},
	}

	cmd.Flags().String("user", "", "user id")
	cmd.Flags().StringSlice("prompts", nil, "prompt ids")
	cmd.Flags().StringSlice("providers", nil, "provider:model pairs, e.g. openai:gpt-4o")
	cmd.Flags().Int("iterations", 1, "iterations per prompt and configuration")
	cmd.Flags().Bool("watch", false, "poll until the run finishes")
	cmd.MarkFlagRequired("user")
	cmd.MarkFlagRequired("prompts")
	cmd.MarkFlagRequired("providers")

	return cmd
}

// newWatchCmd creates the watch command
func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <run-id>",
		Short: "Poll a bulk run until it finishes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return watchRun(cmd.Context(), apiClient(cmd), args[0])
		},
	}
}

// parseConfigurations turns provider:model pairs into configurations.
func parseConfigurations(pairs []string) ([]client.Configuration, error) {
	if len(pairs) == 0 {
		return nil, errors.New("at least one provider:model pair is required")
	}

	configurations := make([]client.Configuration, 0, len(pairs))
	for _, pair := range pairs {
		provider, model, ok := strings.Cut(pair, ":")
		if !ok || provider == "" || model == "" {
			return nil, fmt.Errorf("invalid provider:model pair %q", pair)
		}

		provider = strings.ToLower(provider)
		if !llm.Supported(provider) {
			return nil, fmt.Errorf("unknown provider %q (supported: %s)", provider, strings.Join(llm.Providers(), ", "))
		}

		configurations = append(configurations, client.Configuration{Provider: provider, Model: model})
	}

	return configurations, nil
}

// loadKeys decrypts one vault key per distinct provider. The plaintext
// map lives only for the duration of the submission call.
func loadKeys(store *vault.Store, configurations []client.Configuration) (map[string]string, error) {
	apiKeys := map[string]string{}
	for _, configuration := range configurations {
		if _, ok := apiKeys[configuration.Provider]; ok {
			continue
		}

		plaintext, err := store.GetKey(configuration.Provider)
		if err != nil {
			if errors.Is(err, vault.ErrNoCredential) {
				return nil, fmt.Errorf("no key stored for %s: run brandctl keys set %s", configuration.Provider, configuration.Provider)
			}
			return nil, err
		}

		apiKeys[configuration.Provider] = plaintext
	}

	return apiKeys, nil
}

// watchRun polls the run until its status turns terminal.
func watchRun(ctx context.Context, sdk *client.Client, runID string) error {
	for {
		run, err := sdk.RunStatus(ctx, runID)
		if err != nil {
			return err
		}

		fmt.Println(renderProgress(run))

		if run.Terminal() {
			fmt.Println(renderRun(run))
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}
