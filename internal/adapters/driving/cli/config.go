package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/knowctl/internal/core/domain"
	"github.com/custodia-labs/knowctl/internal/core/ports/driven"
)

var configCmd = &cobra.Command{
	Use:         "config",
	Short:       "Manage knowctl configuration",
	Long:        `View and change the settings stored in config.toml.`,
	Annotations: map[string]string{skipServices: "true"},
	RunE:        runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change a setting",
	Long: `Change a setting. Values are parsed according to the key:

  server.base_url            backend address (http or https)
  server.path_prefix         endpoint prefix, default /knowledge
  server.timeout_seconds     per-request timeout
  auth.token                 bearer token (prefer 'config set-token')
  auth.session_cookie        session cookie value
  auth.cookie_name           session cookie name, default session
  client.max_retries         retries of failed list and view requests
  client.requests_per_second request throttle, 0 for the default
  cache.enabled              keep an offline copy of the list
  ui.excerpt_length          preview length on list cards`,
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: completeConfigKeys,
	RunE:              runConfigSet,
}

var configSetTokenCmd = &cobra.Command{
	Use:   "set-token",
	Short: "Store a credential without echoing it",
	Long: `Read a bearer token (or, with --cookie, a session cookie) from the
terminal without echoing it, and store it in config.toml.`,
	Args: cobra.NoArgs,
	RunE: runConfigSetToken,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := requireConfig()
		if err != nil {
			return err
		}
		cmd.Println(store.Path())
		return nil
	},
}

var setTokenCookie bool

func init() {
	configSetTokenCmd.Flags().BoolVar(&setTokenCookie, "cookie", false, "store a session cookie instead of a bearer token")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetTokenCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func requireConfig() (ConfigEditor, error) {
	if configStore == nil {
		return nil, errors.New("config store not configured")
	}
	return configStore, nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	store, err := requireConfig()
	if err != nil {
		return err
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	section := ""
	for _, key := range store.Keys() {
		group, name, _ := strings.Cut(key, ".")
		if group != section {
			if section != "" {
				cmd.Println()
			}
			section = group
			cmd.Printf("[%s]\n", group)
		}
		value := store.Display(key)
		if value == "" {
			value = "(not set)"
		}
		cmd.Printf("  %s: %s\n", name, value)
	}
	cmd.Println()
	cmd.Printf("File: %s\n", store.Path())
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	store, err := requireConfig()
	if err != nil {
		return err
	}

	key, raw := args[0], args[1]
	if key == driven.ConfigServerBaseURL {
		if raw = strings.TrimRight(strings.TrimSpace(raw), "/"); !isHTTPURL(raw) {
			return fmt.Errorf("%s must be an http or https address: %w", key, domain.ErrInvalidInput)
		}
	}
	if err := store.SetString(key, raw); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	cmd.Printf("Set %s = %s\n", key, store.Display(key))
	return nil
}

func isHTTPURL(raw string) bool {
	return domain.IsSafeURL(raw) && !strings.HasPrefix(strings.ToLower(raw), "blob:")
}

func runConfigSetToken(cmd *cobra.Command, _ []string) error {
	store, err := requireConfig()
	if err != nil {
		return err
	}

	key, label := driven.ConfigAuthToken, "Token"
	if setTokenCookie {
		key, label = driven.ConfigAuthSessionCookie, "Session cookie"
	}

	secret, err := readSecret(cmd, label+": ")
	if err != nil {
		return err
	}
	if secret == "" {
		return fmt.Errorf("%s is empty: %w", strings.ToLower(label), domain.ErrInvalidInput)
	}
	if err := store.Set(key, secret); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	cmd.Printf("%s saved to %s\n", label, store.Path())
	return nil
}

// readSecret reads without echo from a terminal, else one line of input.
func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		cmd.Print(prompt)
		data, err := term.ReadPassword(int(f.Fd()))
		cmd.Println()
		if err != nil {
			return "", fmt.Errorf("reading secret: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func completeConfigKeys(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 || configStore == nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return configStore.Keys(), cobra.ShellCompDirectiveNoFileComp
}
