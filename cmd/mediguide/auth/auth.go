// Package authcmder provides the auth command for storing API credentials.
package authcmder

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mediguideco/mediguide/pkg/cliui"
	"github.com/mediguideco/mediguide/pkg/config"
	"github.com/mediguideco/mediguide/pkg/dotdir"
)

const authLongDesc string = `Store API credentials for model providers.

Credentials are written to config.toml in the .mediguide/ directory with
0600 permissions. Keys are read from a hidden terminal prompt, or from
stdin when piped, and are never echoed back.

Supported credentials:
  llm            Primary generative model key (llm.api_key)
  llm-fallback   Fallback generative model key (llm.fallback_api_key)
  embedding      Embedding provider key (embedding.api_key)

Examples:
  mediguide auth llm                 Prompt for the primary model key
  mediguide auth llm-fallback        Prompt for the fallback model key
  echo $KEY | mediguide auth llm     Pipe the key from stdin`

const authShortDesc string = "Store API credentials for model providers"

// credentialKeys maps the user-facing credential name to its config key.
var credentialKeys = map[string]string{
	"llm":          "llm.api_key",
	"llm-fallback": "llm.fallback_api_key",
	"embedding":    "embedding.api_key",
}

func supportedCredentials() []string {
	names := make([]string, 0, len(credentialKeys))
	for name := range credentialKeys {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth <credential>",
		Short: authShortDesc,
		Long:  authLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runAuth(args[0], configDir)
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return supportedCredentials(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	return cmd
}

func runAuth(name, configDir string) error {
	name = strings.ToLower(strings.TrimSpace(name))

	configKey, ok := credentialKeys[name]
	if !ok {
		return fmt.Errorf("unsupported credential: %q\n\nSupported credentials: %s",
			name, strings.Join(supportedCredentials(), ", "))
	}

	apiKey, err := readAPIKey(name)
	if err != nil {
		return err
	}

	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return errors.New("API key cannot be empty")
	}

	// Credentials must land somewhere; create ~/.mediguide when no dot
	// directory exists yet.
	target, err := dotdir.NewManager().EnsureTarget(configDir)
	if err != nil {
		return fmt.Errorf("resolving config dir: %w", err)
	}

	cfger, err := config.NewConfiger(target)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfger.SetConfigValue(configKey, apiKey); err != nil {
		return err
	}

	fmt.Printf("\n  %s Stored %s credential %s\n\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(name),
		cliui.DimStyle.Render("("+configKey+")"),
	)

	return nil
}

// readAPIKey reads an API key from stdin. If stdin is a pipe, it reads the
// first line. Otherwise, it prompts interactively with hidden input.
func readAPIKey(name string) (string, error) {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return "", fmt.Errorf("checking stdin: %w", err)
	}

	// Piped input
	if (fi.Mode() & os.ModeCharDevice) == 0 {
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			return scanner.Text(), nil
		}
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return "", errors.New("no input received on stdin")
	}

	// Interactive terminal
	fmt.Printf("Enter API key for %s: ", name)

	keyBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println() // newline after hidden input
	if err != nil {
		return "", fmt.Errorf("reading API key: %w", err)
	}

	return string(keyBytes), nil
}
