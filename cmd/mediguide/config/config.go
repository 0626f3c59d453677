// Package configcmder provides the config command for managing persistent
// mediguide configuration stored in the .mediguide/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent mediguide configuration.

Configuration is stored as config.toml in the .mediguide/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  storage.provider, storage.sqlite_path, storage.postgres_dsn,
  api.listen, client.api_target, client.top_k,
  corpus.data_dir, chunking.size, chunking.overlap,
  vector_store.provider, vector_store.path, vector_store.target, vector_store.collection,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  llm.base_url, llm.model, llm.temperature, llm.max_tokens,
  llm.api_key, llm.fallback_api_key,
  events.provider, events.brokers, events.topic,
  auth.jwt_secret, auth.token_ttl_minutes

Use subcommands to get, set, or list configuration values:
  mediguide config set <key> <value>    Set a configuration value
  mediguide config get <key>            Get a configuration value
  mediguide config list                 List all configuration values

Examples:
  mediguide config set corpus.data_dir ./data
  mediguide config set embedding.model nomic-embed-text
  mediguide config get llm.model
  mediguide config list`

const configShortDesc string = "Manage persistent mediguide configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
