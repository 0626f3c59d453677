// Package mediguidecmder
package mediguidecmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/mediguideco/mediguide/cmd/mediguide/ask"
	authcmder "github.com/mediguideco/mediguide/cmd/mediguide/auth"
	chatcmder "github.com/mediguideco/mediguide/cmd/mediguide/chat"
	configcmder "github.com/mediguideco/mediguide/cmd/mediguide/config"
	indexcmder "github.com/mediguideco/mediguide/cmd/mediguide/index"
	servecmder "github.com/mediguideco/mediguide/cmd/mediguide/serve"
	versioncmder "github.com/mediguideco/mediguide/cmd/version"
)

const mediguideLongDesc string = `MediGuide answers medical questions grounded in your own document corpus.

Build the index, then serve or ask:
  mediguide index      Chunk and embed the corpus into the vector index
  mediguide serve      Run the API and MCP servers
  mediguide ask        Ask a one-shot question
  mediguide chat       Start an interactive chat session`

const mediguideShortDesc string = "MediGuide - grounded medical Q&A"

func NewMediguideCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mediguide",
		Short: mediguideShortDesc,
		Long:  mediguideLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .mediguide/ config directory")

	// Add subcommands
	cmd.AddCommand(indexcmder.NewIndexCmd())
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
