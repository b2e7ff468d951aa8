// Package cmd defines the alexandria command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "alexandria",
	Short: "Alexandria - document knowledge base with semantic retrieval",
	Long: `Alexandria ingests documents into PostgreSQL with pgvector embeddings
and serves semantic search and question answering over them.

Run "alexandria serve" to start the HTTP API server.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
