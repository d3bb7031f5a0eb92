package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// ReindexResponse represents the reindex API response.
type ReindexResponse struct {
	Status        string   `json:"status"`
	DocumentTypes []string `json:"document_types"`
}

// ReindexCmd creates the reindex command.
func ReindexCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the knowledge base index",
		Long:  "Asks the server to reload the corpus and rebuild the vector index.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runReindex(cmd, force, outputJSON)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Drop the persisted index before rebuilding")

	return cmd
}

func runReindex(cmd *cobra.Command, force, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/api/rag/reindex", map[string]bool{"force": force})
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	var reindexResp ReindexResponse
	if err := json.Unmarshal(resp.Data, &reindexResp); err != nil {
		return fmt.Errorf("failed to parse reindex response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(reindexResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Reindex %s\n", reindexResp.Status)
	if len(reindexResp.DocumentTypes) > 0 {
		fmt.Printf("Document types: %s\n", strings.Join(reindexResp.DocumentTypes, ", "))
	}

	return nil
}
