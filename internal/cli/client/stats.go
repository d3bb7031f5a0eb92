package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// StatsResponse represents the system stats API response.
type StatsResponse struct {
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	ServiceState  string `json:"service_state"`
	Knowledge     struct {
		State           string  `json:"state"`
		DocumentsLoaded int     `json:"documents_loaded"`
		ChunksCreated   int     `json:"chunks_created"`
		RetrievalCalls  int     `json:"retrieval_calls"`
		InitSeconds     float64 `json:"initialization_seconds"`
		Index           struct {
			RecordCount    int            `json:"record_count"`
			Collection     string         `json:"collection"`
			DocumentTypes  map[string]int `json:"document_types"`
			EmbeddingModel string         `json:"embedding_model"`
		} `json:"index"`
	} `json:"knowledge"`
}

// StatsCmd creates the stats command.
func StatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show service statistics",
		Long:  "Reports server uptime and knowledge base statistics.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runStats(cmd, outputJSON)
		},
	}
}

func runStats(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/api/system/stats")
	if err != nil {
		return fmt.Errorf("stats request failed: %w", err)
	}

	var stats StatsResponse
	if err := json.Unmarshal(resp.Data, &stats); err != nil {
		return fmt.Errorf("failed to parse stats: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Version: %s\n", stats.Version)
	fmt.Printf("Uptime: %ds\n", stats.UptimeSeconds)
	fmt.Printf("State: %s\n", stats.ServiceState)
	fmt.Printf("Documents: %d\n", stats.Knowledge.DocumentsLoaded)
	fmt.Printf("Chunks: %d\n", stats.Knowledge.ChunksCreated)
	fmt.Printf("Searches: %d\n", stats.Knowledge.RetrievalCalls)
	fmt.Printf("Collection: %s (%d records, model %s)\n",
		stats.Knowledge.Index.Collection,
		stats.Knowledge.Index.RecordCount,
		stats.Knowledge.Index.EmbeddingModel)
	for docType, count := range stats.Knowledge.Index.DocumentTypes {
		fmt.Printf("  %s: %d\n", docType, count)
	}

	return nil
}
