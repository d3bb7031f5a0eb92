package client

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// HealthResponse represents the knowledge health API response.
type HealthResponse struct {
	Status       string          `json:"status"`
	Timestamp    string          `json:"timestamp"`
	Components   map[string]bool `json:"components"`
	TestSearchOK bool            `json:"test_search_successful"`
	Error        string          `json:"error,omitempty"`
}

// HealthCmd creates the health command.
func HealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check knowledge base health",
		Long:  "Reports component-level health of the retrieval subsystem.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runHealth(cmd, outputJSON)
		},
	}
}

func runHealth(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	body, status, err := api.GetRaw("/api/rag/health")
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	var health HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		return fmt.Errorf("failed to parse health response (HTTP %d): %w", status, err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(health, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Status: %s\n", health.Status)
	if health.Error != "" {
		fmt.Printf("Error: %s\n", health.Error)
	}

	names := make([]string, 0, len(health.Components))
	for name := range health.Components {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		mark := "ok"
		if !health.Components[name] {
			mark = "FAIL"
		}
		fmt.Printf("  %-20s %s\n", name, mark)
	}
	fmt.Printf("  %-20s %v\n", "test_search", health.TestSearchOK)

	return nil
}
