package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// AnalyzeRequest represents the incident analysis API request.
type AnalyzeRequest struct {
	Description  string `json:"description"`
	AnalysisType string `json:"analysis_type,omitempty"`
}

// AnalyzeResponse represents the incident analysis API response.
type AnalyzeResponse struct {
	ID           string `json:"id"`
	AnalysisType string `json:"analysis_type"`
	Verdict      struct {
		RiskLevel       string   `json:"risk_level"`
		Vulnerabilities []string `json:"vulnerabilities"`
		Impacts         []string `json:"impacts"`
		Controls        []string `json:"controls"`
		Recommendations []string `json:"recommendations,omitempty"`
	} `json:"verdict"`
	ContextUsed bool `json:"context_used"`
	Degraded    bool `json:"degraded"`
}

// AnalyzeCmd creates the analyze command.
func AnalyzeCmd() *cobra.Command {
	var analysisType string

	cmd := &cobra.Command{
		Use:   "analyze <description>",
		Short: "Analyze a security incident",
		Long:  "Submits an incident description for AI-assisted risk analysis.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAnalyze(cmd, args[0], analysisType, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&analysisType, "type", "t", "", "Analysis type (quick, standard, expert)")

	return cmd
}

func runAnalyze(cmd *cobra.Command, description, analysisType string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/api/analyze", AnalyzeRequest{
		Description:  description,
		AnalysisType: analysisType,
	})
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	var analysis AnalyzeResponse
	if err := json.Unmarshal(resp.Data, &analysis); err != nil {
		return fmt.Errorf("failed to parse analysis: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(analysis, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Analysis %s (%s)\n", analysis.ID, analysis.AnalysisType)
	fmt.Printf("Risk level: %s\n", analysis.Verdict.RiskLevel)
	if analysis.Degraded {
		fmt.Println("Note: knowledge context was unavailable for this analysis.")
	}

	printSection("Vulnerabilities", analysis.Verdict.Vulnerabilities)
	printSection("Impacts", analysis.Verdict.Impacts)
	printSection("Controls", analysis.Verdict.Controls)
	printSection("Recommendations", analysis.Verdict.Recommendations)

	return nil
}

func printSection(title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Printf("\n%s:\n", title)
	for _, item := range items {
		fmt.Printf("  - %s\n", strings.TrimSpace(item))
	}
}
