package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// SearchRequest represents the knowledge search API request.
type SearchRequest struct {
	Query         string   `json:"query"`
	MaxResults    int      `json:"max_results,omitempty"`
	DocumentTypes []string `json:"document_types,omitempty"`
	Methodology   string   `json:"methodology,omitempty"`
}

// SearchResult represents a single retrieval hit.
type SearchResult struct {
	Content  string `json:"content"`
	Metadata struct {
		Filename     string   `json:"filename"`
		DocumentType string   `json:"document_type"`
		ChunkType    string   `json:"chunk_type"`
		Keywords     []string `json:"keywords"`
	} `json:"metadata"`
	RelevanceRank   int      `json:"relevance_rank"`
	Score           float64  `json:"score"`
	MatchedKeywords []string `json:"matched_keywords,omitempty"`
}

// SearchResponse represents the knowledge search API response.
type SearchResponse struct {
	Results  []SearchResult `json:"results"`
	Count    int            `json:"count"`
	Degraded bool           `json:"degraded"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var (
		documentTypes []string
		methodology   string
		maxResults    int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the security knowledge base",
		Long:  "Searches indexed security documents using semantic retrieval.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSearch(cmd, args[0], documentTypes, methodology, maxResults, outputJSON)
		},
	}

	cmd.Flags().StringSliceVarP(&documentTypes, "type", "t", nil, "Filter by document type (repeatable)")
	cmd.Flags().StringVarP(&methodology, "methodology", "m", "", "Scope search to a framework (MAGERIT, OCTAVE, ISO27001, NIST)")
	cmd.Flags().IntVarP(&maxResults, "limit", "n", 5, "Maximum number of results")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, documentTypes []string, methodology string, maxResults int, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	req := SearchRequest{
		Query:         query,
		MaxResults:    maxResults,
		DocumentTypes: documentTypes,
		Methodology:   methodology,
	}

	resp, err := api.Post("/api/rag/search", req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	var searchResp SearchResponse
	if err := json.Unmarshal(resp.Data, &searchResp); err != nil {
		return fmt.Errorf("failed to parse search results: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(searchResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if searchResp.Degraded {
		fmt.Println("Warning: knowledge base degraded, results may be incomplete.")
	}
	if len(searchResp.Results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(searchResp.Results))
	for i, result := range searchResp.Results {
		fmt.Printf("%d. %s [%s] (%.2f)\n", result.RelevanceRank, result.Metadata.Filename, result.Metadata.DocumentType, result.Score)
		content := result.Content
		if len(content) > 200 {
			content = content[:197] + "..."
		}
		fmt.Printf("   %s\n", content)
		if len(result.Metadata.Keywords) > 0 {
			fmt.Printf("   Keywords: %s\n", strings.Join(result.Metadata.Keywords, ", "))
		}
		if i < len(searchResp.Results)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	return nil
}
