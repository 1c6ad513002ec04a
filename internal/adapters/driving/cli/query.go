package cli

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
)

var (
	queryMax      int
	queryPageSize int
	queryContent  bool
	queryJSON     bool
)

var queryCmd = &cobra.Command{
	Use:   "query [endpoint-id] [statement]",
	Short: "Run a CMIS query against an endpoint",
	Long: `Runs a CMIS query statement against a configured endpoint and prints
the result rows in server order. Rows are not sent to the endpoint's sink.

Example:
  cmispoll query docs "SELECT * FROM cmis:document WHERE cmis:name = 'test1.txt'"`,
	Args: cobra.ExactArgs(2),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryMax, "max", "n", 0, "maximum number of rows (0 = unlimited)")
	queryCmd.Flags().IntVar(&queryPageSize, "page-size", domain.DefaultQueryPageSize, "rows requested per page")
	queryCmd.Flags().BoolVar(&queryContent, "content", false, "retrieve document content")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output rows as JSON")
	rootCmd.AddCommand(queryCmd)
}

// queryRow is the JSON form of a result row.
type queryRow struct {
	Properties domain.Properties `json:"properties"`
	Content    string            `json:"content,omitempty"`
	MimeType   string            `json:"mimeType,omitempty"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	opts := domain.QueryOptions{
		RetrieveContent: queryContent,
		MaxResults:      queryMax,
		PageSize:        queryPageSize,
	}
	result, err := svc.Sessions.Query(ctx, args[0], args[1], opts)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	rows, err := toQueryRows(result)
	if err != nil {
		return err
	}

	if queryJSON {
		return outputQueryJSON(cmd, rows)
	}
	return outputQueryTable(cmd, rows, result.Count)
}

// toQueryRows reads and closes every content stream of result.
func toQueryRows(result *domain.QueryResult) ([]queryRow, error) {
	rows := make([]queryRow, len(result.Items))
	var firstErr error
	for i := range result.Items {
		item := result.Items[i]
		rows[i].Properties = item.Properties
		if !item.HasContent() {
			continue
		}
		if firstErr == nil {
			data, err := io.ReadAll(item.Content)
			if err != nil {
				firstErr = fmt.Errorf("read content of %s: %w", item.Name(), err)
			}
			rows[i].Content = base64.StdEncoding.EncodeToString(data)
			rows[i].MimeType = item.Content.MimeType
		}
		item.Content.Close()
	}
	return rows, firstErr
}

func outputQueryJSON(cmd *cobra.Command, rows []queryRow) error {
	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal rows: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputQueryTable(cmd *cobra.Command, rows []queryRow, count int) error {
	if count == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println(titleStyle.Render(fmt.Sprintf("Results (%d):", count)))
	for i := range rows {
		props := rows[i].Properties
		name := props.String(domain.PropName)
		if name == "" {
			name = props.String(domain.PropObjectID)
		}
		cmd.Printf("  [%d] %s\n", i+1, name)
		if id := props.String(domain.PropObjectID); id != "" {
			cmd.Println("      " + mutedStyle.Render(id+"  "+props.String(domain.PropObjectTypeID)))
		}
		if rows[i].MimeType != "" {
			cmd.Println("      " + mutedStyle.Render(rows[i].MimeType))
		}
	}
	return nil
}
