package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
)

var (
	createFolder string
	createType   string
	createFile   string
	createMime   string
	createProps  []string
)

var createCmd = &cobra.Command{
	Use:   "create [endpoint-id] [name]",
	Short: "Create a folder or document in a repository",
	Long: `Creates a folder or document under --folder (default "/").

With --file the new object is a document whose content is the file;
without it a folder is created unless --type cmis:document is given.
Extra properties are passed as --prop cmis:description=...; keys outside
the cmis: namespace are ignored.`,
	Args: cobra.ExactArgs(2),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVar(&createFolder, "folder", domain.DefaultFolderPath, "parent folder path")
	createCmd.Flags().StringVar(&createType, "type", "", "object type (cmis:folder or cmis:document)")
	createCmd.Flags().StringVarP(&createFile, "file", "f", "", "content file for a document")
	createCmd.Flags().StringVar(&createMime, "mime", "", "content mime type (default application/octet-stream)")
	createCmd.Flags().StringArrayVar(&createProps, "prop", nil, "property as key=value (repeatable)")
	rootCmd.AddCommand(createCmd)
}

func runCreate(cmd *cobra.Command, args []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	props, err := parseProps(createProps)
	if err != nil {
		return err
	}
	props[domain.PropName] = args[1]

	req := domain.CreateRequest{
		Properties: props,
		FolderPath: createFolder,
		ObjectType: createType,
		MimeType:   createMime,
	}

	if createFile != "" {
		f, err := os.Open(createFile)
		if err != nil {
			return fmt.Errorf("open content file: %w", err)
		}
		defer f.Close()
		req.Content = f
		if _, ok := props[domain.PropContentStreamFileName]; !ok {
			props[domain.PropContentStreamFileName] = filepath.Base(createFile)
		}
	}

	id, err := svc.Sessions.Create(ctx, args[0], req)
	if err != nil {
		return fmt.Errorf("create failed: %w", err)
	}

	cmd.Println(successStyle.Render("Created "+args[1]) + "  " + mutedStyle.Render(id))
	return nil
}

// parseProps parses key=value pairs.
func parseProps(pairs []string) (domain.Properties, error) {
	props := make(domain.Properties, len(pairs)+1)
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("%w: property %q is not key=value", domain.ErrInvalidInput, pair)
		}
		props[strings.TrimSpace(key)] = value
	}
	return props, nil
}
