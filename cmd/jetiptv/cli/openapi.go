package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JET-SOUZA/jet.iptv/internal/openapi"
)

func newOpenAPICmd() *cobra.Command {
	var (
		outputFile string
		baseURL    string
	)

	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Generate the OpenAPI description of the HTTP routes",
		Long: `Generate the OpenAPI 3.1 document served at /openapi.json without starting
the server. Each operation records its access requirement under x-access.`,
		Example: `  jetiptv openapi                        # print to stdout
  jetiptv openapi -o openapi.json         # write to file
  jetiptv openapi --server https://tv.example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc := openapi.Generate(versionString(), baseURL, openapi.Routes())
			b, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal openapi: %w", err)
			}
			b = append(b, '\n')

			if outputFile == "" {
				_, err = cmd.OutOrStdout().Write(b)
				return err
			}
			if err := os.WriteFile(outputFile, b, 0644); err != nil {
				return fmt.Errorf("write %s: %w", outputFile, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the document to a file instead of stdout")
	cmd.Flags().StringVar(&baseURL, "server", "", "Public base URL recorded in the servers list")

	return cmd
}
