package main

import (
	"encoding/json"

	"github.com/go-go-golems/sevasetu/pkg/retrieval"
	"github.com/go-go-golems/sevasetu/pkg/schemes"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type toolListing struct {
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description"`
	Parameters  map[string]interface{} `yaml:"parameters"`
}

func newToolsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the tools offered to the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// the listing never searches, an empty store is enough
			registry, err := schemes.NewRegistry(retrieval.Empty{})
			if err != nil {
				return err
			}
			var listing []toolListing
			for _, def := range registry.Definitions() {
				schema, err := def.SchemaJSON()
				if err != nil {
					return err
				}
				params := map[string]interface{}{}
				if err := json.Unmarshal([]byte(schema), &params); err != nil {
					return errors.Wrapf(err, "decode schema of %s", def.Name)
				}
				listing = append(listing, toolListing{
					Name:        def.Name,
					Description: def.Description,
					Parameters:  params,
				})
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(listing)
		},
	}
}
