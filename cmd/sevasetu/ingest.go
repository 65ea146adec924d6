package main

import (
	"fmt"

	"github.com/go-go-golems/sevasetu/pkg/config"
	"github.com/go-go-golems/sevasetu/pkg/retrieval/weaviate"
	"github.com/go-go-golems/sevasetu/pkg/schemes"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newIngestCommand() *cobra.Command {
	var (
		file      string
		batchSize int
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Embed a scheme catalogue and write it into the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			if s.Retrieval.Backend != config.BackendWeaviate {
				return errors.Errorf("ingest writes to weaviate, the %s backend is seeded at startup from retrieval.seed-file", s.Retrieval.Backend)
			}
			list, err := schemes.LoadSchemes(file)
			if err != nil {
				return err
			}

			store, closeIndex, err := newIndex(cmd.Context(), s)
			if err != nil {
				return err
			}
			defer func() {
				_ = closeIndex()
			}()
			if ws, ok := store.(*weaviate.Store); ok {
				if err := ws.EnsureClass(cmd.Context()); err != nil {
					return err
				}
			}

			n, err := schemes.Ingest(cmd.Context(), store, list, batchSize)
			if err != nil {
				return err
			}
			log.Info().Int("schemes", n).Str("file", file).Str("class", s.Retrieval.Class).Msg("ingested schemes")
			fmt.Fprintf(cmd.OutOrStdout(), "ingested %d schemes into %s\n", n, s.Retrieval.Class)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "data/schemes.json", "Scheme catalogue, a JSON array")
	cmd.Flags().IntVar(&batchSize, "batch-size", schemes.DefaultBatchSize, "Schemes embedded per request")
	return cmd
}
