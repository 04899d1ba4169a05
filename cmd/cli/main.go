package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/wadjakorntonsri/loopylink/pkg/adapters/repository/sqlstore"
	"github.com/wadjakorntonsri/loopylink/pkg/config"
	"github.com/wadjakorntonsri/loopylink/pkg/logger"
)

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	exportFile := exportCmd.String("file", "", "write to file instead of stdout")
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importFile := importCmd.String("file", "", "JSON file to import")

	if len(os.Args) < 2 {
		fmt.Println("expected 'export' or 'import' subcommands")
		os.Exit(1)
	}

	cfg := config.Load()
	logger.Initialize(cfg)
	repo, err := sqlstore.NewSQLRepository(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to db")
	}
	defer repo.Close()

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		out := io.Writer(os.Stdout)
		if *exportFile != "" {
			f, err := os.Create(*exportFile)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to create file")
			}
			defer f.Close()
			out = f
		}
		if err := doExport(context.Background(), repo, out); err != nil {
			log.Fatal().Err(err).Msg("Export failed")
		}
	case "import":
		importCmd.Parse(os.Args[2:])
		if *importFile == "" {
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		f, err := os.Open(*importFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open file")
		}
		defer f.Close()
		if err := doImport(context.Background(), repo, f); err != nil {
			log.Fatal().Err(err).Msg("Import failed")
		}
	default:
		fmt.Println("expected 'export' or 'import' subcommands")
		os.Exit(1)
	}
}

func doExport(ctx context.Context, repo *sqlstore.SQLRepository, w io.Writer) error {
	snap, err := repo.Dump(ctx)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(snap); err != nil {
		return err
	}
	log.Info().Int("domains", len(snap.Domains)).Int("links", len(snap.Links)).Msg("Exported")
	return nil
}

// doImport inserts the domains and links whose ids are not present yet.
func doImport(ctx context.Context, repo *sqlstore.SQLRepository, r io.Reader) error {
	var snap sqlstore.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}

	domains, links, err := repo.Restore(ctx, &snap)
	if err != nil {
		return err
	}
	log.Info().Int("domains", domains).Int("links", links).Msg("Imported")
	return nil
}
