package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/poi-conflation/internal/config"
	"github.com/poi-conflation/internal/conflate"
	"github.com/poi-conflation/internal/debug"
	"github.com/poi-conflation/internal/eval"
	"github.com/poi-conflation/internal/matcher"
	"github.com/poi-conflation/internal/normalize"
	"github.com/poi-conflation/internal/place"
	"github.com/poi-conflation/internal/records"
	"github.com/poi-conflation/internal/spatial"
	"github.com/poi-conflation/internal/store"
)

var (
	cfgPath   string
	debugMode bool
	cfg       *config.Config
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "conflate",
		Short: "Business place matching and conflation pipeline",
		Long:  `Links business records across Yelp, Overture Maps and Overpass catalogs and conflates their attributes into canonical places`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(cfgPath)
			if err != nil {
				return err
			}
			return cfg.Validate()
		},
	}
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable timing output")

	rootCmd.AddCommand(createNormalizeCmd())
	rootCmd.AddCommand(createMatchCmd())
	rootCmd.AddCommand(createPlacesCmd())
	rootCmd.AddCommand(createConflateCmd())
	rootCmd.AddCommand(createTrainCmd())
	rootCmd.AddCommand(createInferCmd())
	rootCmd.AddCommand(createEvalCmd())
	rootCmd.AddCommand(createExportCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// interim file locations shared by the pipeline stages.
func recordsPath(source records.Source) string {
	return filepath.Join(cfg.Data.InterimDir, fmt.Sprintf("%s_records.csv", source))
}

func matchTablePath(target records.Source) string {
	return filepath.Join(cfg.Data.InterimDir, fmt.Sprintf("yelp_%s_matched.csv", target))
}

func tripletsPath() string {
	return filepath.Join(cfg.Data.ProcessedDir, "place_triplets.csv")
}

func groundTruthPath() string {
	return filepath.Join(cfg.Data.ProcessedDir, "ground_truth.csv")
}

func outputPath(method string) string {
	return filepath.Join(cfg.Data.ProcessedDir, fmt.Sprintf("conflated_places_%s.csv", method))
}

func createNormalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "normalize",
		Short: "Read and clean the three raw source catalogs",
		Run: func(cmd *cobra.Command, args []string) {
			defer debug.Timing(debugMode, "normalize source catalogs")()
			if err := os.MkdirAll(cfg.Data.InterimDir, 0o755); err != nil {
				log.Fatalf("Failed to create interim dir: %v", err)
			}

			yelp, stats, err := normalize.ReadYelp(cfg.Data.YelpJSON)
			if err != nil {
				log.Fatalf("Failed to read yelp catalog: %v", err)
			}
			fmt.Printf("yelp: %s\n", stats)
			if err := normalize.WriteRecords(recordsPath(records.SourceYelp), yelp); err != nil {
				log.Fatalf("Failed to write yelp records: %v", err)
			}

			geoInputs := []struct {
				source records.Source
				path   string
			}{
				{records.SourceOMF, cfg.Data.OMFGeoJSON},
				{records.SourceOverpass, cfg.Data.OverpassGeoJSON},
			}
			for _, in := range geoInputs {
				source, path := in.source, in.path
				recs, stats, err := normalize.ReadGeoJSON(path, source)
				if err != nil {
					log.Fatalf("Failed to read %s catalog: %v", source, err)
				}
				fmt.Printf("%s: %s\n", source, stats)
				if err := normalize.WriteRecords(recordsPath(source), recs); err != nil {
					log.Fatalf("Failed to write %s records: %v", source, err)
				}
			}
		},
	}
}

func createMatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "match",
		Short: "Match yelp anchors against both map catalogs",
		Run: func(cmd *cobra.Command, args []string) {
			anchors, err := normalize.ReadRecords(recordsPath(records.SourceYelp))
			if err != nil {
				log.Fatalf("Failed to load yelp records: %v", err)
			}

			for _, target := range []records.Source{records.SourceOMF, records.SourceOverpass} {
				recs, err := normalize.ReadRecords(recordsPath(target))
				if err != nil {
					log.Fatalf("Failed to load %s records: %v", target, err)
				}

				m := matcher.New(target, spatial.NewQuadtreeIndex(recs))
				m.MaxDistanceMeters = cfg.Matching.MaxDistanceMeters
				m.ScoreThreshold = cfg.Matching.FuzzyScoreThreshold

				runner := matcher.NewRunner(m, cfg.Data.InterimDir, fmt.Sprintf("yelp_%s_chunk", target))
				runner.ChunkSize = cfg.Matching.ChunkSize
				runner.Workers = cfg.Matching.Workers
				runner.Debug = debugMode

				rows, err := runner.Run(context.Background(), anchors)
				if err != nil {
					log.Fatalf("Failed to match against %s: %v", target, err)
				}
				fmt.Printf("%s: %s\n", target, matcher.Summarize(rows))

				if err := matcher.WriteTable(matchTablePath(target), rows); err != nil {
					log.Fatalf("Failed to write %s match table: %v", target, err)
				}
			}
		},
	}
}

func createPlacesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "places",
		Short: "Join match tables into place triplets and derive ground truth",
		Run: func(cmd *cobra.Command, args []string) {
			omfRows, err := matcher.ReadTable(matchTablePath(records.SourceOMF), records.SourceOMF)
			if err != nil {
				log.Fatalf("Failed to read omf match table: %v", err)
			}
			overpassRows, err := matcher.ReadTable(matchTablePath(records.SourceOverpass), records.SourceOverpass)
			if err != nil {
				log.Fatalf("Failed to read overpass match table: %v", err)
			}

			triplets, err := place.BuildTriplets(omfRows, overpassRows)
			if err != nil {
				log.Fatalf("Failed to build triplets: %v", err)
			}
			fmt.Printf("Built %d place triplets\n", len(triplets))

			if err := os.MkdirAll(cfg.Data.ProcessedDir, 0o755); err != nil {
				log.Fatalf("Failed to create processed dir: %v", err)
			}
			if err := place.WriteTriplets(tripletsPath(), triplets); err != nil {
				log.Fatalf("Failed to write triplets: %v", err)
			}

			truth := place.DeriveGroundTruth(triplets)
			if err := place.WriteGroundTruth(groundTruthPath(), truth); err != nil {
				log.Fatalf("Failed to write ground truth: %v", err)
			}
			fmt.Printf("Derived ground truth for %d places\n", len(truth))
		},
	}
}

// loadConflationInputs reads the triplets plus the normalized records the
// attribute lookup needs.
func loadConflationInputs() ([]records.TripletRow, conflate.RecordLookup) {
	triplets, err := place.ReadTriplets(tripletsPath())
	if err != nil {
		log.Fatalf("Failed to read triplets: %v", err)
	}
	var sets [][]records.SourceRecord
	for _, source := range records.AllSources {
		recs, err := normalize.ReadRecords(recordsPath(source))
		if err != nil {
			log.Fatalf("Failed to load %s records: %v", source, err)
		}
		sets = append(sets, recs)
	}
	return triplets, conflate.BuildLookup(sets...)
}

func createConflateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "conflate",
		Short: "Select best attribute values per place with priority rules",
		Run: func(cmd *cobra.Command, args []string) {
			triplets, lookup := loadConflationInputs()

			rules := conflate.NewRuleConflator(cfg.SourcePriority(), cfg.Conflation.BlockedDomains)
			places := rules.Run(triplets, lookup)
			fmt.Printf("Conflated %d places (rule-based)\n", len(places))

			if err := conflate.WriteOutput(outputPath("rules"), places); err != nil {
				log.Fatalf("Failed to write conflated places: %v", err)
			}
		},
	}
}

func createTrainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Train per-attribute source-selection models",
		Run: func(cmd *cobra.Command, args []string) {
			defer debug.Timing(debugMode, "train attribute models")()
			triplets, lookup := loadConflationInputs()
			truth, err := place.ReadGroundTruth(groundTruthPath())
			if err != nil {
				log.Fatalf("Failed to read ground truth: %v", err)
			}
			if err := os.MkdirAll(cfg.Data.ModelDir, 0o755); err != nil {
				log.Fatalf("Failed to create model dir: %v", err)
			}

			trainer := conflate.NewTrainer(cfg.SourcePriority())
			trainer.Trees = cfg.Training.Trees
			trainer.HoldoutFrac = cfg.Training.HoldoutFrac
			trainer.Seed = cfg.Training.Seed

			for _, attr := range records.AllAttributes {
				model, report, err := trainer.Train(attr, triplets, lookup, truth)
				if err == conflate.ErrInsufficientClasses {
					fmt.Printf("%s: skipped, %v\n", attr, err)
					continue
				}
				if err != nil {
					log.Fatalf("Failed to train %s model: %v", attr, err)
				}
				fmt.Printf("%s: %d labeled rows, holdout accuracy %.1f%%\n",
					attr, report.LabeledRows, report.HoldoutAccuracy*100)

				if err := conflate.SaveModel(conflate.ModelPath(cfg.Data.ModelDir, attr), model); err != nil {
					log.Fatalf("Failed to save %s model: %v", attr, err)
				}
				importancesPath := filepath.Join(cfg.Data.ModelDir, fmt.Sprintf("%s_importances.csv", attr))
				if err := conflate.WriteImportances(importancesPath, report.Importances); err != nil {
					log.Fatalf("Failed to write %s importances: %v", attr, err)
				}
			}
		},
	}
}

func createInferCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "infer",
		Short: "Conflate places using the trained models",
		Run: func(cmd *cobra.Command, args []string) {
			triplets, lookup := loadConflationInputs()

			rules := conflate.NewRuleConflator(cfg.SourcePriority(), cfg.Conflation.BlockedDomains)
			inf := conflate.NewInferencer(cfg.SourcePriority(), cfg.Data.ModelDir, rules)
			if err := inf.LoadModels(); err != nil {
				log.Fatalf("Failed to load models: %v", err)
			}

			places := inf.Run(triplets, lookup)
			fmt.Printf("Conflated %d places (ML)\n", len(places))

			if err := conflate.WriteOutput(outputPath("ml"), places); err != nil {
				log.Fatalf("Failed to write conflated places: %v", err)
			}
		},
	}
}

func createEvalCmd() *cobra.Command {
	var method string
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Score conflated output against the derived ground truth",
		Run: func(cmd *cobra.Command, args []string) {
			places, err := conflate.ReadOutput(outputPath(method))
			if err != nil {
				log.Fatalf("Failed to read conflated places: %v", err)
			}
			truth, err := place.ReadGroundTruth(groundTruthPath())
			if err != nil {
				log.Fatalf("Failed to read ground truth: %v", err)
			}

			report := eval.Evaluate(places, truth)
			report.Print()
		},
	}
	cmd.Flags().StringVar(&method, "method", "rules", "which output to score: rules or ml")
	return cmd
}

func createExportCmd() *cobra.Command {
	var method, label string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Load pipeline outputs into Postgres",
		Run: func(cmd *cobra.Command, args []string) {
			triplets, err := place.ReadTriplets(tripletsPath())
			if err != nil {
				log.Fatalf("Failed to read triplets: %v", err)
			}
			places, err := conflate.ReadOutput(outputPath(method))
			if err != nil {
				log.Fatalf("Failed to read conflated places: %v", err)
			}

			st, err := store.Open(cfg.Database.URL)
			if err != nil {
				log.Fatalf("Failed to connect to database: %v", err)
			}
			defer st.Close()

			if err := st.CreateSchema(); err != nil {
				log.Fatalf("Failed to create schema: %v", err)
			}
			run, err := st.CreateRun(label, method)
			if err != nil {
				log.Fatalf("Failed to create run: %v", err)
			}
			if err := st.LoadTriplets(run.RunID, triplets); err != nil {
				log.Fatalf("Failed to load triplets: %v", err)
			}
			if err := st.LoadConflated(run.RunID, places); err != nil {
				log.Fatalf("Failed to load conflated places: %v", err)
			}
			if err := st.CompleteRun(run.RunID, len(places)); err != nil {
				log.Fatalf("Failed to complete run: %v", err)
			}
			fmt.Printf("Exported %d triplets and %d places as run %s\n",
				len(triplets), len(places), run.RunID)
		},
	}
	cmd.Flags().StringVar(&method, "method", "rules", "which output to export: rules or ml")
	cmd.Flags().StringVar(&label, "label", "pipeline run", "run label stored with the export")
	return cmd
}
