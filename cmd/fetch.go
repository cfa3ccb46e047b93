package cmd

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/skill-gap/internal/logger"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch posting pages and save them as a postings file",
	Run: func(cmd *cobra.Command, _ []string) {
		fetch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringP("output", "o", "postings.yaml", "file to write the postings to")
	fetchCmd.Flags().Int("concurrency", 0, "pages fetched at once (default 1)")
	fetchCmd.Flags().Duration("delay", 0, "minimal interval between two requests")

	viper.BindPFlag("postings.fetch.concurrency", fetchCmd.Flags().Lookup("concurrency"))
	viper.BindPFlag("postings.fetch.delay", fetchCmd.Flags().Lookup("delay"))
}

func fetch(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if len(config.Postings.URLs) == 0 {
		logger.Fatal("nothing to fetch", zap.String("hint", "pass --url or set postings.urls in the config"))
	}

	fetcher, err := newFetcher(config, logger)
	if err != nil {
		logger.Fatal("creating the fetcher", zap.Error(err))
	}

	postings, err := fetcher.Fetch(ctx, config.Postings.URLs)
	if err != nil {
		logger.Fatal("fetching postings", zap.Error(err))
	}

	// do not bother error since the report is plain maps of strings
	pretty, _ := json.MarshalIndent(postings.ReportByCompany(), "", "  ")
	logger.Debug(string(pretty), zap.Int("postings count", postings.Len()))

	output, _ := cmd.Flags().GetString("output")
	if err := postings.DumpToFile(strings.TrimSpace(output)); err != nil {
		logger.Fatal("dumping postings to file", zap.Error(err))
	}

	logger.Info("postings saved", zap.String("filename", output), zap.Int("count", postings.Len()))
}
