package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/skill-gap/internal/assistant"
	"github.com/spigell/skill-gap/internal/logger"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Find the postings closest to the target role and the skills missing from the CV",
	Run: func(cmd *cobra.Command, _ []string) {
		analyze(cmd)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("title", "t", "", "target job title. Derived from the CV when empty")
	analyzeCmd.Flags().Int("workers", 0, "number of key point extractions running at once")
	analyzeCmd.Flags().Bool("postprocess", false, "rewrite the result with the postprocess prompt")

	viper.BindPFlag("analysis.workers", analyzeCmd.Flags().Lookup("workers"))
	viper.BindPFlag("prompts.enable-postprocess", analyzeCmd.Flags().Lookup("postprocess"))
}

func analyze(cmd *cobra.Command) {
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

	logger.Info("starting the analysis", zap.String("version", version))

	cv, err := readCV(config)
	if err != nil {
		logger.Fatal("reading the cv", zap.Error(err))
	}

	postings, err := loadPostings(ctx, config, logger)
	if err != nil {
		logger.Fatal("getting postings", zap.Error(err))
	}

	a, err := newAssistant(ctx, config, logger)
	if err != nil {
		logger.Fatal("creating the assistant", zap.Error(err))
	}

	title, _ := cmd.Flags().GetString("title")

	res, err := a.AnalyzeMissingSkills(ctx, postings.Items, cv, title)
	if err != nil {
		logger.Fatal("analysing missing skills", zap.Error(err))
	}

	if err := printAnalysis(cmd.OutOrStdout(), res); err != nil {
		logger.Fatal("printing the analysis", zap.Error(err))
	}
}

func printAnalysis(w io.Writer, res *assistant.Analysis) error {
	heading := fmt.Sprintf("Postings best matching job title %s", res.Title)
	if res.TitleDerived {
		heading += ", which was derived from the CV"
	}
	fmt.Fprintf(w, "### %s\n\n", heading)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSCORE\tTITLE\tCOMPANY\tLOCATION")
	for rank, item := range res.Ranked {
		fmt.Fprintf(tw, "%d\t%.4f\t%s\t%s\t%s\n",
			rank, item.Score,
			oneLine(item.Posting.Title), oneLine(item.Posting.Company), oneLine(item.Posting.Location),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n### Missing skills:\n%s\n", res.MissingSkills)
	return err
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
