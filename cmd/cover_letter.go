package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/skill-gap/internal/jobs"
	"github.com/spigell/skill-gap/internal/logger"
)

var coverLetterCmd = &cobra.Command{
	Use:   "cover-letter",
	Short: "Draft a cover letter for one of the postings",
	Run: func(cmd *cobra.Command, _ []string) {
		coverLetter(cmd)
	},
}

func init() {
	rootCmd.AddCommand(coverLetterCmd)

	coverLetterCmd.Flags().IntP("index", "i", -1, "posting position in the loaded list. Asks interactively when unset")
}

func coverLetter(cmd *cobra.Command) {
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

	cv, err := readCV(config)
	if err != nil {
		logger.Fatal("reading the cv", zap.Error(err))
	}

	postings, err := loadPostings(ctx, config, logger)
	if err != nil {
		logger.Fatal("getting postings", zap.Error(err))
	}

	if postings.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no postings found"))
		return
	}

	index, _ := cmd.Flags().GetInt("index")
	posting, err := choosePosting(postings, index)
	if err != nil {
		logger.Fatal("choosing a posting", zap.Error(err))
	}

	a, err := newAssistant(ctx, config, logger)
	if err != nil {
		logger.Fatal("creating the assistant", zap.Error(err))
	}

	letter, err := a.GenerateCoverLetter(ctx, posting, cv)
	if err != nil {
		logger.Fatal("generating the cover letter", zap.Error(err))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "### Cover letter for %s at %s:\n%s\n", posting.Title, posting.Company, letter)
}

func choosePosting(postings *jobs.Postings, index int) (jobs.Posting, error) {
	if index >= 0 {
		if index >= postings.Len() {
			return jobs.Posting{}, fmt.Errorf("posting index %d is out of range, %d postings loaded", index, postings.Len())
		}
		return postings.Items[index], nil
	}

	items := make([]string, 0, postings.Len())
	for _, p := range postings.Items {
		items = append(items, fmt.Sprintf("%s / %s / %s", oneLine(p.Title), oneLine(p.Company), oneLine(p.Location)))
	}

	postingPrompt := promptui.Select{
		Label: "Choose a posting and press ENTER",
		Items: items,
		Size:  10,
	}

	selected, _, err := postingPrompt.Run()
	if err != nil {
		return jobs.Posting{}, err
	}

	return postings.Items[selected], nil
}
