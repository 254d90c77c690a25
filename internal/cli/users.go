package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/heartline/internal/affection"
	"github.com/lazypower/heartline/internal/analysis"
	"github.com/lazypower/heartline/internal/emotion"
	"github.com/lazypower/heartline/internal/engine"
	"github.com/lazypower/heartline/internal/transcript"
)

const requestTimeout = 10 * time.Second

var (
	userFlag     string
	jsonOutput   bool
	historyLimit int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a user's relationship status",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		st, err := c.Status(ctx, userFlag)
		if err != nil {
			return fmt.Errorf("get status: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), st)
		}
		printStatus(cmd.OutOrStdout(), st)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent conversation turns",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		turns, err := c.History(ctx, userFlag, historyLimit)
		if err != nil {
			return fmt.Errorf("get history: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), turns)
		}
		printHistory(cmd.OutOrStdout(), turns, userFlag)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show emotion statistics for a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		st, err := c.EmotionStats(ctx, userFlag)
		if err != nil {
			return fmt.Errorf("get stats: %w", err)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), st)
		}
		printStats(cmd.OutOrStdout(), st)
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget everything about a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		if err := c.Reset(ctx, userFlag); err != nil {
			return fmt.Errorf("reset user: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: 새로운 만남을 시작합니다.\n", userFlag)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{statusCmd, historyCmd, statsCmd, resetCmd, chatCmd, exportCmd} {
		c.Flags().StringVarP(&userFlag, "user", "u", "사용자", "User name")
	}
	for _, c := range []*cobra.Command{statusCmd, historyCmd, statsCmd, analyzeCmd} {
		c.Flags().BoolVar(&jsonOutput, "json", false, "Print JSON")
	}
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of turns")
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func printStatus(w io.Writer, st *engine.Status) {
	fmt.Fprintf(w, "%s | %s %s\n", st.Title, affection.Describe(st.Score), st.Hearts)
	fmt.Fprintf(w, "  진행도 %.0f%% | 대화 %d회 | 만난 지 %d일\n", st.Progress, st.ConversationCount, st.DaysSinceFirstMet)
	fmt.Fprintf(w, "  기분: %s %s (강도 %d/10)\n", st.Emoji, st.EmotionName, st.IntensityLevel)
	if len(st.Unlocks) > 0 {
		fmt.Fprintf(w, "  해금: %v\n", st.Unlocks)
	}
	fmt.Fprintf(w, "\n  카오루코: %s\n", st.Greeting)
}

func printHistory(w io.Writer, turns []transcript.Turn, user string) {
	if len(turns) == 0 {
		fmt.Fprintln(w, "No conversation yet.")
		return
	}
	for _, t := range turns {
		fmt.Fprintf(w, "[%s]\n", t.Timestamp.Local().Format("2006-01-02 15:04"))
		fmt.Fprintf(w, "  %s: %s\n", user, t.UserMessage)
		fmt.Fprintf(w, "  %s: %s\n", engine.BotName, t.BotReply)
	}
}

func printStats(w io.Writer, st *analysis.Stats) {
	if st.Total == 0 {
		fmt.Fprintln(w, "No observations yet.")
		return
	}
	dom, _ := emotion.Lookup(st.Dominant)
	fmt.Fprintf(w, "주요 감정: %s %s (%d회 분석)\n", dom.Emoji, dom.Korean, st.Total)
	for _, l := range emotion.Labels {
		pct, ok := st.Distribution[l]
		if !ok {
			continue
		}
		d, _ := emotion.Lookup(l)
		fmt.Fprintf(w, "  %s %-4s %5.1f%%\n", d.Emoji, d.Korean, pct)
	}
}
