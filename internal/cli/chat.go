package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/heartline/internal/client"
	"github.com/lazypower/heartline/internal/emotion"
	"github.com/lazypower/heartline/internal/engine"
	"github.com/lazypower/heartline/internal/milestone"
	"github.com/lazypower/heartline/internal/trigger"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Talk to 카오루코 through a running server",
	Long:  "Sends one message, or starts an interactive conversation when no message is given.",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if len(args) > 0 {
			return sendChat(cmd.Context(), c, out, strings.Join(args, " "))
		}

		fmt.Fprintf(out, "%s와 대화를 시작합니다. 종료하려면 Ctrl-D.\n", engine.BotName)
		sc := bufio.NewScanner(cmd.InOrStdin())
		for {
			fmt.Fprintf(out, "%s> ", userFlag)
			if !sc.Scan() {
				fmt.Fprintln(out)
				return sc.Err()
			}
			msg := strings.TrimSpace(sc.Text())
			if msg == "" {
				continue
			}
			if err := sendChat(cmd.Context(), c, out, msg); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		}
	},
}

func sendChat(ctx context.Context, c *client.Client, w io.Writer, msg string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := c.Chat(ctx, userFlag, msg)
	if err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	def, _ := emotion.Lookup(res.Emotion.Emotion)
	fmt.Fprintf(w, "%s %s: %s\n", def.Emoji, engine.BotName, res.Reply)
	for _, n := range res.Notices {
		fmt.Fprintf(w, "  %s\n", n.Message)
	}
	printEvents(w, res.EventViews)
	return nil
}

func printEvents(w io.Writer, views []milestone.View) {
	for _, v := range views {
		if v.Title != "" {
			fmt.Fprintf(w, "  %s %s\n", v.Title, v.Message)
		} else {
			fmt.Fprintf(w, "  %s\n", v.Message)
		}
		for _, line := range v.SpecialDialogue {
			fmt.Fprintf(w, "    %s\n", line)
		}
		if len(v.UnlockFeatures) > 0 {
			fmt.Fprintf(w, "    🔓 %s\n", strings.Join(v.UnlockFeatures, ", "))
		}
	}
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <message>",
	Short: "Run trigger detection on a message without changing any state",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := trigger.NewDetector(nil).Analyze(strings.Join(args, " "), time.Time{}, nil)
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), a)
		}
		printAnalysis(cmd.OutOrStdout(), a)
		return nil
	},
}

func printAnalysis(w io.Writer, a trigger.Analysis) {
	fmt.Fprintln(w, "감정 후보:")
	if len(a.Emotions) == 0 {
		fmt.Fprintln(w, "  (없음)")
	}
	for _, c := range a.Emotions {
		d, _ := emotion.Lookup(c.Emotion)
		fmt.Fprintf(w, "  %s %s %.2f\n", d.Emoji, d.Korean, c.Confidence)
	}
	fmt.Fprintln(w, "호감도 트리거:")
	if len(a.Affection) == 0 {
		fmt.Fprintln(w, "  (없음)")
	}
	for _, m := range a.Affection {
		fmt.Fprintf(w, "  %s ×%.1f\n", m.Trigger, m.Multiplier)
	}
	if len(a.Cues) > 0 {
		fmt.Fprintf(w, "직접 신호: %v\n", a.Cues)
	}
	if flags := a.Context.List(); len(flags) > 0 {
		fmt.Fprintf(w, "상황: %v\n", flags)
	}
}
