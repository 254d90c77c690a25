package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	exportOut  string
	importUser string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a user's chat history as JSONL",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		eng, _, _, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer eng.Close()

		var w io.Writer = cmd.OutOrStdout()
		if exportOut != "" && exportOut != "-" {
			f, err := os.Create(exportOut)
			if err != nil {
				return fmt.Errorf("create %s: %w", exportOut, err)
			}
			defer f.Close()
			bw := bufio.NewWriter(f)
			defer bw.Flush()
			w = bw
		}

		n, err := eng.Export(ctx, userFlag, w)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "exported %d turns for %s\n", n, userFlag)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file.jsonl>",
	Short: "Import chat history from JSONL",
	Long:  "Appends turns from a JSONL export. With --user every turn is filed under that user; otherwise each turn keeps its own user_id.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open %s: %w", args[0], err)
		}
		defer f.Close()

		ctx := context.Background()
		eng, _, _, err := openEngine(ctx)
		if err != nil {
			return err
		}
		defer eng.Close()

		imported, skipped, err := eng.Import(ctx, importUser, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d turns", imported)
		if skipped > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), " (%d skipped)", skipped)
		}
		fmt.Fprintln(cmd.OutOrStdout())
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "Output file (default: stdout)")
	importCmd.Flags().StringVarP(&importUser, "user", "u", "", "File every turn under this user")
}
