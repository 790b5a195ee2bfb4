package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danieldreier/mcp-vocab/internal/importer"
)

func init() {
	importCmd.Flags().Int64("deck", 0, "Deck receiving the words")
	importCmd.Flags().String("new-deck", "", "Create a deck with this name and import into it")
	importCmd.Flags().String("sheet", "", "Excel sheet to read (default: the first sheet)")
	importCmd.Flags().Bool("no-header", false, "The first row holds a word, not column titles")
	importCmd.Flags().String("term-col", "A", "Column with the term")
	importCmd.Flags().String("definition-col", "B", "Column with the definition")
	importCmd.Flags().String("example-col", "C", "Column with an example sentence")
	importCmd.Flags().String("phonetic-col", "D", "Column with the pronunciation")
}

var importCmd = &cobra.Command{
	Use:   "import <file.xlsx|file.csv>",
	Short: "Import words from an Excel or CSV file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		defer rt.close()
		ctx := contextOf(cmd)

		deckID, _ := cmd.Flags().GetInt64("deck")
		newDeck, _ := cmd.Flags().GetString("new-deck")
		switch {
		case newDeck != "" && deckID != 0:
			return errors.New("use either --deck or --new-deck, not both")
		case newDeck != "":
			deck, err := rt.store.CreateDeck(ctx, newDeck, "Imported from "+filepath.Base(args[0]))
			if err != nil {
				return fmt.Errorf("create deck: %w", err)
			}
			deckID = deck.ID
		case deckID == 0:
			return errors.New("--deck or --new-deck is required")
		}

		cfg := importer.DefaultConfig()
		cfg.FilePath = args[0]
		cfg.DeckID = deckID
		cfg.SheetName, _ = cmd.Flags().GetString("sheet")
		noHeader, _ := cmd.Flags().GetBool("no-header")
		cfg.SkipHeader = !noHeader
		cfg.TermColumn, _ = cmd.Flags().GetString("term-col")
		cfg.DefinitionColumn, _ = cmd.Flags().GetString("definition-col")
		cfg.ExampleColumn, _ = cmd.Flags().GetString("example-col")
		cfg.PhoneticColumn, _ = cmd.Flags().GetString("phonetic-col")

		res, err := importer.New(rt.store, rt.logger).Import(ctx, cfg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Processed %d rows: %d created, %d skipped\n", res.Processed, res.Created, res.Skipped)
		if len(res.Errors) > 0 {
			fmt.Fprintf(out, "Problems:\n  %s\n", strings.Join(res.Errors, "\n  "))
		}
		return nil
	},
}
