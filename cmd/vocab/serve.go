package main

import (
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danieldreier/mcp-vocab/internal/maintenance"
	"github.com/danieldreier/mcp-vocab/internal/session"
)

const vocabServerInfo = `
This is a spaced repetition vocabulary trainer. Follow this workflow:

1. Call start_session (optionally with a deck_id) and show ONLY the term of
   the current card.
2. Let the learner try to recall the meaning, then call flip_card to reveal
   the definition and example.
3. Ask how well they knew it and call answer_card with quality:
   1 = again (did not know it), 2 = good (knew it), 3 = easy (instant).
4. Continue with the next card from the response until the session is
   complete, then share the summary, XP earned and current streak.

Words answered "again" come back once more at the end of the session.
`

func init() {
	serveCmd.Flags().Int("session-size", session.DefaultSessionSize, "Cards per session")
	serveCmd.Flags().String("requeue", "", "What to do with missed words: again or none")
	serveCmd.Flags().Bool("no-maintenance", false, "Do not schedule the daily maintenance job")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve study sessions over MCP stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		defer rt.close()
		ctx := contextOf(cmd)

		manager := session.NewManager(rt.store, nil,
			session.WithConfig(rt.cfg.SessionConfig()),
			session.WithLogger(rt.logger),
			session.WithEventSink(session.LogSink{Logger: rt.logger}),
		)

		if skip, _ := cmd.Flags().GetBool("no-maintenance"); !skip {
			jobs := maintenance.New(rt.store, rt.logger, rt.cfg.MaintenanceAt, time.Local)
			if _, err := jobs.RunOnce(ctx); err != nil {
				rt.logger.Warn("Initial maintenance failed", zap.Error(err))
			}
			if err := jobs.Start(ctx); err != nil {
				return err
			}
			defer jobs.Stop()
		}

		s := newMCPServer(newVocabServer(rt.store, manager, rt.logger))
		rt.logger.Info("Serving MCP over stdio", zap.String("backend", rt.cfg.Backend))
		return server.ServeStdio(s)
	},
}

// newMCPServer creates the MCP server and registers every tool.
func newMCPServer(v *vocabServer) *server.MCPServer {
	s := server.NewMCPServer(
		"Vocabulary MCP",
		"1.0.0",
		server.WithInstructions(vocabServerInfo),
		server.WithToolCapabilities(true),
		server.WithLogging(),
	)

	createDeckTool := mcp.NewTool("create_deck",
		mcp.WithDescription("Create a deck to group words for scoped study sessions."),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Deck name"),
		),
		mcp.WithString("description",
			mcp.Description("Optional description"),
		),
	)

	listDecksTool := mcp.NewTool("list_decks",
		mcp.WithDescription("List all decks."),
	)

	addWordTool := mcp.NewTool("add_word",
		mcp.WithDescription("Add a word to a deck. New words are studied in the next session."),
		mcp.WithNumber("deck_id",
			mcp.Required(),
			mcp.Description("The deck receiving the word"),
		),
		mcp.WithString("term",
			mcp.Required(),
			mcp.Description("The word or phrase being learned"),
		),
		mcp.WithString("definition",
			mcp.Required(),
			mcp.Description("Its meaning or translation"),
		),
		mcp.WithString("example",
			mcp.Description("An example sentence"),
		),
		mcp.WithString("phonetic",
			mcp.Description("Pronunciation"),
		),
	)

	listWordsTool := mcp.NewTool("list_words",
		mcp.WithDescription("List words with their scheduling progress, optionally for one deck."),
		mcp.WithNumber("deck_id",
			mcp.Description("Only list words of this deck"),
		),
	)

	deleteWordTool := mcp.NewTool("delete_word",
		mcp.WithDescription("Delete a word and its progress. If it is still queued in the active session it is skipped."),
		mcp.WithNumber("word_id",
			mcp.Required(),
			mcp.Description("The word to delete"),
		),
	)

	deleteDeckTool := mcp.NewTool("delete_deck",
		mcp.WithDescription("Delete a deck together with all of its words and their progress."),
		mcp.WithNumber("deck_id",
			mcp.Required(),
			mcp.Description("The deck to delete"),
		),
	)

	startSessionTool := mcp.NewTool("start_session",
		mcp.WithDescription(
			"Start a study session. Due words come first, then new words. "+
				"Show ONLY the term of the returned card until flip_card is called.",
		),
		mcp.WithNumber("deck_id",
			mcp.Description("Study only this deck; if nothing is due the whole deck is crammed"),
		),
		mcp.WithNumber("size",
			mcp.Description("Maximum number of cards (default 20, at most 100)"),
		),
		mcp.WithBoolean("hard_mode",
			mcp.Description("Use harsher scheduling for missed and recalled words"),
		),
		mcp.WithString("mode",
			mcp.Description("learn (default) or quiz; quiz answers earn bonus XP"),
		),
	)

	flipCardTool := mcp.NewTool("flip_card",
		mcp.WithDescription("Reveal the definition and example of the current card."),
	)

	answerCardTool := mcp.NewTool("answer_card",
		mcp.WithDescription(
			"Record how well the learner knew the current card and move to the next one. "+
				"The card must be flipped first.",
		),
		mcp.WithNumber("quality",
			mcp.Required(),
			mcp.Description("1 = again, 2 = good, 3 = easy"),
		),
		mcp.WithNumber("response_time_ms",
			mcp.Description("How long the learner took to answer"),
		),
	)

	restartSessionTool := mcp.NewTool("restart_session",
		mcp.WithDescription("Study the same cards again from the first one."),
	)

	getLevelTool := mcp.NewTool("get_level",
		mcp.WithDescription("Show the learner's level, title and XP."),
	)

	getStatsTool := mcp.NewTool("get_stats",
		mcp.WithDescription("Show today's statistics, the streak, due and mastered counts and recent sessions."),
	)

	s.AddTool(createDeckTool, v.handleCreateDeck)
	s.AddTool(listDecksTool, v.handleListDecks)
	s.AddTool(addWordTool, v.handleAddWord)
	s.AddTool(listWordsTool, v.handleListWords)
	s.AddTool(deleteWordTool, v.handleDeleteWord)
	s.AddTool(deleteDeckTool, v.handleDeleteDeck)
	s.AddTool(startSessionTool, v.handleStartSession)
	s.AddTool(flipCardTool, v.handleFlipCard)
	s.AddTool(answerCardTool, v.handleAnswerCard)
	s.AddTool(restartSessionTool, v.handleRestartSession)
	s.AddTool(getLevelTool, v.handleGetLevel)
	s.AddTool(getStatsTool, v.handleGetStats)

	return s
}
