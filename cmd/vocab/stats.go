package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/danieldreier/mcp-vocab/internal/leveling"
	"github.com/danieldreier/mcp-vocab/internal/storage"
)

const recentSessions = 5

type statsResponse struct {
	Today          storage.DailyStats      `json:"today"`
	Streak         int                     `json:"streak"`
	TotalXP        int                     `json:"total_xp"`
	Level          leveling.LevelInfo      `json:"level"`
	Due            int                     `json:"due"`
	Reviewed       int                     `json:"reviewed"`
	Mastered       int                     `json:"mastered"`
	RecentSessions []storage.SessionRecord `json:"recent_sessions"`
}

func levelOf(ctx context.Context, store storage.Storage) (levelResponse, error) {
	xp, err := store.ReadTotalXP(ctx)
	if err != nil {
		return levelResponse{}, err
	}
	return levelResponse{TotalXP: xp, LevelInfo: leveling.LevelOf(xp)}, nil
}

func collectStats(ctx context.Context, store storage.Storage, now time.Time) (statsResponse, error) {
	var resp statsResponse
	var err error
	if resp.Today, err = store.DailyStats(ctx, now); err != nil {
		return resp, fmt.Errorf("daily stats: %w", err)
	}
	if resp.Streak, err = store.ReadStreak(ctx); err != nil {
		return resp, fmt.Errorf("streak: %w", err)
	}
	if resp.TotalXP, err = store.ReadTotalXP(ctx); err != nil {
		return resp, fmt.Errorf("xp: %w", err)
	}
	resp.Level = leveling.LevelOf(resp.TotalXP)
	if resp.Due, err = store.CountDue(ctx, now); err != nil {
		return resp, fmt.Errorf("due: %w", err)
	}
	if resp.Reviewed, err = store.CountReviewed(ctx); err != nil {
		return resp, fmt.Errorf("reviewed: %w", err)
	}
	if resp.Mastered, err = store.CountMastered(ctx); err != nil {
		return resp, fmt.Errorf("mastered: %w", err)
	}
	if resp.RecentSessions, err = store.ListSessions(ctx, recentSessions); err != nil {
		return resp, fmt.Errorf("sessions: %w", err)
	}
	return resp, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show today's study statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		defer rt.close()

		resp, err := collectStats(contextOf(cmd), rt.store, time.Now())
		if err != nil {
			return err
		}
		return printJSON(cmd, resp)
	},
}

var levelCmd = &cobra.Command{
	Use:   "level",
	Short: "Show the current level and XP",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		defer rt.close()

		resp, err := levelOf(contextOf(cmd), rt.store)
		if err != nil {
			return err
		}
		return printJSON(cmd, resp)
	},
}
