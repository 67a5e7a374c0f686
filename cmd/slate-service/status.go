package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"golang-news-slate/internal/dto"
	"golang-news-slate/internal/entity"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

var (
	statusAddr    string
	statusNoColor bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Prints today's board from a running service",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := fetchSlots(cmd.Context(), statusAddr)
		if err != nil {
			return err
		}
		renderSlots(cmd.OutOrStdout(), resp, !statusNoColor)
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusAddr, "addr", "http://localhost:8080", "Base URL of the running service")
	statusCmd.Flags().BoolVar(&statusNoColor, "no-color", false, "Disable colored status cells")
}

func fetchSlots(ctx context.Context, addr string) (*dto.SlotsResponse, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr+"/api/v1/slots", nil)
	if err != nil {
		return nil, err
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach service: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		var e dto.ErrorResponse
		_ = json.NewDecoder(res.Body).Decode(&e)
		return nil, fmt.Errorf("service returned %d: %s", res.StatusCode, e.Error)
	}
	var out dto.SlotsResponse
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode slots: %w", err)
	}
	return &out, nil
}

var statusColors = map[entity.PostStatus]*color.Color{
	entity.PostStatusPosted:    color.New(color.FgGreen),
	entity.PostStatusReady:     color.New(color.FgCyan),
	entity.PostStatusPending:   color.New(color.FgWhite),
	entity.PostStatusNoArticle: color.New(color.FgYellow),
	entity.PostStatusFailed:    color.New(color.FgRed, color.Bold),
}

func renderSlots(w io.Writer, resp *dto.SlotsResponse, useColor bool) {
	fmt.Fprintf(w, "Date %s  Board %s\n", resp.Date, resp.Board)

	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
	)
	table.Header([]string{"Post", "Due (UTC)", "Category", "Status", "Score", "Headline", "External ID"})

	for _, p := range resp.Posts {
		status := string(p.Status)
		if c, ok := statusColors[p.Status]; ok && useColor {
			status = c.Sprint(status)
		}
		score, headline := "", ""
		if p.Article != nil {
			score = strconv.Itoa(p.Article.Total)
			headline = truncate(p.Article.Headline, 60)
		}
		if p.Error != "" && headline == "" {
			headline = truncate(p.Error, 60)
		}
		_ = table.Append([]string{
			strconv.Itoa(p.Slot.PostNumber),
			p.DueAt.UTC().Format("15:04"),
			string(p.Slot.CategoryID),
			status,
			score,
			headline,
			p.ExternalID,
		})
	}
	_ = table.Render()

	statuses := make([]string, 0, len(resp.Counts))
	for s := range resp.Counts {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		fmt.Fprintf(w, "%s=%d ", s, resp.Counts[s])
	}
	fmt.Fprintln(w)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
