package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bhis/bhis/internal/client"
	"github.com/bhis/bhis/internal/domain/queue"
)

func queueCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Manage today's service queue",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "Show the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetString("filter")
			search, _ := cmd.Flags().GetString("search")
			filter, err := queue.ParseFilter(raw)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			c, err := a.authed(ctx)
			if err != nil {
				return err
			}
			entries, err := c.ListQueue(ctx, filter, search)
			if err != nil {
				return err
			}
			cnt, err := c.QueueCounts(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "#\tNAME\tAGE\tPURPOSE\tSTATUS\tPRIORITY\tWAIT")
			for _, e := range entries {
				fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\t%dm\n",
					e.ID, e.Name, e.Age, e.Purpose, e.Status, e.Priority, e.WaitTimeMinutes)
			}
			w.Flush()
			fmt.Fprintf(cmd.OutOrStdout(), "waiting %d, in progress %d, completed %d\n",
				cnt.Waiting, cnt.InProgress, cnt.Completed)
			return nil
		},
	}
	list.Flags().String("filter", "all", "all, waiting, in_progress, completed or priority")
	list.Flags().StringP("search", "q", "", "Match name or purpose")

	add := &cobra.Command{
		Use:   "add",
		Short: "Add a patient to the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			var ne queue.NewEntry
			ne.Name, _ = cmd.Flags().GetString("name")
			if cmd.Flags().Changed("age") {
				age, _ := cmd.Flags().GetInt("age")
				ne.Age = &age
			}
			ne.Purpose, _ = cmd.Flags().GetString("purpose")
			if raw, _ := cmd.Flags().GetString("patient"); raw != "" {
				id, err := uuid.Parse(raw)
				if err != nil {
					return fmt.Errorf("invalid patient id: %w", err)
				}
				ne.PatientID = &id
			}

			ctx := cmd.Context()
			c, err := a.authed(ctx)
			if err != nil {
				return err
			}
			e, err := c.AddToQueue(ctx, ne)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "#%d %s added (%s)\n", e.ID, e.Name, e.Priority)
			return nil
		},
	}
	add.Flags().String("name", "", "Patient name")
	add.Flags().Int("age", 0, "Age in years (required unless --patient is given)")
	add.Flags().String("purpose", "", "Reason for visit")
	add.Flags().String("patient", "", "Registered patient id; fills name and age")

	watch := &cobra.Command{
		Use:   "watch",
		Short: "Follow queue changes live until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.authed(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return c.WatchQueue(ctx, func(ev client.QueueEvent) error {
				printQueueEvent(out, ev)
				return nil
			})
		},
	}

	cmd.AddCommand(list, add, watch,
		transitionCmd(a, "start", "Begin serving an entry", (*client.Client).StartService),
		transitionCmd(a, "complete", "Finish serving an entry", (*client.Client).CompleteService),
		transitionCmd(a, "cancel", "Remove a waiting entry", (*client.Client).CancelEntry),
	)
	return cmd
}

func printQueueEvent(w io.Writer, ev client.QueueEvent) {
	cnt := ev.Change.Counts
	switch {
	case ev.Type == queue.EventSnapshot:
		for _, e := range ev.Change.Active {
			fmt.Fprintf(w, "#%d %s %s (%s)\n", e.ID, e.Name, e.Status, e.Priority)
		}
	case ev.Change.Entry != nil:
		e := ev.Change.Entry
		fmt.Fprintf(w, "%s #%d %s %s (%s)\n", time.Now().Format("15:04:05"), e.ID, e.Name, e.Status, e.Priority)
	}
	fmt.Fprintf(w, "  waiting %d, in progress %d, completed %d\n", cnt.Waiting, cnt.InProgress, cnt.Completed)
}

type transitionFunc func(c *client.Client, ctx context.Context, id int) (*queue.Entry, error)

func transitionCmd(a *app, use, short string, apply transitionFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid queue id %q", args[0])
			}
			ctx := cmd.Context()
			c, err := a.authed(ctx)
			if err != nil {
				return err
			}
			e, err := apply(c, ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "#%d %s is now %s\n", e.ID, e.Name, e.Status)
			return nil
		},
	}
}
