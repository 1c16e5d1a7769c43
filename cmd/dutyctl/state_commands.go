package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dutyroster/internal/clock"
	"dutyroster/internal/roster"
	"dutyroster/internal/storage"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show who is on duty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.ErrOrStderr(), func(s storage.Store) error {
				st, _, err := s.Load(cmd.Context())
				if err != nil {
					return err
				}
				writeState(cmd.OutOrStdout(), st)
				return nil
			})
		},
	}
}

type adjustSpec struct {
	use, short string
	op         func(*roster.Host) func(context.Context) (roster.Result, error)
}

func newAdjustCommands(ctx *commandContext) []*cobra.Command {
	specs := []adjustSpec{
		{"next", "Move to the next pair", func(h *roster.Host) func(context.Context) (roster.Result, error) { return h.Next }},
		{"prev", "Move back one pair", func(h *roster.Host) func(context.Context) (roster.Result, error) { return h.Prev }},
		{"restore", "Return to the pair of the last rotation", func(h *roster.Host) func(context.Context) (roster.Result, error) { return h.Restore }},
	}
	cmds := make([]*cobra.Command, 0, len(specs))
	for _, s := range specs {
		s := s
		cmds = append(cmds, &cobra.Command{
			Use:   s.use,
			Short: s.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return ctx.withHost(cmd.Context(), cmd.ErrOrStderr(), nil, func(c context.Context, h *roster.Host) error {
					res, err := s.op(h)(c)
					if err != nil {
						return err
					}
					out := cmd.OutOrStdout()
					writeState(out, res.State)
					if res.Collision {
						fmt.Fprintln(out, "warning: both slots point at the same person")
					}
					return nil
				})
			},
		})
	}
	return cmds
}

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var dateFlag string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Apply the daily rotation if it is due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var dates roster.DateSource
			if strings.TrimSpace(dateFlag) != "" {
				d, err := time.ParseInLocation(roster.DateLayout, strings.TrimSpace(dateFlag), time.Local)
				if err != nil {
					return fmt.Errorf("--date must be yyyyMMdd: %w", err)
				}
				dates = clock.Fixed(d)
			}
			return ctx.withHost(cmd.Context(), cmd.ErrOrStderr(), dates, func(c context.Context, h *roster.Host) error {
				res, err := h.Check(c)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if res.Changed {
					fmt.Fprintf(out, "updated for %s\n", res.Date)
				} else {
					fmt.Fprintf(out, "already updated today or not a workday (%s)\n", res.Date)
				}
				writeState(out, res.State)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dateFlag, "date", "", "Evaluate as if today were this date (yyyyMMdd)")
	return cmd
}

func writeState(w io.Writer, st roster.State) {
	a, b := st.Pair()
	fmt.Fprintf(w, "on duty: #%d and #%d\n", a, b)
	last := st.LastUpdate
	if last == "" {
		last = "never"
	}
	fmt.Fprintf(w, "last rotation: %s\n", last)
	if st.Index1 != st.Origin1 || st.Index2 != st.Origin2 {
		fmt.Fprintf(w, "adjusted manually from #%d and #%d\n", st.Origin1+1, st.Origin2+1)
	}
}
