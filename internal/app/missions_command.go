package app

import (
	"strings"

	clierr "github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/errors"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/id"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/mission"
	"github.com/spf13/cobra"
)

func (s *runtimeState) newMissionsCommand() *cobra.Command {
	root := &cobra.Command{Use: "missions", Short: "Create missions and record their status events"}

	var createID, nameArg, fromArg, toArg, tokenArg, amountArg, amountBaseArg, gasArg, createdArg string
	var decimals int
	var starred bool
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Start tracking a new bridge mission",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := id.NormalizeAmount(amountBaseArg, amountArg, decimals)
			if err != nil {
				return err
			}
			created, err := parseTimestamp(createdArg)
			if err != nil {
				return err
			}
			ctx, cancel := s.commandContext()
			defer cancel()
			m, err := s.engine.Create(ctx, s.user(), mission.MissionInput{
				ID:               createID,
				Name:             nameArg,
				SourceChain:      fromArg,
				DestinationChain: toArg,
				Token:            tokenArg,
				Amount:           amount.String(),
				GasSaved:         gasArg,
				CreatedAt:        created,
				Starred:          starred,
			})
			if err != nil {
				return err
			}
			if err := s.store.SaveMission(m); err != nil {
				return err
			}
			s.logger.Debug("mission created", "mission", m.ID, "user", m.UserID)
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), m)
		},
	}
	createCmd.Flags().StringVar(&createID, "id", "", "Mission id (generated when empty)")
	createCmd.Flags().StringVar(&nameArg, "name", "", "Human readable mission name")
	createCmd.Flags().StringVar(&fromArg, "from", "", "Source chain")
	createCmd.Flags().StringVar(&toArg, "to", "", "Destination chain")
	createCmd.Flags().StringVar(&tokenArg, "token", "", "Token symbol")
	createCmd.Flags().StringVar(&amountArg, "amount", "", "Amount in decimal units")
	createCmd.Flags().StringVar(&amountBaseArg, "amount-base", "", "Amount in base units (use with --decimals)")
	createCmd.Flags().IntVar(&decimals, "decimals", 18, "Token decimals for --amount-base")
	createCmd.Flags().StringVar(&gasArg, "gas-saved", "", "Estimated gas saved in display currency")
	createCmd.Flags().StringVar(&createdArg, "created-at", "", "Creation time (RFC3339, default now)")
	createCmd.Flags().BoolVar(&starred, "starred", false, "Star the mission")
	_ = createCmd.MarkFlagRequired("name")
	_ = createCmd.MarkFlagRequired("from")
	_ = createCmd.MarkFlagRequired("to")
	_ = createCmd.MarkFlagRequired("token")

	var statusArg, titleArg, descArg, txHashArg, atArg string
	eventCmd := &cobra.Command{
		Use:   "event <mission-id>",
		Short: "Append a status event to a mission timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			next, err := mission.ParseStatus(statusArg)
			if err != nil {
				return err
			}
			at, err := parseTimestamp(atArg)
			if err != nil {
				return err
			}
			ctx, cancel := s.commandContext()
			defer cancel()
			m, err := s.engine.AppendEvent(ctx, s.user(), strings.TrimSpace(args[0]), mission.EventInput{
				Title:       titleArg,
				Description: descArg,
				TxHash:      txHashArg,
				Timestamp:   at,
			}, next)
			if err != nil {
				s.logger.Debug("event rejected", "mission", args[0], "status", next.String(), "error", err)
				return err
			}
			if err := s.store.SaveMission(m); err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), m)
		},
	}
	eventCmd.Flags().StringVar(&statusArg, "status", "", "New status (preparing|launched|in_transit|completed|failed)")
	eventCmd.Flags().StringVar(&titleArg, "title", "", "Event title (defaults to the status title)")
	eventCmd.Flags().StringVar(&descArg, "description", "", "Free-text event description")
	eventCmd.Flags().StringVar(&txHashArg, "tx-hash", "", "Transaction hash or signature")
	eventCmd.Flags().StringVar(&atArg, "at", "", "Event time (RFC3339, default now)")
	_ = eventCmd.MarkFlagRequired("status")

	var unstar bool
	starCmd := &cobra.Command{
		Use:   "star <mission-id>",
		Short: "Star or unstar a mission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := s.commandContext()
			defer cancel()
			m, err := s.engine.SetStarred(ctx, s.user(), strings.TrimSpace(args[0]), !unstar)
			if err != nil {
				return err
			}
			if err := s.store.SaveMission(m); err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), m)
		},
	}
	starCmd.Flags().BoolVar(&unstar, "off", false, "Remove the star")

	var listStatus string
	var listStarred bool
	var listLimit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List missions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap := s.engine.Store().Snapshot(s.user())
			var missions []mission.Mission
			if strings.TrimSpace(listStatus) != "" {
				status, err := mission.ParseStatus(listStatus)
				if err != nil {
					return clierr.Wrap(clierr.CodeUsage, "parse --status", err)
				}
				missions = snap.Filter(status)
			} else {
				missions = snap.Missions()
			}
			filtered := make([]mission.Mission, 0, len(missions))
			for _, m := range missions {
				if listStarred && !m.Starred {
					continue
				}
				filtered = append(filtered, m)
				if listLimit > 0 && len(filtered) == listLimit {
					break
				}
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), filtered)
		},
	}
	listCmd.Flags().StringVar(&listStatus, "status", "", "Only missions in this status")
	listCmd.Flags().BoolVar(&listStarred, "starred", false, "Only starred missions")
	listCmd.Flags().IntVar(&listLimit, "limit", 0, "Maximum missions to return (0 = all)")

	getCmd := &cobra.Command{
		Use:   "get <mission-id>",
		Short: "Show one mission with its timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := s.engine.Store().Get(s.user(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), m)
		},
	}

	root.AddCommand(createCmd)
	root.AddCommand(eventCmd)
	root.AddCommand(starCmd)
	root.AddCommand(listCmd)
	root.AddCommand(getCmd)
	return root
}

func (s *runtimeState) newDashboardCommand() *cobra.Command {
	root := &cobra.Command{Use: "dashboard", Short: "Derived statistics and achievements"}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show rolled-up mission statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), s.dashboard.Stats(s.user()))
		},
	}

	var earnedOnly bool
	achievementsCmd := &cobra.Command{
		Use:   "achievements",
		Short: "Show achievement progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list := s.dashboard.Achievements(s.user())
			if earnedOnly {
				kept := list[:0]
				for _, a := range list {
					if a.Earned {
						kept = append(kept, a)
					}
				}
				list = kept
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), list)
		},
	}
	achievementsCmd.Flags().BoolVar(&earnedOnly, "earned", false, "Only earned achievements")

	root.AddCommand(statsCmd)
	root.AddCommand(achievementsCmd)
	return root
}
