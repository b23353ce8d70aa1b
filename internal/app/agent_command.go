package app

import (
	"strings"

	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/agentlog"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/route"
	"github.com/spf13/cobra"
)

func (s *runtimeState) newAgentCommand() *cobra.Command {
	root := &cobra.Command{Use: "agent", Short: "Agent conversation logs"}

	var titleArg string
	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Open a new agent log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := s.logs.Open(s.user(), titleArg)
			if err != nil {
				return err
			}
			if err := s.store.SaveLog(l); err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), l)
		},
	}
	newCmd.Flags().StringVar(&titleArg, "title", "", "Log title")
	_ = newCmd.MarkFlagRequired("title")

	var senderArg, contentArg string
	var reqFlags routeRequestFlags
	sayCmd := &cobra.Command{
		Use:   "say <log-id>",
		Short: "Append a message, optionally with a route recommendation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sender, err := agentlog.ParseSender(senderArg)
			if err != nil {
				return err
			}
			var rec *route.Recommendation
			if strings.TrimSpace(reqFlags.candidates) != "" {
				recs, err := s.rank(reqFlags)
				if err != nil {
					return err
				}
				rec = &recs[0]
			}
			logID := strings.TrimSpace(args[0])
			msg, err := s.logs.Append(s.user(), logID, sender, contentArg, rec)
			if err != nil {
				return err
			}
			l, err := s.logs.Get(s.user(), logID)
			if err != nil {
				return err
			}
			if err := s.store.SaveLog(l); err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), msg)
		},
	}
	sayCmd.Flags().StringVar(&senderArg, "sender", "user", "Message sender (user|agent)")
	sayCmd.Flags().StringVar(&contentArg, "content", "", "Message text")
	reqFlags.bind(sayCmd)
	_ = sayCmd.MarkFlagRequired("content")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List agent logs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), s.logs.List(s.user()))
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <log-id>",
		Short: "Show an agent log with its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := s.logs.Get(s.user(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), l)
		},
	}

	root.AddCommand(newCmd)
	root.AddCommand(sayCmd)
	root.AddCommand(listCmd)
	root.AddCommand(showCmd)
	return root
}
