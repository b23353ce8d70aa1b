package app

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	clierr "github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/errors"
	"github.com/Ronit-Raj9/chainlink-chromion-hackathon-sub001/internal/route"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type routeRequestFlags struct {
	from       string
	to         string
	token      string
	amount     string
	candidates string
	prefer     string
}

func (f *routeRequestFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "Source chain")
	cmd.Flags().StringVar(&f.to, "to", "", "Destination chain")
	cmd.Flags().StringVar(&f.token, "token", "", "Token symbol")
	cmd.Flags().StringVar(&f.amount, "amount", "", "Amount in decimal units")
	cmd.Flags().StringVar(&f.candidates, "candidates", "", "Quote candidates file (.json, otherwise YAML)")
	cmd.Flags().StringVar(&f.prefer, "prefer", "", "Preferred providers, best first (comma-separated)")
}

// rank scores the candidate file against the request. A saved route for the
// same lane is used as a hint and its last-used time is refreshed.
func (s *runtimeState) rank(f routeRequestFlags) ([]route.Recommendation, error) {
	candidates, err := loadCandidates(f.candidates)
	if err != nil {
		return nil, err
	}
	req := route.Request{
		SourceChain:      f.from,
		DestinationChain: f.to,
		Token:            f.token,
		Amount:           f.amount,
		Hints:            route.Hints{PreferredProviders: splitCSV(f.prefer)},
	}
	saved, matched := s.routes.Match(s.user(), f.from, f.to, f.token)
	if matched {
		req.Hints.SavedRouteName = saved.Name
	}
	recs, err := s.scorer.Rank(req, candidates)
	if err != nil {
		return nil, err
	}
	if matched {
		touched, err := s.routes.Touch(s.user(), saved.ID, s.runner.now().UTC())
		if err != nil {
			return nil, err
		}
		if err := s.store.SaveRoute(touched); err != nil {
			return nil, err
		}
	}
	s.logger.Debug("routes ranked", "candidates", len(candidates), "viable", len(recs), "saved_route", req.Hints.SavedRouteName)
	return recs, nil
}

func loadCandidates(path string) ([]route.Candidate, error) {
	if strings.TrimSpace(path) == "" {
		return nil, clierr.New(clierr.CodeUsage, "--candidates is required")
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, "read candidates file", err)
	}
	var candidates []route.Candidate
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(buf, &candidates)
	} else {
		err = yaml.Unmarshal(buf, &candidates)
	}
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeUsage, "parse candidates file", err)
	}
	return candidates, nil
}

func (s *runtimeState) newRoutesCommand() *cobra.Command {
	root := &cobra.Command{Use: "routes", Short: "Route recommendations and saved routes"}

	var reqFlags routeRequestFlags
	var all bool
	recommendCmd := &cobra.Command{
		Use:   "recommend",
		Short: "Rank quote candidates and recommend a route",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := s.rank(reqFlags)
			if err != nil {
				return err
			}
			if all {
				return s.emitSuccess(trimRootPath(cmd.CommandPath()), recs)
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), recs[0])
		},
	}
	reqFlags.bind(recommendCmd)
	recommendCmd.Flags().BoolVar(&all, "all", false, "Return every viable route in rank order")
	_ = recommendCmd.MarkFlagRequired("from")
	_ = recommendCmd.MarkFlagRequired("to")
	_ = recommendCmd.MarkFlagRequired("token")
	_ = recommendCmd.MarkFlagRequired("amount")
	_ = recommendCmd.MarkFlagRequired("candidates")

	var nameArg, fromArg, toArg, tokenArg string
	saveCmd := &cobra.Command{
		Use:   "save",
		Short: "Save a named route for a chain lane",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := s.routes.Save(s.user(), nameArg, fromArg, toArg, tokenArg)
			if err != nil {
				return err
			}
			if err := s.store.SaveRoute(r); err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), r)
		},
	}
	saveCmd.Flags().StringVar(&nameArg, "name", "", "Route name")
	saveCmd.Flags().StringVar(&fromArg, "from", "", "Source chain")
	saveCmd.Flags().StringVar(&toArg, "to", "", "Destination chain")
	saveCmd.Flags().StringVar(&tokenArg, "token", "", "Token symbol")
	_ = saveCmd.MarkFlagRequired("name")
	_ = saveCmd.MarkFlagRequired("from")
	_ = saveCmd.MarkFlagRequired("to")
	_ = saveCmd.MarkFlagRequired("token")

	var renameArg string
	renameCmd := &cobra.Command{
		Use:   "rename <route-id>",
		Short: "Rename a saved route",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := s.routes.Rename(s.user(), strings.TrimSpace(args[0]), renameArg)
			if err != nil {
				return err
			}
			if err := s.store.SaveRoute(r); err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), r)
		},
	}
	renameCmd.Flags().StringVar(&renameArg, "name", "", "New route name")
	_ = renameCmd.MarkFlagRequired("name")

	deleteCmd := &cobra.Command{
		Use:   "delete <route-id>",
		Short: "Delete a saved route",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			routeID := strings.TrimSpace(args[0])
			if err := s.routes.Delete(s.user(), routeID); err != nil {
				return err
			}
			if err := s.store.DeleteRoute(s.user(), routeID); err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), map[string]any{"id": routeID, "deleted": true})
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List saved routes, most recently used first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), s.routes.List(s.user()))
		},
	}

	root.AddCommand(recommendCmd)
	root.AddCommand(saveCmd)
	root.AddCommand(renameCmd)
	root.AddCommand(deleteCmd)
	root.AddCommand(listCmd)
	return root
}
