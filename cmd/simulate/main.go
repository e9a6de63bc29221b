// Command simulate plays planner-against-planner matches headlessly and
// reports how often each side wins. It is used to balance character sheets.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pixelarena/arena-server-go/internal/agent"
	"github.com/pixelarena/arena-server-go/internal/config"
	"github.com/pixelarena/arena-server-go/internal/game"
	"github.com/pixelarena/arena-server-go/internal/game/character"
	"github.com/pixelarena/arena-server-go/internal/game/dice"
	"github.com/pixelarena/arena-server-go/internal/game/rules"
	"github.com/pixelarena/arena-server-go/internal/repository"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	matches    = flag.Int("matches", 100, "number of matches to play")
	parallel   = flag.Int("parallel", 4, "matches played concurrently")
	seed       = flag.Int64("seed", 1, "dice seed of the first match; match i uses seed+i")
	asJSON     = flag.Bool("json", false, "print the report as JSON")
	verbose    = flag.Bool("v", false, "log every action")
)

// Report summarizes a batch of matches.
type Report struct {
	Roster     map[rules.Role]string `json:"roster"`
	Matches    int                   `json:"matches"`
	Unfinished int                   `json:"unfinished"`
	Wins       map[rules.Role]int    `json:"wins"`
	MeanTurns  float64               `json:"mean_turns"`
	Damage     map[rules.Role]int    `json:"damage_dealt"`
	Healing    map[rules.Role]int    `json:"healing_done"`
	Sample     []string              `json:"sample_log,omitempty"`
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := zap.NewNop()
	if *verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
			os.Exit(1)
		}
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := simulate(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Simulation failed: %v\n", err)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
		return
	}
	printReport(report)
}

func simulate(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Report, error) {
	names, err := cfg.Match.RosterRoles()
	if err != nil {
		return nil, err
	}
	modes, err := cfg.Match.Modes()
	if err != nil {
		return nil, err
	}

	store, err := repository.Open(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	ai := make(map[rules.Role]bool, len(names))
	for role := range names {
		ai[role] = true
	}
	opts := game.MatchOptions{AttackModes: modes, AIControlled: ai, LogLimit: cfg.Match.LogLimit}

	mgr := game.NewManager(logger)
	planner := agent.NewPlanner(logger)

	var (
		mu      sync.Mutex
		results = make([]game.MatchView, 0, *matches)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(*parallel, 1))
	for i := 0; i < *matches; i++ {
		g.Go(func() error {
			roster := make(map[rules.Role]*character.Combatant, len(names))
			for role, name := range names {
				c, err := store.GetCharacter(gctx, name)
				if err != nil {
					return fmt.Errorf("%s: %w", role, err)
				}
				roster[role] = c
			}
			session, err := mgr.CreateMatch(gctx, roster, opts, game.CoordinatorConfig{
				Dice:    dice.NewSource(*seed + int64(i)),
				Planner: planner,
			})
			if err != nil {
				return err
			}
			defer mgr.EndMatch(session.Match.ID())

			mu.Lock()
			results = append(results, session.Match.Snapshot())
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summarize(names, results), nil
}

func summarize(names map[rules.Role]string, results []game.MatchView) *Report {
	r := &Report{
		Roster:  names,
		Matches: len(results),
		Wins:    make(map[rules.Role]int),
		Damage:  make(map[rules.Role]int),
		Healing: make(map[rules.Role]int),
	}
	turns := 0
	for _, view := range results {
		if !view.Over {
			r.Unfinished++
			continue
		}
		r.Wins[view.Victor]++
		turns += view.TurnNumber
		for _, c := range view.Combatants {
			r.Damage[c.Role] += c.Stats.DamageDealt
			r.Healing[c.Role] += c.Stats.HealingDone
		}
		if r.Sample == nil {
			r.Sample = view.Log
		}
	}
	if finished := r.Matches - r.Unfinished; finished > 0 {
		r.MeanTurns = float64(turns) / float64(finished)
	}
	return r
}

func printReport(r *Report) {
	fmt.Println("=== Arena Simulation ===")
	roles := make([]rules.Role, 0, len(r.Roster))
	for role := range r.Roster {
		roles = append(roles, role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i] < roles[j] })
	for _, role := range roles {
		fmt.Printf("%-9s %-12s wins: %4d  damage: %6d  healing: %5d\n",
			role, r.Roster[role], r.Wins[role], r.Damage[role], r.Healing[role])
	}
	fmt.Printf("\nMatches: %d (unfinished: %d)\n", r.Matches, r.Unfinished)
	fmt.Printf("Mean turns: %.1f\n", r.MeanTurns)
	if len(r.Sample) > 0 {
		fmt.Println("\nSample battle log:")
		for _, line := range r.Sample {
			fmt.Println("  " + line)
		}
	}
}
