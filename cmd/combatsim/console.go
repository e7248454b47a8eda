package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/supremacy-go/combat/internal/combat"
	"github.com/supremacy-go/combat/internal/dispatcher"
	"github.com/supremacy-go/combat/internal/worker"
)

var errUsage = errors.New("usage")

const consoleHelp = `commands:
  pending                                combats waiting for submissions
  status    <combat> <faction>           latest update of a faction
  blanket   <combat> <faction> <stance>  submit orders and targets from a stance
  autopilot <combat> <faction> <stance>  hand the faction to the autopilot
  resolve   <combat>                     retry resolution
`

// console lets human factions take part from a terminal. Every line is
// turned into a dispatcher event.
type console struct {
	d   *dispatcher.Dispatcher
	m   *worker.Manager
	out io.Writer
}

func runConsole(ctx context.Context, in io.Reader, out io.Writer) {
	c := &console{d: eventDispatcher, m: workerManager, out: out}
	fmt.Fprint(out, consoleHelp)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if err := c.exec(scanner.Text()); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
	}
}

func (c *console) exec(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch strings.ToLower(fields[0]) {
	case "help":
		fmt.Fprint(c.out, consoleHelp)
		return nil

	case "pending":
		for _, l := range pendingLines(c.m.Pending()) {
			fmt.Fprintln(c.out, l)
		}
		return nil

	case "status":
		combatID, faction, err := combatAndFaction(fields)
		if err != nil {
			return err
		}
		res, err := c.d.Dispatch(dispatcher.Event{Command: worker.CmdStatus, CombatID: combatID, Faction: faction})
		if err != nil {
			return err
		}
		c.printUpdate(res.(combat.CombatUpdate))
		return nil

	case "blanket", "autopilot":
		if len(fields) != 4 {
			return fmt.Errorf("%w: %s <combat> <faction> <stance>", errUsage, fields[0])
		}
		combatID, faction, err := combatAndFaction(fields[:3])
		if err != nil {
			return err
		}
		stance, err := combat.ParseStance(fields[3])
		if err != nil {
			return err
		}
		if strings.ToLower(fields[0]) == "autopilot" {
			if err := c.m.Autopilot(combatID, combat.FactionID(faction), stance); err != nil {
				return err
			}
			_, err = c.d.Dispatch(dispatcher.Event{Command: worker.CmdResolve, CombatID: combatID})
			return err
		}
		_, err = c.d.Dispatch(dispatcher.Event{
			Command:  worker.CmdBlanket,
			CombatID: combatID,
			Faction:  faction,
			Payload:  stance,
		})
		return err

	case "resolve":
		if len(fields) != 2 {
			return fmt.Errorf("%w: resolve <combat>", errUsage)
		}
		combatID, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("combat id: %w", err)
		}
		res, err := c.d.Dispatch(dispatcher.Event{Command: worker.CmdResolve, CombatID: combatID})
		if err != nil {
			return err
		}
		if outstanding, _ := res.([]combat.FactionID); len(outstanding) > 0 {
			fmt.Fprintf(c.out, "waiting for %v\n", outstanding)
		}
		return nil
	}
	return fmt.Errorf("unknown command %q", fields[0])
}

func combatAndFaction(fields []string) (int, int, error) {
	if len(fields) != 3 {
		return 0, 0, fmt.Errorf("%w: %s <combat> <faction>", errUsage, fields[0])
	}
	combatID, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("combat id: %w", err)
	}
	faction, err := strconv.Atoi(fields[2])
	if err != nil {
		return 0, 0, fmt.Errorf("faction id: %w", err)
	}
	return combatID, faction, nil
}

func (c *console) printUpdate(u combat.CombatUpdate) {
	fmt.Fprintf(c.out, "combat %d at %s, round %d, strength %d vs %d\n",
		u.CombatID, u.Location, u.RoundNumber, u.FriendlyStrength, u.HostileStrength)
	if u.IsOver {
		fmt.Fprintln(c.out, "combat is over")
	}
	for _, v := range u.FriendlyAssets {
		c.printAssets("friendly", v)
	}
	for _, v := range u.HostileAssets {
		c.printAssets("hostile", v)
	}
}

func (c *console) printAssets(side string, v combat.AssetsView) {
	fmt.Fprintf(c.out, "  %s faction %d\n", side, v.Owner)
	if v.Station != nil {
		fmt.Fprintf(c.out, "    station %d %s hull %d/%d shield %d/%d\n",
			v.Station.ObjectID, v.Station.Name, v.Station.Hull, v.Station.MaxHull, v.Station.Shield, v.Station.MaxShield)
	}
	for _, s := range v.CombatShips {
		fmt.Fprintf(c.out, "    ship %d %s hull %d/%d shield %d/%d\n",
			s.ObjectID, s.Name, s.Hull, s.MaxHull, s.Shield, s.MaxShield)
	}
	for _, s := range v.NonCombatShips {
		fmt.Fprintf(c.out, "    non-combat %d %s hull %d/%d\n", s.ObjectID, s.Name, s.Hull, s.MaxHull)
	}
}

// pendingLines renders the combats still waiting, one line per combat.
func pendingLines(pending map[int][]combat.FactionID) []string {
	lines := make([]string, 0, len(pending))
	for _, id := range slices.Sorted(maps.Keys(pending)) {
		lines = append(lines, fmt.Sprintf("combat %d: waiting for %v", id, pending[id]))
	}
	return lines
}
