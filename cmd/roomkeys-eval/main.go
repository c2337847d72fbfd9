// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// roomkeys-eval runs a push ruleset and the power-level checks against
// a single event, for debugging notification and permission behavior
// offline.
//
// The event is a JSON file in client-server API format. Room data the
// conditions need comes from flags: --member-count for the joined
// member count and --power-levels for an m.room.power_levels content
// file. Both apply to the event's own room.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/roomkeys/lib/config"
	"github.com/bureau-foundation/roomkeys/lib/event"
	"github.com/bureau-foundation/roomkeys/lib/pushrule"
	"github.com/bureau-foundation/roomkeys/lib/ref"
	"github.com/bureau-foundation/roomkeys/lib/schema"
	"github.com/bureau-foundation/roomkeys/lib/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath      string
	rulesPath       string
	eventPath       string
	powerLevelsPath string
	memberCount     int
	maySend         bool
	showVersion     bool
}

func run(args []string, stdout, stderr io.Writer) error {
	var opts options

	flagSet := pflag.NewFlagSet("roomkeys-eval", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.configPath, "config", "", "config file (default: $ROOMKEYS_CONFIG, else built-in defaults)")
	flagSet.StringVar(&opts.rulesPath, "rules", "", "JSONC push ruleset (default: push_rules.file from config)")
	flagSet.StringVar(&opts.eventPath, "event", "", "event JSON file (required)")
	flagSet.StringVar(&opts.powerLevelsPath, "power-levels", "", "m.room.power_levels content JSON for the event's room")
	flagSet.IntVar(&opts.memberCount, "member-count", -1, "joined member count of the event's room (-1: unknown)")
	flagSet.BoolVar(&opts.maySend, "may-send", false, "report whether the sender may send the event under --power-levels")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print version information and exit")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if opts.showVersion {
		version.Fprint(stdout, "roomkeys-eval")
		return nil
	}
	if extra := flagSet.Args(); len(extra) > 0 {
		return fmt.Errorf("unexpected argument: %s", extra[0])
	}
	if opts.eventPath == "" {
		return errors.New("--event is required")
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	logger := cfg.Logger(stderr)

	evt, err := readEvent(opts.eventPath)
	if err != nil {
		return err
	}
	logger.Debug("loaded event", "type", evt.Type, "room_id", evt.RoomID, "sender", evt.Sender)

	rooms := &staticRoom{roomID: evt.RoomID, memberCount: opts.memberCount}
	if opts.powerLevelsPath != "" {
		data, err := os.ReadFile(opts.powerLevelsPath)
		if err != nil {
			return fmt.Errorf("reading %s: %w", opts.powerLevelsPath, err)
		}
		rooms.powerLevels, err = schema.ParsePowerLevels(data)
		if err != nil {
			return fmt.Errorf("%s: %w", opts.powerLevelsPath, err)
		}
	}

	if opts.maySend {
		if rooms.powerLevels == nil {
			return errors.New("--may-send requires --power-levels")
		}
		reportMaySend(stdout, evt, rooms.powerLevels)
	}

	rulesPath := opts.rulesPath
	if rulesPath == "" {
		rulesPath = cfg.PushRules.File
	}
	if rulesPath == "" {
		if opts.maySend {
			return nil
		}
		return errors.New("no ruleset: pass --rules or set push_rules.file in the config")
	}

	ruleset, err := pushrule.LoadRuleset(rulesPath)
	if err != nil {
		return err
	}
	return reportMatch(stdout, pushrule.NewEvaluator(ruleset, rooms, logger), evt)
}

func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	switch {
	case path != "":
		cfg, err = config.LoadFile(path)
	case os.Getenv("ROOMKEYS_CONFIG") != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func readEvent(path string) (*event.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	evt, err := event.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return evt, nil
}

func reportMaySend(w io.Writer, evt *event.Event, powerLevels *schema.PowerLevels) {
	var allowed bool
	var required int
	if evt.IsState() {
		allowed = powerLevels.MaySendStateEvent(evt.Type, evt.Sender)
		required = powerLevels.MinimumLevelForStateEvent(evt.Type)
	} else {
		allowed = powerLevels.MaySend(evt.Type, evt.Sender)
		required = powerLevels.MinimumLevelForMessage(evt.Type)
	}
	fmt.Fprintf(w, "may send %s: %t (sender level %d, required %d)\n",
		evt.Type, allowed, powerLevels.UserLevel(evt.Sender), required)
}

func reportMatch(w io.Writer, evaluator *pushrule.Evaluator, evt *event.Event) error {
	match, ok := evaluator.Evaluate(evt)
	if !ok {
		fmt.Fprintln(w, "no rule matched")
		return nil
	}
	actions, err := json.Marshal(match.Actions())
	if err != nil {
		return fmt.Errorf("encoding actions: %w", err)
	}
	fmt.Fprintf(w, "matched %s rule %s\nactions: %s\n", match.Kind, match.Rule.RuleID, actions)
	return nil
}

// staticRoom answers RoomState queries for the single room named on
// the command line.
type staticRoom struct {
	roomID      ref.RoomID
	memberCount int
	powerLevels *schema.PowerLevels
}

func (r *staticRoom) JoinedMemberCount(roomID ref.RoomID) (int, bool) {
	if roomID != r.roomID || r.memberCount < 0 {
		return 0, false
	}
	return r.memberCount, true
}

func (r *staticRoom) PowerLevels(roomID ref.RoomID) (*schema.PowerLevels, bool) {
	if roomID != r.roomID || r.powerLevels == nil {
		return nil, false
	}
	return r.powerLevels, true
}

var _ pushrule.RoomState = (*staticRoom)(nil)
