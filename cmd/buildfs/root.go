// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"io"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/walteh/buildfs/pkg/config"
	"github.com/walteh/buildfs/pkg/host"
	"github.com/walteh/buildfs/pkg/log"
	"github.com/walteh/buildfs/pkg/state"
	"gitlab.com/tozd/go/errors"
)

// rootOpts holds the persistent flags shared by every command
type rootOpts struct {
	configFile string
	debug      bool
	verbose    bool
	workspace  string
	mirrorRoot string
	stateFile  string
	force      bool
	async      bool
}

func newRootCmd() *cobra.Command {
	o := &rootOpts{}

	cmd := &cobra.Command{
		Use:   "buildfs",
		Short: "Copy, prepare and mirror files between a build workspace and the local filesystem",
		Long: `buildfs moves files between the execution hierarchy of a build (rooted at the
workspace) and the real local filesystem. It records what every task read and
wrote so a rerun with nothing changed does nothing.

Locations are written as exec:/path or local:/path.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(o.setupLogging(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr()))
		},
	}

	addRootFlags(cmd, o)

	cmd.AddCommand(
		newCopyCmd(o),
		newPrepareCmd(o),
		newMirrorCmd(o),
		newRunCmd(o),
		newStatusCmd(o),
		newCleanCmd(o),
	)

	return cmd
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command, o *rootOpts) {
	cmd.PersistentFlags().StringVarP(&o.configFile, "config", "c", ".buildfs.yaml", "task file path")
	cmd.PersistentFlags().BoolVarP(&o.debug, "debug", "d", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "print unchanged paths too")
	cmd.PersistentFlags().StringVar(&o.workspace, "workspace", "", "local directory backing the execution hierarchy (overrides the task file)")
	cmd.PersistentFlags().StringVar(&o.mirrorRoot, "mirror-root", "", "local directory for mirrored execution paths (overrides the task file)")
	cmd.PersistentFlags().StringVar(&o.stateFile, "state-file", "", "lock file path (overrides the task file)")
	cmd.PersistentFlags().BoolVar(&o.force, "force", false, "run tasks even when they are up to date")
	cmd.PersistentFlags().BoolVar(&o.async, "async", false, "run independent tasks concurrently")
}

// setupLogging configures zerolog based on flags
func (o *rootOpts) setupLogging(ctx context.Context, stdout, stderr io.Writer) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	level := zerolog.InfoLevel
	if o.debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: stderr}).Level(level).With().Timestamp().Logger()
	ctx = logger.WithContext(ctx)
	return log.NewContext(ctx, log.New(stdout, logger, o.verbose))
}

// 🏗️ app is everything a command needs, resolved from flags and the task file
type app struct {
	cfg   *config.Config
	fss   host.FileSystems
	host  *host.AferoHost
	store *state.Store
}

// load resolves the environment. The task file is required when
// needConfig is set and optional otherwise.
func (o *rootOpts) load(ctx context.Context, needConfig bool) (*app, error) {
	osfs := afero.NewOsFs()

	cfg := &config.Config{}
	exists, err := afero.Exists(osfs, o.configFile)
	if err != nil {
		return nil, errors.Errorf("checking task file: %w", err)
	}
	switch {
	case exists:
		if cfg, err = config.Load(ctx, osfs, o.configFile); err != nil {
			return nil, errors.Errorf("loading config: %w", err)
		}
	case needConfig:
		return nil, errors.Errorf("task file %s not found", o.configFile)
	default:
		if err := cfg.Validate(); err != nil {
			return nil, errors.Errorf("defaulting config: %w", err)
		}
	}

	if o.workspace != "" {
		if cfg.Workspace, err = absPath(o.workspace); err != nil {
			return nil, err
		}
	}
	if o.mirrorRoot != "" {
		if cfg.MirrorRoot, err = absPath(o.mirrorRoot); err != nil {
			return nil, err
		}
	}
	switch {
	case o.stateFile != "":
		if cfg.StateFile, err = absPath(o.stateFile); err != nil {
			return nil, err
		}
	case o.workspace != "" && !exists:
		cfg.StateFile = filepath.Join(cfg.Workspace, ".buildfs", "state.json")
	}

	if err := osfs.MkdirAll(cfg.Workspace, 0o755); err != nil {
		return nil, errors.Errorf("creating workspace: %w", err)
	}

	fss := host.NewOsFileSystems(cfg.Workspace)
	store, err := state.Open(ctx, fss.Local, cfg.StateFile)
	if err != nil {
		return nil, errors.Errorf("opening state: %w", err)
	}

	zerolog.Ctx(ctx).Debug().
		Str("workspace", cfg.Workspace).
		Str("mirror_root", cfg.MirrorRoot).
		Str("state_file", cfg.StateFile).
		Msg("resolved environment")

	return &app{
		cfg:   cfg,
		fss:   fss,
		host:  host.New(fss, host.WithMirrorRoot(cfg.MirrorRoot)),
		store: store,
	}, nil
}

func absPath(p string) (string, error) {
	expanded, err := homedir.Expand(p)
	if err != nil {
		return "", errors.Errorf("expanding %q: %w", p, err)
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", errors.Errorf("resolving %q: %w", p, err)
	}
	return abs, nil
}
