/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"pamet/internal/config"
	applog "pamet/internal/log"
	"pamet/internal/notebook"
	"pamet/internal/storage"
)

// state is shared by all commands. Flags on the root command override the
// loaded config.
type state struct {
	cfg     *config.AppConfig
	out     io.Writer
	backend string
	path    string
}

func (st *state) root() (string, error) {
	if st.path != "" {
		return filepath.Abs(st.path)
	}
	return st.cfg.Storage.Root()
}

func (st *state) backendName() string {
	if st.backend != "" {
		return st.backend
	}
	return st.cfg.Storage.Backend
}

// open returns the notebook over the configured repository. The caller closes
// the repository.
func (st *state) open() (*notebook.Notebook, storage.Repository, error) {
	root, err := st.root()
	if err != nil {
		return nil, nil, err
	}
	repo, err := storage.Open(st.backendName(), root)
	if err != nil {
		return nil, nil, fmt.Errorf("open repository %s: %w", root, err)
	}
	applog.WithComponent("cli").Debug("repository opened",
		slog.String("backend", st.backendName()), slog.String("root", root))
	return notebook.New(repo, notebook.Options{}), repo, nil
}

func (st *state) printf(format string, args ...any) {
	fmt.Fprintf(st.out, format, args...)
}

func newRootCmd(cfg *config.AppConfig, out io.Writer) *cobra.Command {
	if out == nil {
		out = os.Stdout
	}
	st := &state{cfg: cfg, out: out}
	cmd := &cobra.Command{
		Use:   "pamet",
		Short: "Spatial note taking on an infinite canvas.",
		Long: heredoc.Doc(`
			Pamet keeps text notes on pages you can pan, zoom and rearrange.

			Pages live in a repository directory, either as one JSON file per page
			(backend "fs") or in a single SQLite database (backend "sqlite").

			  pamet init ~/notes
			  pamet new-page "Ideas" --path ~/notes
			  pamet ui
		`),
		SilenceUsage: true,
	}
	cmd.SetOut(out)
	cmd.PersistentFlags().StringVar(&st.backend, "backend", "", `storage backend, "fs" or "sqlite" (default from config)`)
	cmd.PersistentFlags().StringVar(&st.path, "path", "", "repository directory (default from config)")

	cmd.AddCommand(
		newCmdVersion(st),
		newCmdInit(st),
		newCmdPages(st),
		newCmdNewPage(st),
		newCmdNotes(st),
		newCmdAddNote(st),
		newCmdSearch(st),
		newCmdReplay(st),
		newCmdConfig(st),
		newCmdUI(st),
	)
	return cmd
}
