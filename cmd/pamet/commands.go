/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"pamet/internal/config"
	"pamet/internal/entity"
	"pamet/internal/geom"
	"pamet/internal/storage"
	"pamet/internal/ui"
	"pamet/internal/version"
)

func newCmdVersion(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			st.printf("pamet %s\n", version.String())
		},
	}
}

func newCmdInit(st *state) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a repository with a first page",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				st.path = args[0]
			}
			nb, repo, err := st.open()
			if err != nil {
				return err
			}
			defer repo.Close()
			pages, err := nb.Pages()
			if err != nil {
				return err
			}
			root, _ := st.root()
			if len(pages) > 0 {
				st.printf("Repository at %s already has %d page(s)\n", root, len(pages))
				return nil
			}
			p := entity.NewPage(name)
			if err := nb.AddPage(p); err != nil {
				return err
			}
			st.printf("Created repository at %s with page %s (%s)\n", root, p.ID, p.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "Home", "name of the first page")
	return cmd
}

func newCmdPages(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "pages",
		Short: "List pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			nb, repo, err := st.open()
			if err != nil {
				return err
			}
			defer repo.Close()
			pages, err := nb.Pages()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(st.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tNOTES\tMODIFIED")
			for _, p := range pages {
				ns, err := nb.Notes(p.ID)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", p.ID, p.Name, len(ns), p.Modified.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
}

func newCmdNewPage(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "new-page <name>",
		Short: "Add an empty page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nb, repo, err := st.open()
			if err != nil {
				return err
			}
			defer repo.Close()
			p := entity.NewPage(args[0])
			if err := nb.AddPage(p); err != nil {
				return err
			}
			st.printf("%s\n", p.ID)
			return nil
		},
	}
}

func newCmdNotes(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "notes <page>",
		Short: "List the notes of a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			nb, repo, err := st.open()
			if err != nil {
				return err
			}
			defer repo.Close()
			ns, err := nb.Notes(args[0])
			if err != nil {
				return err
			}
			printNotes(st, ns)
			return nil
		},
	}
}

func printNotes(st *state, ns []entity.Note) {
	tw := tabwriter.NewWriter(st.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPOSITION\tSIZE\tTEXT")
	for _, n := range ns {
		text := strings.ReplaceAll(n.Text, "\n", " / ")
		if len(text) > 40 {
			text = text[:37] + "..."
		}
		fmt.Fprintf(tw, "%s\t%v\t%v\t%s\n", n.ID, n.Position, n.Size, text)
	}
	_ = tw.Flush()
}

func newCmdAddNote(st *state) *cobra.Command {
	var x, y, w, h float64
	cmd := &cobra.Command{
		Use:   "add-note <page> <text>",
		Short: "Add a text note to a page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			nb, repo, err := st.open()
			if err != nil {
				return err
			}
			defer repo.Close()
			n := entity.NewTextNote(args[0], geom.Pt(x, y), args[1])
			if w > 0 || h > 0 {
				size := n.Size
				if w > 0 {
					size.X = w
				}
				if h > 0 {
					size.Y = h
				}
				n.SetSize(size)
			}
			if err := nb.AddNote(n); err != nil {
				return err
			}
			st.printf("%s\n", n.ID)
			return nil
		},
	}
	cmd.Flags().Float64Var(&x, "x", 0, "left edge in page units")
	cmd.Flags().Float64Var(&y, "y", 0, "top edge in page units")
	cmd.Flags().Float64Var(&w, "width", 0, "width (default size when 0)")
	cmd.Flags().Float64Var(&h, "height", 0, "height (default size when 0)")
	return cmd
}

func newCmdSearch(st *state) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find notes containing all query terms",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, repo, err := st.open()
			if err != nil {
				return err
			}
			defer repo.Close()
			s, ok := repo.(storage.Searcher)
			if !ok {
				return errors.New("search is not supported by this backend")
			}
			res, err := s.SearchNotes(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			for _, r := range res {
				st.printf("%s/%s\t%s\n", r.PageID, r.NoteID, r.Snippet)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of results")
	return cmd
}

func newCmdConfig(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: heredoc.Doc(`
			Prints the configuration after merging the config file and environment
			overrides. Keys overridden by the environment are listed below it.
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ConfigPath()
			if err != nil {
				return err
			}
			b, err := yaml.Marshal(st.cfg)
			if err != nil {
				return err
			}
			st.printf("# %s\n%s", path, b)
			for _, key := range config.OverridableKeys() {
				if env, ok := config.EnvOverrideFor(key); ok {
					st.printf("# %s overridden by %s\n", key, env)
				}
			}
			return nil
		},
	}
}

func newCmdUI(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "ui [page]",
		Short: "Launch the desktop UI (build with -tags fyne)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *st.cfg
			if st.backend != "" {
				cfg.Storage.Backend = st.backend
			}
			if st.path != "" {
				root, err := st.root()
				if err != nil {
					return err
				}
				cfg.Storage.Path = root
			}
			opts := ui.Options{Config: cfg}
			if len(args) == 1 {
				opts.PageID = args[0]
			}
			return ui.Run(opts)
		},
	}
}
