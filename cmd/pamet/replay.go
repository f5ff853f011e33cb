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
	"os"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"pamet/internal/mainloop"
	"pamet/internal/mappage"
	"pamet/internal/script"
	"pamet/internal/session"
)

func newCmdReplay(st *state) *cobra.Command {
	var width, height float64
	cmd := &cobra.Command{
		Use:   "replay <page> <script>",
		Short: "Drive a page with a scripted input sequence",
		Long: heredoc.Doc(`
			Replays mouse and keyboard events against a page without a window and
			stores the resulting changes. One event per line:

			  press x y [ctrl] [shift]   move x y   release x y   longpress
			  scroll n   dblclick x y   type text   confirm   cancel
			  delete   selectall   wait ms   undo   redo   resize w h

			Coordinates are pixels on a canvas of --width by --height.
		`),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			sc, errs := script.Parse(string(src))
			if len(errs) > 0 {
				for _, e := range errs {
					fmt.Fprintln(cmd.ErrOrStderr(), e.Error())
				}
				return fmt.Errorf("%d error(s) in %s", len(errs), args[1])
			}

			nb, repo, err := st.open()
			if err != nil {
				return err
			}
			defer repo.Close()

			clock := mainloop.NewManualClock(time.Now())
			queue := mainloop.NewQueue(clock.Now)
			s := session.New(nb, queue, session.Options{
				Canvas:   mappage.Options{MoveSpeed: st.cfg.Canvas.MoveSpeed, LongPressDelay: st.cfg.Canvas.LongPressDelay()},
				AutoSize: st.cfg.Canvas.AutoSizeNotes,
			})
			defer s.Close()
			v, err := s.OpenPage(args[0])
			if err != nil {
				return err
			}
			if err := v.HandleResize(width, height); err != nil {
				return err
			}
			if err := session.NewReplayer(s, v, queue, clock).Run(sc); err != nil {
				return err
			}
			ns, err := nb.Notes(args[0])
			if err != nil {
				return err
			}
			printNotes(st, ns)
			return nil
		},
	}
	cmd.Flags().Float64Var(&width, "width", 500, "canvas width in pixels")
	cmd.Flags().Float64Var(&height, "height", 500, "canvas height in pixels")
	return cmd
}
