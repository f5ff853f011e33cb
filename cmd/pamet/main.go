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
	"log/slog"
	"os"

	"pamet/internal/config"
	"pamet/internal/crash"
	applog "pamet/internal/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: config:", err)
		os.Exit(2)
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("cli")
	root, _ := cfg.Storage.Root()
	defer crash.Recover(root)

	l.Debug("start", slog.Int("args", len(os.Args)))
	if err := newRootCmd(&cfg, os.Stdout).Execute(); err != nil {
		l.Debug("command failed", slog.Any("err", err))
		os.Exit(1)
	}
}
