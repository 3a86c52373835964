/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"drawtile/internal/config"
	"drawtile/internal/crash"
	"drawtile/internal/document"
	"drawtile/internal/drawing"
	"drawtile/internal/export"
	"drawtile/internal/images"
	"drawtile/internal/journal"
	applog "drawtile/internal/log"
	"drawtile/internal/stamppack"
	"drawtile/internal/storage"
	"drawtile/internal/telemetry"
	"drawtile/internal/version"
)

// reporter receives anonymous action metrics and crash reports when opted in.
var reporter *telemetry.Client

// errUsage makes main print usage and exit with status 2.
var errUsage = errors.New("usage")

func usage() {
	fmt.Println("drawtile: drawing documents from the command line")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  drawtile version|-v|--version               Show version")
	fmt.Println("  drawtile migrate <in> <out>                 Normalize any stored format to the current snapshot")
	fmt.Println("  drawtile info <file>                        Print format, objects and bounds")
	fmt.Println("  drawtile export json|svg|pdf|png <file> <out>")
	fmt.Println("  drawtile batch web|print <file> <dir>       Export with a preset")
	fmt.Println("  drawtile backfill <file>                    Resolve image sizes and save")
	fmt.Println("  drawtile stamps export <file> <zip>         Pack the stamp palette")
	fmt.Println("  drawtile stamps install <file> <zip> <dir>  Add a stamp pack, extracting images into <dir>")
	fmt.Println("  drawtile journal <db> [<doc-id> [limit]]    List recorded actions")
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		cfg = config.Defaults()
	}
	applog.Init(cfg.LogOptions())
	l := applog.WithComponent("cli")

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		os.Exit(2)
	}
	reporter = telemetry.New(telemetry.FromConfig(cfg.Telemetry))
	crash.SetUploader(reporter)
	err = run(cfg, args[1], args[2:])
	reporter.Close()
	switch {
	case errors.Is(err, errUsage):
		fmt.Println(err)
		usage()
		os.Exit(2)
	case err != nil:
		l.Error("command failed", slog.String("cmd", args[1]), slog.Any("err", err))
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

func need(args []string, n int, what string) error {
	if len(args) < n {
		return fmt.Errorf("%w: requires %s", errUsage, what)
	}
	return nil
}

func run(cfg config.AppConfig, cmd string, args []string) error {
	switch cmd {
	case "version", "--version", "-v":
		fmt.Println("drawtile", version.String())
		return nil
	case "migrate":
		if err := need(args, 2, "<in> and <out>"); err != nil {
			return err
		}
		return migrateCmd(cfg, args[0], args[1])
	case "info":
		if err := need(args, 1, "<file>"); err != nil {
			return err
		}
		return infoCmd(cfg, args[0])
	case "export":
		if err := need(args, 3, "<format> <file> <out>"); err != nil {
			return err
		}
		f, err := export.ParseFormat(args[0])
		if err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		return exportCmd(cfg, f, args[1], args[2])
	case "batch":
		if err := need(args, 3, "<preset> <file> <dir>"); err != nil {
			return err
		}
		return batchCmd(cfg, export.PresetName(args[0]), args[1], args[2])
	case "backfill":
		if err := need(args, 1, "<file>"); err != nil {
			return err
		}
		return backfillCmd(cfg, args[0])
	case "stamps":
		if err := need(args, 3, "export|install <file> <zip>"); err != nil {
			return err
		}
		return stampsCmd(cfg, args[0], args[1:])
	case "journal":
		if err := need(args, 1, "<db>"); err != nil {
			return err
		}
		return journalCmd(args[0], args[1:])
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func open(cfg config.AppConfig, path string) (*storage.Handle, error) {
	abs, _ := filepath.Abs(path)
	h, err := storage.Open(abs, document.WithDuplicateOffset(cfg.Editor.DuplicateOffset))
	if err != nil {
		return nil, err
	}
	for _, w := range h.Import.Warnings {
		fmt.Println("warning:", w)
	}
	return h, nil
}

func migrateCmd(cfg config.AppConfig, in, out string) error {
	h, err := open(cfg, in)
	if err != nil {
		return err
	}
	defer crash.Recover(h)
	abs, _ := filepath.Abs(out)
	if err := storage.SaveAs(h, abs); err != nil {
		return err
	}
	fmt.Printf("Migrated %s (%s) to %s\n", in, h.Import.Format, abs)
	return nil
}

func infoCmd(cfg config.AppConfig, path string) error {
	h, err := open(cfg, path)
	if err != nil {
		return err
	}
	defer crash.Recover(h)
	doc := h.Doc
	counts := map[drawing.ObjectType]int{}
	total := 0
	for _, top := range doc.Objects() {
		drawing.Walk(top, func(o drawing.Object) bool {
			counts[o.Type()]++
			total++
			return true
		})
	}
	fmt.Println("File:", h.Path)
	fmt.Println("Stored format:", h.Import.Format)
	fmt.Println("Version:", document.Version)
	fmt.Printf("Objects: %d top-level, %d total\n", len(doc.Objects()), total)
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, string(t))
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Printf("  %-10s %d\n", t, counts[drawing.ObjectType(t)])
	}
	if objs := doc.Objects(); len(objs) > 0 {
		b := objs[0].BoundingBox()
		for _, o := range objs[1:] {
			b = b.Union(o.BoundingBox())
		}
		fmt.Printf("Bounds: (%g, %g) - (%g, %g)\n", b.NW.X, b.NW.Y, b.SE.X, b.SE.Y)
	}
	fmt.Printf("Stamps: %d\n", len(doc.Stamps()))
	return nil
}

func exportOptions(cfg config.AppConfig) export.Options {
	return export.Options{Fetcher: images.DefaultFetcher{}, ImageTimeout: cfg.ImageTimeout()}
}

func exportCmd(cfg config.AppConfig, f export.Format, in, out string) error {
	h, err := open(cfg, in)
	if err != nil {
		return err
	}
	defer crash.Recover(h)
	abs, _ := filepath.Abs(out)
	if err := export.ToFile(h.Doc, f, abs, exportOptions(cfg)); err != nil {
		return err
	}
	fmt.Println("Exported", abs)
	return nil
}

func batchCmd(cfg config.AppConfig, preset export.PresetName, in, dir string) error {
	if preset != export.PresetWeb && preset != export.PresetPrint {
		return fmt.Errorf("%w: unknown preset %q", errUsage, preset)
	}
	h, err := open(cfg, in)
	if err != nil {
		return err
	}
	defer crash.Recover(h)
	name := filepath.Base(h.Path)
	name = name[:len(name)-len(filepath.Ext(name))]
	paths, err := export.BatchExport(h.Doc, export.BatchOptions{
		Preset: preset, OutDir: dir, Name: trimExt(name), Options: exportOptions(cfg),
	})
	for _, p := range paths {
		fmt.Println("Exported", p)
	}
	return err
}

// trimExt strips the remaining ".drawing" of a ".drawing.json" name.
func trimExt(name string) string {
	if ext := filepath.Ext(name); ext == ".drawing" {
		return name[:len(name)-len(ext)]
	}
	return name
}

// actionSinks wires the optional journal and telemetry loggers for a document.
func actionSinks(cfg config.AppConfig, docID string) (document.ActionLogger, func()) {
	var (
		loggers []document.ActionLogger
		closers []func()
	)
	l := applog.WithComponent("cli")
	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			l.Warn("journal unavailable", slog.String("path", cfg.Journal.Path), slog.Any("err", err))
		} else {
			loggers = append(loggers, j.Logger(docID))
			closers = append(closers, func() { _ = j.Close() })
		}
	}
	if reporter.Enabled() {
		loggers = append(loggers, reporter.ActionLogger())
		closers = append(closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := reporter.Flush(ctx); err != nil {
				l.Debug("telemetry flush failed", slog.Any("err", err))
			}
		})
	}
	return document.FanOut(loggers...), func() {
		for _, c := range closers {
			c()
		}
	}
}

func backfillCmd(cfg config.AppConfig, path string) error {
	h, err := open(cfg, path)
	if err != nil {
		return err
	}
	defer crash.Recover(h)
	sink, closeSinks := actionSinks(cfg, h.Doc.ID())
	defer closeSinks()
	h.Doc.SetActionLogger(sink)

	changed, err := backfill(cfg, h.Doc)
	if err != nil {
		return err
	}
	if changed == 0 {
		fmt.Println("All image sizes are current.")
		return nil
	}
	if err := storage.Save(h); err != nil {
		return err
	}
	fmt.Printf("Updated %d image(s) in %s\n", changed, h.Path)
	return nil
}

func stampsCmd(cfg config.AppConfig, sub string, args []string) error {
	h, err := open(cfg, args[0])
	if err != nil {
		return err
	}
	defer crash.Recover(h)
	switch sub {
	case "export":
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ImageTimeout()*time.Duration(max(1, len(h.Doc.Stamps()))))
		defer cancel()
		n, err := stamppack.Export(ctx, h.Doc, args[1], images.DefaultFetcher{})
		if err != nil {
			return err
		}
		fmt.Printf("Packed %d stamp(s) into %s\n", n, args[1])
		return nil
	case "install":
		if len(args) < 3 {
			return fmt.Errorf("%w: install requires <file> <zip> <dir>", errUsage)
		}
		sink, closeSinks := actionSinks(cfg, h.Doc.ID())
		defer closeSinks()
		h.Doc.SetActionLogger(sink)
		n, err := stamppack.Install(h.Doc, args[1], args[2])
		if err != nil {
			return err
		}
		if n > 0 {
			if err := storage.Save(h); err != nil {
				return err
			}
		}
		fmt.Printf("Added %d stamp(s) to %s\n", n, h.Path)
		return nil
	}
	return fmt.Errorf("%w: unknown stamps command %q", errUsage, sub)
}

func journalCmd(path string, args []string) error {
	j, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()
	ctx := context.Background()
	if len(args) == 0 {
		docs, err := j.Documents(ctx)
		if err != nil {
			return err
		}
		for _, d := range docs {
			fmt.Printf("%s\t%d actions\tlast %s\n", d.DocID, d.Actions, d.Last.Format(time.RFC3339))
		}
		return nil
	}
	limit := 50
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: bad limit %q", errUsage, args[1])
		}
		limit = n
	}
	entries, err := j.List(ctx, args[0], limit)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%d\t%s\t%s\t%s\t%s\n", e.ID, e.TS.Format(time.RFC3339), e.Name, e.Path, e.Args)
	}
	return nil
}
