package main

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/binzume/eggconv/egg"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
)

// findInputs lists egg files below dir, leaving out skipped folders.
func findInputs(dir string, opts *egg.Options) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.ToLower(filepath.Ext(path)) != ".egg" {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if !opts.SkipPath(rel) {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func outputPath(input, srcDir, dstDir string) string {
	rel, err := filepath.Rel(srcDir, input)
	if err != nil {
		rel = filepath.Base(input)
	}
	return defaultOutputFile(filepath.Join(dstDir, rel))
}

func (t *task) convertDir(srcDir, dstDir string, jobs int) error {
	files, err := findInputs(srcDir, t.importOpts)
	if err != nil {
		return err
	}
	if jobs < 1 {
		jobs = 1
	}
	var done, skipped, failed int32
	var g errgroup.Group
	g.SetLimit(jobs)
	for _, f := range files {
		g.Go(func() error {
			out := outputPath(f, srcDir, dstDir)
			if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
				return err
			}
			err := t.convert(f, out)
			switch {
			case errors.Is(err, egg.ErrSkipped):
				atomic.AddInt32(&skipped, 1)
			case err != nil:
				// a broken file does not stop the batch
				log.Printf("WARNING: %s: %v", f, err)
				atomic.AddInt32(&failed, 1)
			default:
				atomic.AddInt32(&done, 1)
			}
			return nil
		})
	}
	err = g.Wait()
	log.Printf("converted %d, skipped %d, failed %d of %d files", done, skipped, failed, len(files))
	return err
}

func (t *task) watch(input, output string, isDir bool) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if isDir {
		err = filepath.WalkDir(input, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return watcher.Add(path)
			}
			return nil
		})
	} else {
		// editors replace files, so the directory is watched
		err = watcher.Add(filepath.Dir(input))
	}
	if err != nil {
		return err
	}
	log.Print("watching ", input)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if strings.ToLower(filepath.Ext(event.Name)) != ".egg" {
				continue
			}
			out := output
			if isDir {
				if rel, err := filepath.Rel(input, event.Name); err != nil || t.importOpts.SkipPath(rel) {
					continue
				}
				out = outputPath(event.Name, input, output)
			} else if filepath.Clean(event.Name) != filepath.Clean(input) {
				continue
			}
			log.Print("changed: ", event.Name)
			if err := t.convert(event.Name, out); err != nil && !errors.Is(err, egg.ErrSkipped) {
				log.Print("WARNING: ", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Print("watch error: ", err)
		}
	}
}
