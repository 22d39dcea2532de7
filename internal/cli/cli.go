package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"wikistore/internal/config"
	"wikistore/internal/logging"
	"wikistore/internal/objstore"
	"wikistore/internal/state"
)

func Run(args []string) error {
	fs := flag.NewFlagSet("wikistore", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	configPath, err := state.ConfigPath()
	if err != nil {
		return err
	}
	fs.StringVar(&configPath, "config", configPath, "path to config file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return usageError()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logging.New(cfg.Log)
	store := objstore.New(cfg, log)
	ctx := context.Background()

	command, commandArgs := rest[0], rest[1:]

	switch command {
	case "exists", "cat", "put", "pull", "push", "ls", "rm":
		if !store.Enabled() {
			return errors.New("remote storage is not enabled (set DEEPWIKI_S3_BUCKET and DEEPWIKI_STORAGE_BACKEND=s3)")
		}
	case "ensure":
	default:
		return usageError()
	}

	switch command {
	case "exists":
		if len(commandArgs) != 1 {
			return errors.New("usage: wikistore exists <key>")
		}
		key := store.Key(commandArgs[0])
		if !store.Exists(ctx, key) {
			return fmt.Errorf("object %q is not present", key)
		}
		fmt.Println(key)
		return nil
	case "cat":
		if len(commandArgs) != 1 {
			return errors.New("usage: wikistore cat <key>")
		}
		return catDocument(ctx, store, store.Key(commandArgs[0]))
	case "put":
		if len(commandArgs) != 2 {
			return errors.New("usage: wikistore put <key> <json-file>")
		}
		return putDocument(ctx, store, store.Key(commandArgs[0]), commandArgs[1])
	case "pull":
		if len(commandArgs) != 2 {
			return errors.New("usage: wikistore pull <key> <local-path>")
		}
		key := store.Key(commandArgs[0])
		if !store.Download(ctx, key, commandArgs[1]) {
			return fmt.Errorf("download of %q failed", key)
		}
		return nil
	case "push":
		if len(commandArgs) != 2 {
			return errors.New("usage: wikistore push <local-path> <key>")
		}
		key := store.Key(commandArgs[1])
		if !store.Upload(ctx, commandArgs[0], key) {
			return fmt.Errorf("upload of %q failed", commandArgs[0])
		}
		fmt.Println(key)
		return nil
	case "ensure":
		if len(commandArgs) != 2 {
			return errors.New("usage: wikistore ensure <local-path> <key>")
		}
		key := store.Key(commandArgs[1])
		if !store.EnsureLocal(ctx, commandArgs[0], key) {
			return fmt.Errorf("could not materialize %q locally", key)
		}
		return nil
	case "ls":
		if len(commandArgs) > 1 {
			return errors.New("usage: wikistore ls [prefix]")
		}
		prefix := store.Key()
		if len(commandArgs) == 1 {
			prefix = store.Key(commandArgs[0])
		}
		listObjects(ctx, store, prefix)
		return nil
	case "rm":
		if len(commandArgs) != 1 {
			return errors.New("usage: wikistore rm <key>")
		}
		key := store.Key(commandArgs[0])
		if !store.Delete(ctx, key) {
			return fmt.Errorf("delete of %q failed", key)
		}
		return nil
	}

	return usageError()
}

func usageError() error {
	return errors.New("usage: wikistore [-config path] exists|cat|put|pull|push|ensure|ls|rm ...")
}

func catDocument(ctx context.Context, store *objstore.Store, key string) error {
	doc := store.ReadJSON(ctx, key)
	if doc == nil {
		return fmt.Errorf("document %q is not present", key)
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func putDocument(ctx context.Context, store *objstore.Store, key, sourcePath string) error {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("read source file: %w", err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("source file is not a JSON document: %w", err)
	}
	if !store.WriteJSON(ctx, key, doc) {
		return fmt.Errorf("write of %q failed", key)
	}
	fmt.Println(key)
	return nil
}

func listObjects(ctx context.Context, store *objstore.Store, prefix string) {
	for _, entry := range store.List(ctx, prefix) {
		if ms, ok := objstore.TimestampMillis(entry.LastModified); ok {
			fmt.Printf("%s\t%d\t%d\n", entry.Key, entry.Size, ms)
		} else {
			fmt.Printf("%s\t%d\t-\n", entry.Key, entry.Size)
		}
	}
}
