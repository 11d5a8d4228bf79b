package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/virtualmacros/vfs/internal/infrastructure/config"
	"github.com/virtualmacros/vfs/internal/infrastructure/logging"
	"github.com/virtualmacros/vfs/internal/infrastructure/monitoring"
	"github.com/virtualmacros/vfs/internal/storage"
	"github.com/virtualmacros/vfs/internal/vfs"
)

const usage = `Usage: vfsctl [-db file] <command> [args]

Commands:
  ls <path> [glob]      list directory entries ("{dirs}" lists directories only)
  cat <path>            print file content
  write <path> [text]   write text to a file (reads stdin when text is omitted)
  mkdir <path>          create a directory, parents included
  rm <path>             remove a file or directory tree
  stat <path>           show entry details
  export <file>         export the whole tree to a bundle file
  import <file>         replace the whole tree from a bundle file
`

func main() {
	cfg := config.LoadOrDefault()

	dbPath := flag.String("db", cfg.Storage.BoltPath, "bolt database file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	log, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	backend, err := storage.OpenBolt(*dbPath)
	if err != nil {
		log.Fatal("open database", zap.String("path", *dbPath), zap.Error(err))
	}
	defer backend.Close()

	svc := vfs.New(backend, cfg,
		vfs.WithLogger(log),
		vfs.WithMetrics(monitoring.New(nil)),
	)

	if err := run(context.Background(), svc, args); err != nil {
		log.Error("command failed", zap.String("command", args[0]), zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, svc *vfs.Service, args []string) error {
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "ls":
		if len(rest) < 1 {
			return fmt.Errorf("ls: path required")
		}
		filter := ""
		if len(rest) > 1 {
			filter = rest[1]
		}
		infos, err := svc.ListDir(ctx, rest[0], filter)
		if err != nil {
			return err
		}
		for _, info := range infos {
			kind := "file"
			if info.IsDir {
				kind = "dir "
			}
			fmt.Printf("%s %10d  %s  %s\n",
				kind, info.Size, info.Modified.Format("2006-01-02 15:04:05"), info.Name)
		}
		return nil

	case "cat":
		if len(rest) != 1 {
			return fmt.Errorf("cat: path required")
		}
		content, err := svc.ReadTextFile(ctx, rest[0])
		if err != nil {
			return err
		}
		fmt.Print(content)
		return nil

	case "write":
		if len(rest) < 1 {
			return fmt.Errorf("write: path required")
		}
		var content string
		if len(rest) > 1 {
			content = rest[1]
		} else {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			content = string(data)
		}
		return svc.WriteTextFile(ctx, rest[0], content)

	case "mkdir":
		if len(rest) != 1 {
			return fmt.Errorf("mkdir: path required")
		}
		return svc.MakeDirectory(ctx, rest[0])

	case "rm":
		if len(rest) != 1 {
			return fmt.Errorf("rm: path required")
		}
		return svc.Remove(ctx, rest[0])

	case "stat":
		if len(rest) != 1 {
			return fmt.Errorf("stat: path required")
		}
		info, err := svc.Stat(ctx, rest[0])
		if err != nil {
			return err
		}
		fmt.Printf("path:     %s\n", info.Path)
		fmt.Printf("dir:      %v\n", info.IsDir)
		fmt.Printf("size:     %d\n", info.Size)
		fmt.Printf("modified: %s\n", info.Modified.Format("2006-01-02 15:04:05"))
		return nil

	case "export":
		if len(rest) != 1 {
			return fmt.Errorf("export: output file required")
		}
		bundle, err := svc.ExportTree(ctx)
		if err != nil {
			return err
		}
		data, err := sonic.Marshal(bundle)
		if err != nil {
			return fmt.Errorf("encode bundle: %w", err)
		}
		return os.WriteFile(rest[0], data, 0o644)

	case "import":
		if len(rest) != 1 {
			return fmt.Errorf("import: input file required")
		}
		data, err := os.ReadFile(rest[0])
		if err != nil {
			return err
		}
		var bundle vfs.Bundle
		if err := sonic.Unmarshal(data, &bundle); err != nil {
			return fmt.Errorf("decode bundle: %w", err)
		}
		return svc.ImportTree(ctx, &bundle)

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}
