package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/nehalsinghchandel/file-system-recovery-tool/internal/config"
	"github.com/nehalsinghchandel/file-system-recovery-tool/pkg/blockvol"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	app := &cli.App{
		Name:  "blockvol",
		Usage: "mount and operate on a simulated block volume image",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "image",
				Usage:   "path to the volume image",
				Value:   cfg.ImagePath,
				EnvVars: []string{"BLOCKVOL_IMAGE_PATH"},
			},
		},
		Commands: []*cli.Command{
			createCommand(cfg),
			fileCommand(),
			dirCommand(),
			infoCommand(),
			maintenanceCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("%v", err)
	}
}

func imagePath(ctx *cli.Context) (string, error) {
	path := ctx.String("image")
	if path == "" {
		return "", fmt.Errorf("no image path given: pass --image or set BLOCKVOL_IMAGE_PATH")
	}
	return path, nil
}

// withVolume mounts the image named by --image, runs f, and unmounts
// afterward regardless of whether f succeeded.
func withVolume(ctx *cli.Context, f func(v *blockvol.Volume) error) error {
	path, err := imagePath(ctx)
	if err != nil {
		return err
	}
	v, dirty, err := blockvol.Mount(path)
	if err != nil {
		return fmt.Errorf("mounting %q: %w", path, err)
	}
	if dirty {
		log.Printf("volume %q was not cleanly shut down", path)
	}
	ferr := f(v)
	if err := v.Unmount(); err != nil {
		if ferr != nil {
			return ferr
		}
		return fmt.Errorf("unmounting %q: %w", path, err)
	}
	return ferr
}

func createCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:        "create",
		Description: "create a new volume image",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "size", Usage: "volume size in bytes", Value: cfg.VolumeSize},
			&cli.Int64Flag{Name: "block-size", Usage: "block size in bytes", Value: cfg.BlockSize},
			&cli.StringFlag{Name: "label", Usage: "volume label", Value: cfg.VolumeLabel},
		},
		Action: func(ctx *cli.Context) error {
			path, err := imagePath(ctx)
			if err != nil {
				return err
			}
			v, err := blockvol.CreateVolume(&blockvol.CreateVolumeParams{
				Path:        path,
				SizeBytes:   ctx.Int64("size"),
				BlockSize:   blockvol.Byte(ctx.Int64("block-size")),
				VolumeLabel: ctx.String("label"),
			})
			if err != nil {
				return fmt.Errorf("creating volume %q: %w", path, err)
			}
			log.Printf("created volume %q: %d total blocks, %d free", path, v.TotalBlocks(), v.FreeBlocks())
			return v.Unmount()
		},
	}
}

func fileCommand() *cli.Command {
	return &cli.Command{
		Name:        "file",
		Description: "file create/read/write/delete/stat",
		Subcommands: []*cli.Command{
			{
				Name: "create",
				Action: func(ctx *cli.Context) error {
					path := ctx.Args().Get(0)
					return withVolume(ctx, func(v *blockvol.Volume) error {
						if err := v.CreateFile(path); err != nil {
							return err
						}
						log.Printf("created file %q", path)
						return nil
					})
				},
			},
			{
				Name:  "write",
				Usage: "blockvol file write PATH --from FILE, or pipe via stdin with --stdin",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Usage: "host file to read the payload from"},
					&cli.BoolFlag{Name: "stdin", Usage: "read the payload from stdin"},
				},
				Action: func(ctx *cli.Context) error {
					path := ctx.Args().Get(0)
					var data []byte
					var err error
					switch {
					case ctx.Bool("stdin"):
						data, err = io.ReadAll(os.Stdin)
					case ctx.String("from") != "":
						data, err = os.ReadFile(ctx.String("from"))
					default:
						return fmt.Errorf("write requires --from FILE or --stdin")
					}
					if err != nil {
						return fmt.Errorf("reading payload: %w", err)
					}
					return withVolume(ctx, func(v *blockvol.Volume) error {
						if err := v.WriteFile(path, data); err != nil {
							return err
						}
						log.Printf("wrote %d bytes to %q", len(data), path)
						return nil
					})
				},
			},
			{
				Name: "read",
				Action: func(ctx *cli.Context) error {
					path := ctx.Args().Get(0)
					return withVolume(ctx, func(v *blockvol.Volume) error {
						data, err := v.ReadFile(path)
						if err != nil {
							return err
						}
						_, err = os.Stdout.Write(data)
						return err
					})
				},
			},
			{
				Name: "delete",
				Action: func(ctx *cli.Context) error {
					path := ctx.Args().Get(0)
					return withVolume(ctx, func(v *blockvol.Volume) error {
						if err := v.DeleteFile(path); err != nil {
							return err
						}
						log.Printf("deleted file %q", path)
						return nil
					})
				},
			},
			{
				Name: "exists",
				Action: func(ctx *cli.Context) error {
					path := ctx.Args().Get(0)
					return withVolume(ctx, func(v *blockvol.Volume) error {
						fmt.Println(v.FileExists(path))
						return nil
					})
				},
			},
			{
				Name: "stat",
				Action: func(ctx *cli.Context) error {
					path := ctx.Args().Get(0)
					return withVolume(ctx, func(v *blockvol.Volume) error {
						st, err := v.Stat(path)
						if err != nil {
							return err
						}
						fmt.Printf(
							"ino=%d kind=%d size=%d blocks=%d links=%d\n",
							st.Ino, st.Kind, st.Size, st.BlockCount, st.LinkCount,
						)
						return nil
					})
				},
			},
		},
	}
}

func dirCommand() *cli.Command {
	return &cli.Command{
		Name:        "dir",
		Description: "directory create/delete/list",
		Subcommands: []*cli.Command{
			{
				Name: "create",
				Action: func(ctx *cli.Context) error {
					path := ctx.Args().Get(0)
					return withVolume(ctx, func(v *blockvol.Volume) error {
						if err := v.CreateDir(path); err != nil {
							return err
						}
						log.Printf("created directory %q", path)
						return nil
					})
				},
			},
			{
				Name: "delete",
				Action: func(ctx *cli.Context) error {
					path := ctx.Args().Get(0)
					return withVolume(ctx, func(v *blockvol.Volume) error {
						if err := v.DeleteDir(path); err != nil {
							return err
						}
						log.Printf("deleted directory %q", path)
						return nil
					})
				},
			},
			{
				Name: "list",
				Action: func(ctx *cli.Context) error {
					path := ctx.Args().Get(0)
					if path == "" {
						path = "/"
					}
					return withVolume(ctx, func(v *blockvol.Volume) error {
						entries, err := v.ListDir(path)
						if err != nil {
							return err
						}
						for _, e := range entries {
							fmt.Printf("%-6d %d  %s\n", e.InodeNumber, e.FileType, e.Name)
						}
						return nil
					})
				},
			},
		},
	}
}

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:        "info",
		Description: "introspection: free space, fragmentation, ownership, counters",
		Subcommands: []*cli.Command{
			{
				Name: "free",
				Action: func(ctx *cli.Context) error {
					return withVolume(ctx, func(v *blockvol.Volume) error {
						fmt.Printf("total=%d used=%d free=%d\n", v.TotalBlocks(), v.UsedBlocks(), v.FreeBlocks())
						return nil
					})
				},
			},
			{
				Name: "frag",
				Action: func(ctx *cli.Context) error {
					return withVolume(ctx, func(v *blockvol.Volume) error {
						score, err := v.FragmentationScore()
						if err != nil {
							return err
						}
						fmt.Printf("%.2f\n", score)
						return nil
					})
				},
			},
			{
				Name: "owner",
				Usage: "blockvol info owner BLOCK_INDEX",
				Action: func(ctx *cli.Context) error {
					var blk uint64
					if _, err := fmt.Sscanf(ctx.Args().Get(0), "%d", &blk); err != nil {
						return fmt.Errorf("parsing block index: %w", err)
					}
					return withVolume(ctx, func(v *blockvol.Volume) error {
						owner, ok := v.BlockOwner(blockvol.Block(blk))
						if !ok {
							fmt.Println("unowned")
							return nil
						}
						fmt.Println(owner)
						return nil
					})
				},
			},
			{
				Name:  "filename",
				Usage: "blockvol info filename INODE_INDEX",
				Action: func(ctx *cli.Context) error {
					var ino uint64
					if _, err := fmt.Sscanf(ctx.Args().Get(0), "%d", &ino); err != nil {
						return fmt.Errorf("parsing inode index: %w", err)
					}
					return withVolume(ctx, func(v *blockvol.Volume) error {
						path, ok := v.FilenameFromInode(blockvol.Ino(ino))
						if !ok {
							fmt.Println("not found")
							return nil
						}
						fmt.Println(path)
						return nil
					})
				},
			},
			{
				Name: "stats",
				Action: func(ctx *cli.Context) error {
					return withVolume(ctx, func(v *blockvol.Volume) error {
						s := v.Stats()
						fmt.Printf(
							"reads=%d writes=%d bytesRead=%d bytesWritten=%d lastRead=%s lastWrite=%s\n",
							s.TotalReads, s.TotalWrites, s.TotalBytesRead, s.TotalBytesWritten,
							s.LastReadDuration, s.LastWriteDuration,
						)
						return nil
					})
				},
			},
		},
	}
}

func maintenanceCommand() *cli.Command {
	return &cli.Command{
		Name:        "maintenance",
		Description: "defrag, crash injection, and recovery",
		Subcommands: []*cli.Command{
			{
				Name: "defrag",
				Action: func(ctx *cli.Context) error {
					return withVolume(ctx, func(v *blockvol.Volume) error {
						return v.Defragment(func(done, total int) {
							log.Printf("defragmenting: %d/%d files", done, total)
						})
					})
				},
			},
			{
				Name: "crash",
				Action: func(ctx *cli.Context) error {
					return withVolume(ctx, func(v *blockvol.Volume) error {
						if err := v.SimulateCrash(); err != nil {
							return err
						}
						log.Printf("simulated crash: %d blocks corrupted", len(v.CorruptedBlocks()))
						return nil
					})
				},
			},
			{
				Name:  "crash-during-write",
				Usage: "blockvol maintenance crash-during-write PATH --from FILE --fraction 0.5",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "from", Required: true},
					&cli.Float64Flag{Name: "fraction", Value: 0.5},
				},
				Action: func(ctx *cli.Context) error {
					path := ctx.Args().Get(0)
					data, err := os.ReadFile(ctx.String("from"))
					if err != nil {
						return fmt.Errorf("reading payload: %w", err)
					}
					return withVolume(ctx, func(v *blockvol.Volume) error {
						if err := v.SimulateCrashDuringWrite(path, data, ctx.Float64("fraction")); err != nil {
							return err
						}
						log.Printf("simulated crash during write: %d blocks corrupted", len(v.CorruptedBlocks()))
						return nil
					})
				},
			},
			{
				Name: "recover",
				Action: func(ctx *cli.Context) error {
					return withVolume(ctx, func(v *blockvol.Volume) error {
						if err := v.RunRecovery(); err != nil {
							return err
						}
						log.Printf("recovery complete")
						return nil
					})
				},
			},
			{
				Name: "rebuild-ownership",
				Action: func(ctx *cli.Context) error {
					return withVolume(ctx, func(v *blockvol.Volume) error {
						return v.RebuildOwnership()
					})
				},
			},
		},
	}
}
