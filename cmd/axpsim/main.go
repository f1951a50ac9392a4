// Command axpsim runs the core against an SROM boot image, optionally
// attaching the live console monitor.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"axp21264/config"
	"axp21264/cpu"
	"axp21264/console"
	"axp21264/srom"
	"axp21264/trace"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "axpsim",
		Short: "axpsim — a DEC Alpha 21264 core emulator",
	}

	var configPath string
	var withConsole bool

	runCmd := &cobra.Command{
		Use:   "run [image]",
		Short: "Boot an SROM image and run the core",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logLevel, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("axpsim: reading image: %w", err)
			}
			img, err := srom.Parse(raw)
			if err != nil {
				return fmt.Errorf("axpsim: parsing image: %w", err)
			}
			cfg.PALBase = img.PALBase

			logger := trace.New(os.Stderr, logLevel)
			core := cpu.New(cfg, logger)
			if err := core.Boot(img.Code); err != nil {
				return fmt.Errorf("axpsim: boot: %w", err)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			errCh := make(chan error, 1)
			go func() { errCh <- core.Run(ctx) }()

			if withConsole {
				if err := console.Run(core); err != nil {
					return fmt.Errorf("axpsim: console: %w", err)
				}
				core.Halt()
			}

			if err := <-errCh; err != nil {
				return fmt.Errorf("axpsim: run: %w", err)
			}
			return nil
		},
	}
	runCmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	runCmd.Flags().BoolVar(&withConsole, "console", false, "attach the live TUI monitor")

	var entryPC, palBase uint64
	buildImageCmd := &cobra.Command{
		Use:   "build-image [code] [output]",
		Short: "Wrap a raw binary into an SROM boot image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("axpsim: reading code: %w", err)
			}
			raw := srom.Build(srom.Image{EntryPC: entryPC, PALBase: palBase, Code: code})
			if err := os.WriteFile(args[1], raw, 0o644); err != nil {
				return fmt.Errorf("axpsim: writing image: %w", err)
			}
			return nil
		},
	}
	buildImageCmd.Flags().Uint64Var(&entryPC, "entry-pc", 0, "entry program counter")
	buildImageCmd.Flags().Uint64Var(&palBase, "pal-base", 0x20000000, "PAL base address")

	rootCmd.AddCommand(runCmd, buildImageCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(path string) (cpu.Config, trace.Level, error) {
	if path == "" {
		return cpu.DefaultConfig(), trace.LevelInfo, nil
	}
	f, err := config.Load(path)
	if err != nil {
		return cpu.Config{}, trace.LevelInfo, err
	}
	cfg, err := f.ToCoreConfig()
	if err != nil {
		return cpu.Config{}, trace.LevelInfo, err
	}
	return cfg, f.LogLevelOrDefault(), nil
}
