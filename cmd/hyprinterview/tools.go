package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/leonardotrapani/hyprinterview/internal/config"
	"github.com/leonardotrapani/hyprinterview/internal/deps"
	"github.com/leonardotrapani/hyprinterview/internal/models/whisper"
	"github.com/leonardotrapani/hyprinterview/internal/tui"
	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the programs the daemon needs are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if errors.Is(err, config.ErrConfigNotFound) {
				cfg = config.DefaultConfig()
			} else if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			tui.SetupColor(os.Stdout)
			statuses := deps.CheckAll(cmd.Context(), deps.Required(cfg.Transcription.Provider, cfg.Notifications.Type))
			for _, st := range statuses {
				fmt.Println(doctorLine(st))
			}

			if cfg.Transcription.Provider == "whisper-cpp" {
				if path, err := whisper.Resolve(cfg.Transcription.ModelPath, cfg.Transcription.Model); err != nil {
					fmt.Printf("%s model: %v\n", tui.StyleError.Render("✗"), err)
				} else {
					fmt.Printf("%s model: %s\n", tui.StyleSuccess.Render("✓"), path)
				}
			}

			if missing := deps.Missing(statuses); len(missing) > 0 {
				names := make([]string, len(missing))
				for i, t := range missing {
					names[i] = t.Name
				}
				return fmt.Errorf("missing required programs: %s", strings.Join(names, ", "))
			}
			return nil
		},
	}
}

func doctorLine(st deps.Status) string {
	switch {
	case st.Installed:
		line := fmt.Sprintf("%s %s (%s)", tui.StyleSuccess.Render("✓"), st.Tool.Name, st.Path)
		if st.Version != "" {
			line += " " + tui.StyleMuted.Render(st.Version)
		}
		return line
	case st.Tool.Optional:
		return fmt.Sprintf("%s %s not found, needed for %s", tui.StyleWarning.Render("!"), st.Tool.Name, st.Tool.Purpose)
	default:
		return fmt.Sprintf("%s %s not found, needed for %s", tui.StyleError.Render("✗"), st.Tool.Name, st.Tool.Purpose)
	}
}

func modelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage local whisper.cpp models",
	}

	cmd.AddCommand(modelListCmd())
	cmd.AddCommand(modelDownloadCmd())
	cmd.AddCommand(modelRemoveCmd())

	return cmd
}

func modelListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List whisper.cpp models and whether they are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := whisper.DefaultStore()
			if err != nil {
				return err
			}
			for _, m := range whisper.List() {
				prefix := "[ ]"
				if store.Installed(m.ID) {
					prefix = "[x]"
				}
				kind := "english"
				if m.Multilingual {
					kind = "multilingual"
				}
				fmt.Printf("  %s %s [%s, %s]\n", prefix, m.ID, kind, m.Size)
			}
			fmt.Printf("\nModels directory: %s\n", store.Dir)
			return nil
		},
	}
}

func modelDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download <model-name>",
		Short: "Download a whisper.cpp model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			m, ok := whisper.Lookup(id)
			if !ok {
				return fmt.Errorf("unknown model: %s (see hyprinterview model list)", id)
			}
			store, err := whisper.DefaultStore()
			if err != nil {
				return err
			}
			if store.Installed(id) {
				path, _ := store.Path(id)
				fmt.Printf("model '%s' is already installed at %s\n", id, path)
				return nil
			}

			fmt.Printf("downloading %s (%s)...\n", id, m.Size)
			var lastPercent int64
			err = store.Download(cmd.Context(), id, func(done, total int64) {
				if total <= 0 {
					return
				}
				if percent := done * 100 / total; percent >= lastPercent+10 {
					fmt.Printf("%d%% ", percent)
					lastPercent = percent
				}
			})
			if err != nil {
				return fmt.Errorf("download failed: %w", err)
			}

			path, _ := store.Path(id)
			fmt.Printf("\ndownload complete: %s\n", path)
			return nil
		},
	}
}

func modelRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <model-name>",
		Short: "Remove a downloaded whisper.cpp model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := whisper.DefaultStore()
			if err != nil {
				return err
			}
			if err := store.Remove(args[0]); err != nil {
				return err
			}
			fmt.Printf("model '%s' removed successfully\n", args[0])
			return nil
		},
	}
}
